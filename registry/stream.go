package registry

import (
	"github.com/rs/zerolog/log"

	"github.com/go-signalr/signalr/completer"
	"github.com/go-signalr/signalr/protocol"
)

// streamInvocationEntry is the pending entry for a server-streaming
// invocation: items are pushed per StreamItem and the channel is closed
// on the terminating Completion.
type streamInvocationEntry[T any] struct {
	invocationID string
	completer    *completer.StreamCompleter[T]
	completed    bool
}

// streamBuffer bounds the number of in-flight items buffered between the
// receive loop and a slow consumer before Push blocks it.
const streamBuffer = 32

func newStreamInvocation[T any](invocationID string) (*streamInvocationEntry[T], *completer.Stream[T]) {
	stream, comp := completer.NewStream[T](streamBuffer)
	return &streamInvocationEntry[T]{invocationID: invocationID, completer: comp}, stream
}

func (s *streamInvocationEntry[T]) updateWith(payload protocol.Payload, msgType protocol.MessageType) {
	switch msgType {
	case protocol.StreamItem:
		s.pushItem(payload)
	case protocol.Completion:
		s.completed = true
		s.completer.Close()
	default:
		log.Error().Str("invocationId", s.invocationID).Int("messageType", int(msgType)).Msg("cannot update stream with this message type")
	}
}

func (s *streamInvocationEntry[T]) pushItem(payload protocol.Payload) {
	if payload.IsBinary() {
		items, err := protocol.ParseBinaryMessage(payload.Binary)
		if err != nil {
			log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot parse binary message")
			return
		}
		si, err := protocol.ParseBinaryStreamItem(items)
		if err != nil {
			log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot parse binary stream item")
			return
		}
		item, err := protocol.ValueToType[T](si.Item)
		if err != nil {
			log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot decode binary stream item")
			return
		}
		s.completer.Push(item)
		return
	}

	msg, err := protocol.ParseStreamItem(payload.Text)
	if err != nil {
		log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot parse stream item")
		return
	}
	item, err := protocol.DecodeInto[T](msg.Item)
	if err != nil {
		log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot decode stream item")
		return
	}
	s.completer.Push(item)
}

func (s *streamInvocationEntry[T]) isCompleted() bool {
	return s.completed
}

func (s *streamInvocationEntry[T]) dispose() {
	s.completed = true
	s.completer.Close()
}
