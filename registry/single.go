package registry

import (
	"github.com/rs/zerolog/log"

	"github.com/go-signalr/signalr/completer"
	"github.com/go-signalr/signalr/protocol"
)

// singleInvocation is the pending entry for a request/response
// invocation: it holds a one-shot completer and is removed from the
// registry exactly once, on Completion, transport drop, or explicit
// shutdown.
type singleInvocation[T any] struct {
	invocationID string
	completer    *completer.OneShotCompleter[T]
	completed    bool
}

func newSingleInvocation[T any](invocationID string) (*singleInvocation[T], *completer.OneShot[T]) {
	future, comp := completer.NewOneShot[T]()
	return &singleInvocation[T]{invocationID: invocationID, completer: comp}, future
}

func (s *singleInvocation[T]) updateWith(payload protocol.Payload, msgType protocol.MessageType) {
	if msgType != protocol.Completion {
		log.Error().Str("invocationId", s.invocationID).Int("messageType", int(msgType)).Msg("cannot complete invocation with non-completion message")
		return
	}

	defer func() { s.completed = true }()

	if payload.IsBinary() {
		s.updateWithBinary(payload.Binary)
		return
	}
	s.updateWithText(payload.Text)
}

func (s *singleInvocation[T]) updateWithText(body string) {
	comp, err := protocol.ParseCompletion(body)
	if err != nil {
		log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot parse completion")
		return
	}
	if comp.IsError() {
		log.Error().Str("invocationId", s.invocationID).Str("error", comp.Error).Msg("invocation completed with error")
		s.completer.Cancel()
		return
	}
	if comp.Result == nil {
		var zero T
		s.completer.Complete(zero)
		return
	}
	value, err := protocol.DecodeInto[T](comp.Result)
	if err != nil {
		log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot decode completion result")
		s.completer.Cancel()
		return
	}
	s.completer.Complete(value)
}

func (s *singleInvocation[T]) updateWithBinary(data []byte) {
	items, err := protocol.ParseBinaryMessage(data)
	if err != nil {
		log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot parse binary message")
		return
	}
	comp, err := protocol.ParseBinaryCompletion(items)
	if err != nil {
		log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot parse binary completion")
		return
	}

	switch comp.ResultKind {
	case protocol.ResultError:
		msg, _ := comp.Payload.(string)
		log.Error().Str("invocationId", s.invocationID).Str("error", msg).Msg("invocation completed with error")
		s.completer.Cancel()
	case protocol.ResultVoid:
		var zero T
		s.completer.Complete(zero)
	case protocol.ResultValue:
		if !comp.HasPayload {
			s.completer.Cancel()
			return
		}
		value, err := protocol.ValueToType[T](comp.Payload)
		if err != nil {
			log.Error().Str("invocationId", s.invocationID).Err(err).Msg("cannot decode binary completion result")
			s.completer.Cancel()
			return
		}
		s.completer.Complete(value)
	default:
		log.Error().Str("invocationId", s.invocationID).Uint8("resultKind", uint8(comp.ResultKind)).Msg("unknown result kind")
	}
}

func (s *singleInvocation[T]) isCompleted() bool {
	return s.completed
}

func (s *singleInvocation[T]) dispose() {
	s.completed = true
	s.completer.Cancel()
}
