package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the decoded form of one logical hub protocol message,
// independent of whether it arrived as JSON text or MessagePack binary.
// Exactly one of Text/Binary is meaningful, selected by isBinary.
type Payload struct {
	Text     string
	Binary   []byte
	isBinary bool
}

// TextPayload wraps a JSON text message body.
func TextPayload(body string) Payload { return Payload{Text: body} }

// BinaryPayload wraps a MessagePack message body.
func BinaryPayload(body []byte) Payload { return Payload{Binary: body, isBinary: true} }

// IsBinary reports whether this payload originated from the binary
// protocol.
func (p Payload) IsBinary() bool { return p.isBinary }

// SplitTextFrame splits a transport text frame into individual message
// bodies, discarding the record-separator terminator and any empty
// fragments produced by concatenation.
func SplitTextFrame(frame []byte) []string {
	parts := bytes.Split(frame, []byte{RecordSeparator})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		out = append(out, string(p))
	}
	return out
}

// EncodeText marshals v to JSON and appends the record-separator
// terminator, ready to be written as a single text frame.
func EncodeText(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode text message: %w", err)
	}
	data = append(data, RecordSeparator)
	return data, nil
}

// SniffType extracts the `"type"` field from a JSON text message body
// without committing to a concrete shape.
func SniffType(body string) (MessageType, error) {
	var p possibleMessage
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return 0, fmt.Errorf("protocol: sniff message type: %w", err)
	}
	return p.Type, nil
}

// SniffInvocationID extracts the `"invocationId"` field, used to
// correlate StreamItem/Completion messages with pending operations.
func SniffInvocationID(body string) (string, error) {
	var p possibleMessage
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return "", fmt.Errorf("protocol: sniff invocation id: %w", err)
	}
	return p.InvocationID, nil
}

// ParseInvocation parses a text-mode Invocation message.
func ParseInvocation(body string) (*InvocationMessage, error) {
	var m InvocationMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("protocol: parse invocation: %w", err)
	}
	return &m, nil
}

// ParseStreamItem parses a text-mode StreamItem message. The Item field
// is left as json.RawMessage-equivalent (interface{}) for the caller to
// re-decode into a concrete type.
func ParseStreamItem(body string) (*StreamItemMessage, error) {
	var m StreamItemMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("protocol: parse stream item: %w", err)
	}
	return &m, nil
}

// ParseCompletion parses a text-mode Completion message. Result kind is
// inferred from field presence: Error set -> error, Result absent ->
// void, Result present -> value.
func ParseCompletion(body string) (*CompletionMessage, error) {
	var m CompletionMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("protocol: parse completion: %w", err)
	}
	return &m, nil
}

// DecodeInto re-decodes a raw JSON fragment (e.g. a StreamItem's Item or
// a Completion's Result, both already unmarshaled into interface{}) into
// a concrete type T via a JSON roundtrip.
func DecodeInto[T any](raw interface{}) (T, error) {
	var zero T
	data, err := json.Marshal(raw)
	if err != nil {
		return zero, fmt.Errorf("protocol: re-encode value: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("protocol: decode value: %w", err)
	}
	return out, nil
}
