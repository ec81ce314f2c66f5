package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/go-signalr/signalr/internal/caseconv"
)

// ReadMessageType reads the message type from the first element of a
// MessagePack array payload.
func ReadMessageType(data []byte) (MessageType, error) {
	var items []interface{}
	if err := msgpack.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("protocol: not a MessagePack array: %w", err)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("protocol: empty MessagePack array")
	}
	n, err := toInt64(items[0])
	if err != nil {
		return 0, fmt.Errorf("protocol: cannot read message type: %w", err)
	}
	return MessageType(n), nil
}

// ParseBinaryMessage unmarshals a single unframed MessagePack payload
// into its canonical array-of-values form.
func ParseBinaryMessage(data []byte) ([]interface{}, error) {
	var items []interface{}
	if err := msgpack.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("protocol: parse MessagePack message: %w", err)
	}
	return items, nil
}

// BinaryInvocation is a parsed binary-mode Invocation/StreamInvocation.
type BinaryInvocation struct {
	InvocationID string
	HasID        bool
	Target       string
	Arguments    []interface{}
}

// ParseBinaryInvocation parses the [Type, Headers, InvocationId?,
// Target, Arguments, StreamIds] layout. The array must carry at least 5
// elements (a trailing StreamIds array may be omitted by lenient
// senders, but never by this implementation's own encoder).
func ParseBinaryInvocation(items []interface{}) (*BinaryInvocation, error) {
	if len(items) < 5 {
		return nil, fmt.Errorf("protocol: invocation array too short: %d", len(items))
	}
	inv := &BinaryInvocation{}
	if id, ok := items[2].(string); ok {
		inv.InvocationID = id
		inv.HasID = true
	} else if items[2] != nil {
		return nil, fmt.Errorf("protocol: invalid invocation id type")
	}
	target, ok := items[3].(string)
	if !ok {
		return nil, fmt.Errorf("protocol: invalid target")
	}
	inv.Target = target
	args, ok := items[4].([]interface{})
	if !ok {
		return nil, fmt.Errorf("protocol: invalid arguments")
	}
	inv.Arguments = args
	return inv, nil
}

// BinaryCompletion is a parsed binary-mode Completion.
type BinaryCompletion struct {
	InvocationID string
	ResultKind   ResultKind
	Payload      interface{}
	HasPayload   bool
}

// ParseBinaryCompletion parses the [3, Headers, InvocationId, ResultKind,
// Result?] layout.
func ParseBinaryCompletion(items []interface{}) (*BinaryCompletion, error) {
	if len(items) < 4 {
		return nil, fmt.Errorf("protocol: completion array too short")
	}
	id, ok := items[2].(string)
	if !ok {
		return nil, fmt.Errorf("protocol: invalid invocation id")
	}
	kind, err := toInt64(items[3])
	if err != nil {
		return nil, fmt.Errorf("protocol: invalid result kind: %w", err)
	}
	c := &BinaryCompletion{InvocationID: id, ResultKind: ResultKind(kind)}
	if len(items) > 4 {
		c.Payload = items[4]
		c.HasPayload = true
	}
	return c, nil
}

// BinaryStreamItem is a parsed binary-mode StreamItem.
type BinaryStreamItem struct {
	InvocationID string
	Item         interface{}
}

// ParseBinaryStreamItem parses the [2, Headers, InvocationId, Item]
// layout.
func ParseBinaryStreamItem(items []interface{}) (*BinaryStreamItem, error) {
	if len(items) < 4 {
		return nil, fmt.Errorf("protocol: stream item array too short")
	}
	id, ok := items[2].(string)
	if !ok {
		return nil, fmt.Errorf("protocol: invalid invocation id")
	}
	return &BinaryStreamItem{InvocationID: id, Item: items[3]}, nil
}

// EncodeBinaryInvocation encodes an Invocation (type 1) or
// StreamInvocation (type 4) in the 6-element canonical layout:
// [Type, Headers, InvocationId?, Target, Arguments, StreamIds].
func EncodeBinaryInvocation(msgType MessageType, invocationID string, hasID bool, target string, arguments []interface{}, streamIDs []string) ([]byte, error) {
	var idField interface{}
	if hasID {
		idField = invocationID
	}
	ids := make([]interface{}, len(streamIDs))
	for i, id := range streamIDs {
		ids[i] = id
	}
	args := arguments
	if args == nil {
		args = []interface{}{}
	}
	payload := []interface{}{
		int(msgType),
		map[string]interface{}{},
		idField,
		target,
		args,
		ids,
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode binary invocation: %w", err)
	}
	return data, nil
}

// EncodeBinaryCompletion encodes a Completion message (type 3) in the
// canonical [3, Headers, InvocationId, ResultKind, Result?] layout.
func EncodeBinaryCompletion(invocationID string, kind ResultKind, result interface{}) ([]byte, error) {
	payload := []interface{}{int(Completion), map[string]interface{}{}, invocationID, int(kind)}
	if kind != ResultVoid {
		payload = append(payload, result)
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode binary completion: %w", err)
	}
	return data, nil
}

// ApplyOutboundCase recursively uppercases the first letter of every map
// key in value, for servers whose binary contract expects PascalCase
// field names.
func ApplyOutboundCase(value interface{}) interface{} {
	return caseconv.ToPascalTree(value)
}

// toInt64 widens any MessagePack-decoded integer type to int64.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// msgpackValueToJSON recursively converts a value produced by the
// generic MessagePack decoder into a form encoding/json accepts,
// turning binary blobs into base64 strings the way the wire layer's
// reference implementation does.
func msgpackValueToJSON(v interface{}) interface{} {
	switch tv := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(tv)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			out[k] = msgpackValueToJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, val := range tv {
			out[i] = msgpackValueToJSON(val)
		}
		return out
	default:
		return v
	}
}

// positionalToMap maps an array's elements onto the exported fields of
// T, in struct declaration order, producing a map keyed by each field's
// JSON name. This supports decoding the .NET StandardResolver's
// positional array encoding into an otherwise map-shaped Go type.
func positionalToMap(items []interface{}, t reflect.Type) (map[string]interface{}, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("protocol: cannot map array onto non-struct type %s", t)
	}
	out := make(map[string]interface{})
	idx := 0
	for i := 0; i < t.NumField() && idx < len(items); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := jsonFieldName(f)
		if name == "-" {
			continue
		}
		out[name] = items[idx]
		idx++
	}
	return out, nil
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return caseconv.ToCamel(f.Name)
	}
	name := tag
	for i, c := range tag {
		if c == ',' {
			name = tag[:i]
			break
		}
	}
	if name == "" {
		return caseconv.ToCamel(f.Name)
	}
	return name
}

// ValueToType decodes a generic MessagePack value (as produced by
// ParseBinaryMessage / ParseBinaryCompletion / ParseBinaryStreamItem)
// into T with a single decode. If the value is an array and T is a
// struct, elements are mapped positionally onto T's fields (.NET
// StandardResolver style); if it is a map, keys are normalized from
// PascalCase to camelCase before decoding (.NET ContractlessResolver
// style), matching the target serializer's natural field names. Any
// other value, or an array when T is not a struct, is decoded as is.
func ValueToType[T any](v interface{}) (T, error) {
	var zero T
	jsonVal := msgpackValueToJSON(v)

	switch tv := jsonVal.(type) {
	case []interface{}:
		var t T
		mapped, err := positionalToMap(tv, reflect.TypeOf(t))
		if err == nil {
			jsonVal = mapped
		}
	case map[string]interface{}:
		jsonVal = caseconv.ToCamelTree(tv)
	}

	data, err := json.Marshal(jsonVal)
	if err != nil {
		return zero, fmt.Errorf("protocol: re-encode MessagePack value: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("protocol: decode MessagePack value into %T: %w", out, err)
	}
	return out, nil
}
