package protocol

import "fmt"

// maxVarintBytes is the maximum length of a LEB128 length prefix the
// binary protocol permits.
const maxVarintBytes = 5

// EncodeVarint encodes value as a LEB128 variable-length unsigned
// integer: 7 payload bits per byte, continuation bit set on all but the
// final byte, little-endian.
func EncodeVarint(value uint64) []byte {
	buf := make([]byte, 0, maxVarintBytes)
	for {
		b := byte(value & 0x7F)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if value == 0 {
			break
		}
	}
	return buf
}

// DecodeVarint decodes a LEB128 prefix from data, returning the decoded
// value and the number of bytes consumed. The prefix must not exceed 5
// bytes.
func DecodeVarint(data []byte) (value uint64, consumed int, err error) {
	var shift uint
	for i, b := range data {
		if i >= maxVarintBytes {
			return 0, 0, fmt.Errorf("protocol: varint prefix exceeds %d bytes", maxVarintBytes)
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("protocol: truncated varint prefix")
}

// FrameMessage prepends a varint length prefix to payload, producing one
// length-prefixed binary frame.
func FrameMessage(payload []byte) []byte {
	prefix := EncodeVarint(uint64(len(payload)))
	framed := make([]byte, 0, len(prefix)+len(payload))
	framed = append(framed, prefix...)
	framed = append(framed, payload...)
	return framed
}

// SplitFramedMessages decodes zero or more concatenated length-prefixed
// messages out of a binary transport frame.
func SplitFramedMessages(data []byte) ([][]byte, error) {
	var messages [][]byte
	offset := 0
	for offset < len(data) {
		length, consumed, err := DecodeVarint(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("protocol: decode frame prefix at offset %d: %w", offset, err)
		}
		offset += consumed
		end := offset + int(length)
		if end > len(data) {
			return nil, fmt.Errorf("protocol: incomplete message in frame (need %d more bytes)", end-len(data))
		}
		messages = append(messages, data[offset:end])
		offset = end
	}
	return messages, nil
}

// EncodePing returns the literal two-byte MessagePack ping payload.
func EncodePing() []byte {
	return []byte{0x91, 0x06}
}
