package protocol

import (
	"bytes"
	"testing"
)

func TestVarintRoundtrip(t *testing.T) {
	values := []uint64{0, 1, 53, 127, 128, 5248, 16384, 2147483647}
	for _, v := range values {
		encoded := EncodeVarint(v)
		decoded, consumed, err := DecodeVarint(encoded)
		if err != nil {
			t.Fatalf("DecodeVarint(%d) error: %v", v, err)
		}
		if decoded != v {
			t.Errorf("DecodeVarint roundtrip: got %d, want %d", decoded, v)
		}
		if consumed != len(encoded) {
			t.Errorf("DecodeVarint consumed: got %d, want %d", consumed, len(encoded))
		}
	}
}

func TestVarintKnownValues(t *testing.T) {
	if got := EncodeVarint(53); !bytes.Equal(got, []byte{0x35}) {
		t.Errorf("EncodeVarint(53) = %x, want 35", got)
	}
	if got := EncodeVarint(5248); !bytes.Equal(got, []byte{0x80, 0x29}) {
		t.Errorf("EncodeVarint(5248) = %x, want 8029", got)
	}
}

func TestFrameSplitRoundtrip(t *testing.T) {
	msg1 := []byte{0x91, 0x06}
	msg2 := []byte{0x92, 0x01, 0x80}

	framed := append(FrameMessage(msg1), FrameMessage(msg2)...)

	messages, err := SplitFramedMessages(framed)
	if err != nil {
		t.Fatalf("SplitFramedMessages error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("SplitFramedMessages got %d messages, want 2", len(messages))
	}
	if !bytes.Equal(messages[0], msg1) {
		t.Errorf("message 0 = %x, want %x", messages[0], msg1)
	}
	if !bytes.Equal(messages[1], msg2) {
		t.Errorf("message 1 = %x, want %x", messages[1], msg2)
	}
}

func TestPingEncoding(t *testing.T) {
	ping := EncodePing()
	if !bytes.Equal(ping, []byte{0x91, 0x06}) {
		t.Fatalf("EncodePing() = %x, want 9106", ping)
	}
	mt, err := ReadMessageType(ping)
	if err != nil {
		t.Fatalf("ReadMessageType error: %v", err)
	}
	if mt != Ping {
		t.Errorf("ReadMessageType = %v, want Ping", mt)
	}
}

func TestVarintTooLong(t *testing.T) {
	// 5 continuation bytes then an implied 6th: invalid.
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	if _, _, err := DecodeVarint(data); err == nil {
		t.Fatalf("DecodeVarint accepted a 6-byte prefix")
	}
}
