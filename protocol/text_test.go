package protocol

import "testing"

func TestSplitTextFrameTwoPings(t *testing.T) {
	frame := []byte("{\"type\":6}\x1E{\"type\":6}\x1E")
	parts := SplitTextFrame(frame)
	if len(parts) != 2 {
		t.Fatalf("SplitTextFrame got %d parts, want 2", len(parts))
	}
	for _, p := range parts {
		mt, err := SniffType(p)
		if err != nil {
			t.Fatalf("SniffType error: %v", err)
		}
		if mt != Ping {
			t.Errorf("SniffType = %v, want Ping", mt)
		}
	}
}

func TestSplitTextFrameDiscardsEmpty(t *testing.T) {
	frame := []byte("\x1E{\"type\":6}\x1E\x1E")
	parts := SplitTextFrame(frame)
	if len(parts) != 1 {
		t.Fatalf("SplitTextFrame got %d parts, want 1", len(parts))
	}
}

func TestEncodeTextAppendsRecordSeparator(t *testing.T) {
	data, err := EncodeText(&PingMessage{Type: Ping})
	if err != nil {
		t.Fatalf("EncodeText error: %v", err)
	}
	if data[len(data)-1] != RecordSeparator {
		t.Fatalf("EncodeText does not terminate with record separator: %x", data)
	}
}

func TestParseCompletionVoid(t *testing.T) {
	c, err := ParseCompletion(`{"type":3,"invocationId":"1"}`)
	if err != nil {
		t.Fatalf("ParseCompletion error: %v", err)
	}
	if c.IsError() {
		t.Errorf("void completion reported as error")
	}
	if c.Result != nil {
		t.Errorf("void completion has non-nil result: %v", c.Result)
	}
}

func TestParseCompletionError(t *testing.T) {
	c, err := ParseCompletion(`{"type":3,"invocationId":"1","error":"boom"}`)
	if err != nil {
		t.Fatalf("ParseCompletion error: %v", err)
	}
	if !c.IsError() || c.Error != "boom" {
		t.Errorf("error completion parsed incorrectly: %+v", c)
	}
}
