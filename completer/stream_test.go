package completer

import "testing"

func TestStreamPushThenNextFIFO(t *testing.T) {
	s, c := NewStream[int](2)
	c.Push(1)
	c.Push(2)

	v, ok := s.Next()
	if !ok || v != 1 {
		t.Fatalf("Next() = (%d, %v), want (1, true)", v, ok)
	}
	v, ok = s.Next()
	if !ok || v != 2 {
		t.Fatalf("Next() = (%d, %v), want (2, true)", v, ok)
	}
}

func TestStreamCloseEndsAfterDrain(t *testing.T) {
	s, c := NewStream[int](2)
	c.Push(1)
	c.Close()

	v, ok := s.Next()
	if !ok || v != 1 {
		t.Fatalf("Next() = (%d, %v), want (1, true)", v, ok)
	}
	_, ok = s.Next()
	if ok {
		t.Fatal("Next() returned ok=true after the stream was closed and drained")
	}
}

func TestStreamPushAfterCloseIsNoOp(t *testing.T) {
	s, c := NewStream[int](1)
	c.Close()
	c.Push(1) // must not panic on a closed channel send

	_, ok := s.Next()
	if ok {
		t.Fatal("Next() returned ok=true, want the stream to be empty and closed")
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	_, c := NewStream[int](0)
	c.Close()
	c.Close() // must not panic on a double close
}
