package registry

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-signalr/signalr/protocol"
)

type testEntity struct {
	Text   string `json:"text"`
	Number int    `json:"number"`
}

func TestCreateKeyMonotonicAndUnique(t *testing.T) {
	r := New()
	seen := make(map[string]bool)
	var prev uint64
	for i := 0; i < 50; i++ {
		key := r.CreateKey("Target")
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
		n, err := strconv.ParseUint(strings.TrimPrefix(key, "Target_"), 10, 64)
		if err != nil {
			t.Fatalf("key %q has no numeric suffix: %v", key, err)
		}
		if n <= prev {
			t.Fatalf("key %q does not increase past previous suffix %d", key, prev)
		}
		prev = n
	}
}

func TestInvocationCompletionRemovesEntryOnce(t *testing.T) {
	r := New()
	id := r.CreateKey("SingleEntity")
	future := AddInvocation[testEntity](r, id)

	payload := protocol.TextPayload(`{"type":3,"invocationId":"` + id + `","result":{"text":"test","number":7}}`)
	if err := r.ProcessMessage(payload, protocol.Completion); err != nil {
		t.Fatalf("ProcessMessage error: %v", err)
	}

	r.mu.Lock()
	_, stillPending := r.pending[id]
	r.mu.Unlock()
	if stillPending {
		t.Fatalf("pending entry for %s was not removed after completion", id)
	}

	type result struct {
		value testEntity
		ok    bool
	}
	resultCh := make(chan result, 1)
	go func() {
		v, ok := future.Wait()
		resultCh <- result{v, ok}
	}()

	select {
	case res := <-resultCh:
		if !res.ok {
			t.Fatalf("future was cancelled, want a value")
		}
		if res.value.Text != "test" || res.value.Number != 7 {
			t.Errorf("value = %+v, want {test 7}", res.value)
		}
	case <-time.After(time.Second):
		t.Fatal("future did not complete")
	}
}

func TestCallbackFiresPerInvocation(t *testing.T) {
	r := New()
	count := 0
	done := make(chan struct{}, 1)
	r.AddCallback("callback1", func(inv RawInvocation) {
		count++
		done <- struct{}{}
	})

	payload := protocol.TextPayload(`{"type":1,"target":"callback1","arguments":[{"text":"x","number":1}]}`)
	if err := r.ProcessMessage(payload, protocol.Invocation); err != nil {
		t.Fatalf("ProcessMessage error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire")
	}
	if count != 1 {
		t.Errorf("callback fired %d times, want 1", count)
	}
}

func TestCallbackDroppedWhenTargetUnregistered(t *testing.T) {
	r := New()
	payload := protocol.TextPayload(`{"type":1,"target":"nobody","arguments":[]}`)
	if err := r.ProcessMessage(payload, protocol.Invocation); err != nil {
		t.Fatalf("ProcessMessage error: %v", err)
	}
}

func TestStreamItemsThenCompletionClosesStream(t *testing.T) {
	r := New()
	id := r.CreateKey("HundredEntities")
	stream := AddStream[testEntity](r, id)

	for i := 0; i < 3; i++ {
		item := protocol.TextPayload(`{"type":2,"invocationId":"` + id + `","item":{"text":"a","number":1}}`)
		if err := r.ProcessMessage(item, protocol.StreamItem); err != nil {
			t.Fatalf("ProcessMessage(StreamItem) error: %v", err)
		}
	}
	comp := protocol.TextPayload(`{"type":3,"invocationId":"` + id + `"}`)
	if err := r.ProcessMessage(comp, protocol.Completion); err != nil {
		t.Fatalf("ProcessMessage(Completion) error: %v", err)
	}

	got := 0
	for {
		_, ok := stream.Next()
		if !ok {
			break
		}
		got++
	}
	if got != 3 {
		t.Errorf("received %d items, want 3", got)
	}
}

func TestCancelAllCancelsPendingButKeepsCallbacks(t *testing.T) {
	r := New()
	id := r.CreateKey("SingleEntity")
	future := AddInvocation[testEntity](r, id)

	fired := false
	done := make(chan struct{})
	r.AddCallback("cb", func(inv RawInvocation) { fired = true; close(done) })

	r.CancelAll()

	_, ok := future.Wait()
	if ok {
		t.Fatalf("expected cancelled future, got a value")
	}

	payload := protocol.TextPayload(`{"type":1,"target":"cb","arguments":[]}`)
	if err := r.ProcessMessage(payload, protocol.Invocation); err != nil {
		t.Fatalf("ProcessMessage error: %v", err)
	}
	<-done
	if !fired {
		t.Errorf("callback should have survived CancelAll")
	}
}
