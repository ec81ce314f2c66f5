package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/go-signalr/signalr/completer"
	"github.com/go-signalr/signalr/protocol"
)

// Registry correlates message ids with in-flight invocations/streams and
// target names with registered callbacks, and dispatches every inbound
// message parsed off the transport's receive loop to the right pending
// operation.
//
// The callbacks and pending tables are guarded by a single mutex; the
// invocation-id counter is advanced atomically. The mutex is never held while invoking a user
// callback, so a callback is free to call back into the client without
// deadlocking the registry.
type Registry struct {
	mu        sync.Mutex
	callbacks map[string]*callbackEntry
	pending   map[string]entry
	counter   uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		callbacks: make(map[string]*callbackEntry),
		pending:   make(map[string]entry),
	}
}

// CreateKey generates a fresh, process-lifetime-unique invocation id for
// target, in the form "<target>_<n>". The counter is monotonic across
// reconnects within the life of one Registry.
func (r *Registry) CreateKey(target string) string {
	n := atomic.AddUint64(&r.counter, 1)
	return fmt.Sprintf("%s_%d", target, n)
}

// AddCallback registers fn to receive every inbound Invocation targeting
// target, replacing any callback previously registered for that target.
func (r *Registry) AddCallback(target string, fn func(RawInvocation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[target] = &callbackEntry{target: target, fn: fn}
}

// RemoveCallback unregisters the callback for target, if any.
func (r *Registry) RemoveCallback(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, target)
}

// AddInvocation registers a pending single-result invocation under
// invocationID and returns the consumer half of its completer.
func AddInvocation[T any](r *Registry, invocationID string) *completer.OneShot[T] {
	inv, future := newSingleInvocation[T](invocationID)
	r.mu.Lock()
	r.pending[invocationID] = inv
	r.mu.Unlock()
	return future
}

// AddStream registers a pending server-streaming invocation under
// invocationID and returns the consumer half of its push channel.
func AddStream[T any](r *Registry, invocationID string) *completer.Stream[T] {
	inv, stream := newStreamInvocation[T](invocationID)
	r.mu.Lock()
	r.pending[invocationID] = inv
	r.mu.Unlock()
	return stream
}

// Remove drops the pending entry keyed by id, if present. Safe to call
// more than once.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// CancelAll disposes every pending invocation/stream entry (cancelling
// their completers) without touching registered callbacks. Used across
// a reconnect, where in-flight invocations are not replayed, and on
// explicit disconnect.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]entry)
	r.mu.Unlock()

	for _, p := range pending {
		p.dispose()
	}
}

// ProcessMessage dispatches one already-decoded message to its pending
// operation or callback, per message type. Malformed content or an
// unmatched id is logged and dropped; it is never fatal to the
// connection.
func (r *Registry) ProcessMessage(payload protocol.Payload, msgType protocol.MessageType) error {
	switch msgType {
	case protocol.Invocation:
		return r.dispatchInvocation(payload)
	case protocol.StreamItem:
		return r.dispatchToPending(payload, msgType, r.streamItemID(payload))
	case protocol.Completion:
		return r.dispatchCompletion(payload)
	case protocol.Ping:
		log.Debug().Msg("ping received")
		return nil
	case protocol.Close:
		log.Debug().Msg("close received")
		return nil
	case protocol.StreamInvocation, protocol.CancelInvocation:
		log.Debug().Int("messageType", int(msgType)).Msg("message type not supported by this client")
		return nil
	default:
		log.Debug().Int("messageType", int(msgType)).Msg("unrecognized message type")
		return nil
	}
}

func (r *Registry) streamItemID(payload protocol.Payload) idResult {
	if payload.IsBinary() {
		items, err := protocol.ParseBinaryMessage(payload.Binary)
		if err != nil {
			return idResult{err: err}
		}
		si, err := protocol.ParseBinaryStreamItem(items)
		if err != nil {
			return idResult{err: err}
		}
		return idResult{id: si.InvocationID, ok: true}
	}
	id, err := protocol.SniffInvocationID(payload.Text)
	if err != nil {
		return idResult{err: err}
	}
	return idResult{id: id, ok: id != ""}
}

type idResult struct {
	id  string
	ok  bool
	err error
}

func (r *Registry) dispatchInvocation(payload protocol.Payload) error {
	var target string
	var raw RawInvocation
	if payload.IsBinary() {
		items, err := protocol.ParseBinaryMessage(payload.Binary)
		if err != nil {
			return fmt.Errorf("registry: parse binary invocation: %w", err)
		}
		inv, err := protocol.ParseBinaryInvocation(items)
		if err != nil {
			return fmt.Errorf("registry: parse binary invocation: %w", err)
		}
		target = inv.Target
		raw = RawInvocation{
			Target:       inv.Target,
			InvocationID: inv.InvocationID,
			HasID:        inv.HasID,
			Arguments:    decodeBinaryArgs(inv.Arguments),
			Binary:       true,
		}
	} else {
		inv, err := protocol.ParseInvocation(payload.Text)
		if err != nil {
			return fmt.Errorf("registry: parse invocation: %w", err)
		}
		target = inv.Target
		raw = RawInvocation{
			Target:       inv.Target,
			InvocationID: inv.InvocationID,
			HasID:        inv.InvocationID != "",
			Arguments:    inv.Arguments,
		}
	}

	r.mu.Lock()
	cb, ok := r.callbacks[target]
	r.mu.Unlock()
	if !ok {
		log.Debug().Str("target", target).Msg("no callback registered for target, dropping invocation")
		return nil
	}
	cb.dispatch(raw)
	return nil
}

func decodeBinaryArgs(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func (r *Registry) dispatchToPending(payload protocol.Payload, msgType protocol.MessageType, idr idResult) error {
	if idr.err != nil {
		return fmt.Errorf("registry: extract invocation id: %w", idr.err)
	}
	if !idr.ok {
		log.Debug().Msg("message carries no invocation id, dropping")
		return nil
	}

	r.mu.Lock()
	e, ok := r.pending[idr.id]
	r.mu.Unlock()
	if !ok {
		log.Debug().Str("invocationId", idr.id).Msg("no pending operation for id, dropping")
		return nil
	}
	e.updateWith(payload, msgType)
	return nil
}

func (r *Registry) dispatchCompletion(payload protocol.Payload) error {
	var id string
	if payload.IsBinary() {
		items, err := protocol.ParseBinaryMessage(payload.Binary)
		if err != nil {
			return fmt.Errorf("registry: parse binary completion: %w", err)
		}
		comp, err := protocol.ParseBinaryCompletion(items)
		if err != nil {
			return fmt.Errorf("registry: parse binary completion: %w", err)
		}
		id = comp.InvocationID
	} else {
		sniffed, err := protocol.SniffInvocationID(payload.Text)
		if err != nil {
			return fmt.Errorf("registry: sniff completion id: %w", err)
		}
		id = sniffed
	}

	if id == "" {
		log.Debug().Msg("completion carries no invocation id, dropping")
		return nil
	}

	r.mu.Lock()
	e, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		log.Debug().Str("invocationId", id).Msg("no pending operation for completion, dropping")
		return nil
	}
	e.updateWith(payload, protocol.Completion)
	return nil
}
