// Package registry implements the pending-operation registry: the
// table that correlates outbound invocation/stream ids and registered
// callback targets with inbound messages dispatched off the transport's
// receive loop.
package registry

import "github.com/go-signalr/signalr/protocol"

// RawInvocation is a server-initiated Invocation, already parsed off the
// wire but not yet decoded into application argument types. It is the
// boundary type between registry (protocol-aware, application-type-
// agnostic) and client (application-type-aware).
type RawInvocation struct {
	Target       string
	InvocationID string
	HasID        bool
	Arguments    []interface{}
	Binary       bool
}

// entry is the capability set the registry needs from a pending
// operation without knowing its concrete result type. This is the type
// erasure strategy described by the registry's design: the concrete
// generic parameter lives in the entry itself, never in the registry.
type entry interface {
	updateWith(payload protocol.Payload, msgType protocol.MessageType)
	isCompleted() bool
	dispose()
}

// callbackEntry additionally exposes its target's raw dispatch path,
// kept distinct from entry because a callback never completes and is
// dispatched on Invocation only.
type callbackEntry struct {
	target string
	fn     func(RawInvocation)
}

func (c *callbackEntry) dispatch(inv RawInvocation) {
	c.fn(inv)
}
