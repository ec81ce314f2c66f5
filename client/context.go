package client

import (
	"fmt"

	"github.com/go-signalr/signalr/protocol"
	"github.com/go-signalr/signalr/registry"
)

// InvocationContext wraps one inbound Invocation delivered to a
// registered callback, alongside a Client usable to call back into
// the hub from within the callback (e.g. to Complete it, or to invoke
// other targets).
type InvocationContext struct {
	raw    registry.RawInvocation
	client *Client
}

func newInvocationContext(raw registry.RawInvocation, c *Client) InvocationContext {
	return InvocationContext{raw: raw, client: c}
}

// Target is the hub method name this invocation addressed.
func (ctx InvocationContext) Target() string { return ctx.raw.Target }

// HasInvocationID reports whether the hub expects a Completion reply.
func (ctx InvocationContext) HasInvocationID() bool { return ctx.raw.HasID }

// Argument decodes the invocation argument at index into T.
func Argument[T any](ctx InvocationContext, index int) (T, error) {
	var zero T
	if index < 0 || index >= len(ctx.raw.Arguments) {
		return zero, fmt.Errorf("client: argument index %d out of range (got %d arguments)", index, len(ctx.raw.Arguments))
	}
	raw := ctx.raw.Arguments[index]
	if ctx.raw.Binary {
		return protocol.ValueToType[T](raw)
	}
	return protocol.DecodeInto[T](raw)
}

// Complete replies to the invocation with a successful result. It is
// a no-op (returning an error) if the invocation carried no
// invocation id, since the hub has nothing to correlate the reply to.
func (ctx InvocationContext) Complete(value interface{}) error {
	if !ctx.raw.HasID {
		return fmt.Errorf("client: invocation %q has no invocation id to complete", ctx.raw.Target)
	}
	return ctx.client.sendCompletion(ctx.raw.InvocationID, value, "")
}

// CompleteWithError replies to the invocation with an error result.
func (ctx InvocationContext) CompleteWithError(message string) error {
	if !ctx.raw.HasID {
		return fmt.Errorf("client: invocation %q has no invocation id to complete", ctx.raw.Target)
	}
	return ctx.client.sendCompletion(ctx.raw.InvocationID, nil, message)
}
