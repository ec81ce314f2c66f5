// Package signalr is a SignalR hub client over WebSockets, supporting
// both the JSON text and length-prefixed MessagePack binary wire
// protocols. The bulk of the implementation lives in this module's
// sub-packages (client, transport, negotiate, protocol, registry,
// reconnect, completer); this file re-exports the names most callers
// need so `import "github.com/go-signalr/signalr"` is enough for the
// common case.
package signalr

import (
	"context"

	"github.com/go-signalr/signalr/client"
	"github.com/go-signalr/signalr/completer"
	"github.com/go-signalr/signalr/reconnect"
)

// EnumerationStream is the consumer half of a server-streaming
// invocation: repeated Next() calls yield items until the stream
// completes.
type EnumerationStream[T any] = completer.Stream[T]

// Client connects to one hub and lets callers invoke its methods,
// send fire-and-forget messages, consume server streams, and
// register callbacks for server-to-client invocations.
type Client = client.Client

// Config holds resolved connection properties; build one with Option
// values passed to ConnectWith.
type Config = client.Config

// Option configures a Config.
type Option = client.Option

// InvocationContext wraps one inbound invocation delivered to a
// registered callback.
type InvocationContext = client.InvocationContext

// DisconnectionHandler is notified when the transport is lost and
// takes over manual reconnection.
type DisconnectionHandler = client.DisconnectionHandler

// ReconnectionHandler drives manual reconnection from within a
// DisconnectionHandler.
type ReconnectionHandler = client.ReconnectionHandler

// Connect negotiates and opens a connection to hub on host using the
// default configuration (secure, JSON protocol, no reconnection).
func Connect(ctx context.Context, host, hub string) (*Client, error) {
	return client.Connect(ctx, host, hub)
}

// ConnectWith negotiates and opens a connection to hub on host,
// applying opts to the connection configuration.
func ConnectWith(ctx context.Context, host, hub string, opts ...Option) (*Client, error) {
	return client.ConnectWith(ctx, host, hub, opts...)
}

// WithPort pins the connection to a specific port instead of the
// scheme default.
func WithPort(port int) Option { return client.WithPort(port) }

// WithSecure forces https/wss. This is the default.
func WithSecure() Option { return client.WithSecure() }

// WithInsecure uses http/ws instead of https/wss.
func WithInsecure() Option { return client.WithInsecure() }

// WithBasicAuthentication sends HTTP Basic credentials with the
// negotiate request and the subsequent WebSocket upgrade.
func WithBasicAuthentication(user, password string) Option {
	return client.WithBasicAuthentication(user, password)
}

// WithBearerAuthentication sends a bearer token with the negotiate
// request and the subsequent WebSocket upgrade.
func WithBearerAuthentication(token string) Option {
	return client.WithBearerAuthentication(token)
}

// WithMessagePackProtocol requests the length-prefixed MessagePack
// wire protocol instead of the default JSON text protocol.
func WithMessagePackProtocol() Option { return client.WithMessagePackProtocol() }

// WithDisconnectionHandler installs h and switches the client to
// manual reconnection mode.
func WithDisconnectionHandler(h DisconnectionHandler) Option {
	return client.WithDisconnectionHandler(h)
}

// WithReconnectionPolicy sets the backoff policy used for automatic
// reconnection when no DisconnectionHandler is configured. Defaults
// to reconnect.None{} (never reconnect).
func WithReconnectionPolicy(p reconnect.Policy) Option {
	return client.WithReconnectionPolicy(p)
}

// Invoke calls target on the hub with no arguments and waits for its
// result.
func Invoke[T any](ctx context.Context, c *Client, target string) (T, error) {
	return client.Invoke[T](ctx, c, target)
}

// InvokeWithArgs calls target on the hub with arguments and waits for
// its result.
func InvokeWithArgs[T any](ctx context.Context, c *Client, target string, arguments []interface{}) (T, error) {
	return client.InvokeWithArgs[T](ctx, c, target, arguments)
}

// Enumerate calls target on the hub with no arguments and returns a
// stream of its server-streamed results.
func Enumerate[T any](c *Client, target string) (*EnumerationStream[T], error) {
	return client.Enumerate[T](c, target)
}

// EnumerateWithArgs calls target on the hub with arguments and
// returns a stream of its server-streamed results.
func EnumerateWithArgs[T any](c *Client, target string, arguments []interface{}) (*EnumerationStream[T], error) {
	return client.EnumerateWithArgs[T](c, target, arguments)
}

// Argument decodes the invocation argument at index into T.
func Argument[T any](ctx InvocationContext, index int) (T, error) {
	return client.Argument[T](ctx, index)
}
