// Package client is the public façade: connect to a hub, invoke its
// methods, register callbacks for server-initiated invocations, and
// manage reconnection.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/go-signalr/signalr/completer"
	"github.com/go-signalr/signalr/negotiate"
	"github.com/go-signalr/signalr/protocol"
	"github.com/go-signalr/signalr/reconnect"
	"github.com/go-signalr/signalr/registry"
	"github.com/go-signalr/signalr/transport"
)

// ReconnectionHandler is handed to a DisconnectionHandler so it can
// drive reconnection manually after a drop.
type ReconnectionHandler struct {
	client   *Client
	endpoint string
}

// Reconnect attempts a single reconnection to the original endpoint.
func (h *ReconnectionHandler) Reconnect(ctx context.Context) error {
	return h.client.reconnectOnce(ctx)
}

// ReconnectWithPolicy retries reconnection using the client's
// configured reconnect.Policy until it succeeds or the policy gives
// up.
func (h *ReconnectionHandler) ReconnectWithPolicy(ctx context.Context) error {
	policy := h.client.cfg.reconnectionPolicy
	if policy == nil {
		policy = reconnect.None{}
	}
	ctrl := reconnect.NewController(func() error {
		err := h.client.reconnectOnce(ctx)
		if err != nil && h.client.isLocallyClosed() {
			return reconnect.ErrLocallyDisconnected
		}
		return err
	}, policy)
	return ctrl.RunWithPolicy()
}

// IsConnected reports whether the client currently holds a live
// transport.
func (h *ReconnectionHandler) IsConnected() bool { return h.client.IsConnected() }

// Endpoint is the hub's negotiated socket URL.
func (h *ReconnectionHandler) Endpoint() string { return h.endpoint }

// Client connects to one SignalR hub over WebSockets and lets
// callers invoke hub methods, send fire-and-forget messages, consume
// server streams, and register callbacks for server-to-client
// invocations. A Client is safe for concurrent use and may be passed
// to goroutines freely; InvocationContext callbacks receive a Client
// referencing the same underlying connection.
type Client struct {
	negotiateCfg negotiate.Config
	cfg          Config

	reg *registry.Registry

	connMu    sync.RWMutex
	tr        *transport.Transport
	localDone bool // set once Disconnect is called; reconnection never resumes after
}

// Connect negotiates and opens a connection to hub on host using the
// default configuration (secure, JSON protocol, no reconnection).
func Connect(ctx context.Context, host, hub string) (*Client, error) {
	return ConnectWith(ctx, host, hub)
}

// ConnectWith negotiates and opens a connection to hub on host,
// applying opts to the connection configuration.
func ConnectWith(ctx context.Context, host, hub string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		reg: registry.New(),
		negotiateCfg: negotiate.Config{
			Secure:         cfg.secure,
			Host:           host,
			Port:           cfg.port,
			Hub:            hub,
			Authentication: cfg.authentication,
			UseMessagePack: cfg.messagePack,
		},
		cfg: cfg,
	}

	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dial(ctx context.Context) error {
	desc, err := negotiate.Negotiate(ctx, c.negotiateCfg)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}

	header := http.Header{}
	if desc.Authentication != nil {
		desc.Authentication.Apply(header)
	}

	conn, _, err := gorillaws.DefaultDialer.DialContext(ctx, desc.SocketURL, header)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", desc.SocketURL, err)
	}

	tr, err := transport.Dial(conn, desc.Binary)
	if err != nil {
		conn.Close()
		return fmt.Errorf("client: %w", err)
	}

	tr.OnLoss(func(reason error) { c.onTransportLoss(desc.SocketURL, reason) })

	c.connMu.Lock()
	if c.localDone {
		c.connMu.Unlock()
		tr.Close()
		return reconnect.ErrLocallyDisconnected
	}
	c.tr = tr
	c.connMu.Unlock()

	go tr.Listen(c.reg)

	log.Info().Str("endpoint", desc.SocketURL).Msg("client: connected")
	return nil
}

func (c *Client) onTransportLoss(endpoint string, reason error) {
	log.Warn().Err(reason).Msg("client: transport lost")
	c.reg.CancelAll()

	if c.isLocallyClosed() {
		return
	}

	if c.cfg.disconnectionHandler != nil {
		c.cfg.disconnectionHandler.OnDisconnected(&ReconnectionHandler{client: c, endpoint: endpoint})
		return
	}

	policy := c.cfg.reconnectionPolicy
	if policy == nil {
		return
	}
	ctrl := reconnect.NewAutomaticController(func() error {
		err := c.reconnectOnce(context.Background())
		if err != nil && c.isLocallyClosed() {
			return reconnect.ErrLocallyDisconnected
		}
		return err
	}, policy)
	go func() {
		if err := ctrl.RunWithPolicy(); err != nil {
			log.Error().Err(err).Msg("client: automatic reconnection gave up")
		}
	}()
}

func (c *Client) reconnectOnce(ctx context.Context) error {
	if c.isLocallyClosed() {
		return reconnect.ErrLocallyDisconnected
	}
	if c.IsConnected() {
		return nil
	}
	return c.dial(ctx)
}

func (c *Client) isLocallyClosed() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.localDone
}

// IsConnected reports whether the client currently holds a live
// transport.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.tr != nil && c.tr.State().IsConnected()
}

func (c *Client) currentTransport() (*transport.Transport, error) {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	if c.tr == nil || !c.tr.State().IsConnected() {
		return nil, fmt.Errorf("client: not connected")
	}
	return c.tr, nil
}

// Register installs fn as the callback for invocations targeting
// name, replacing any previous registration for that target. Returns
// an unregister function.
func (c *Client) Register(name string, fn func(InvocationContext)) (unregister func()) {
	c.reg.AddCallback(name, func(raw registry.RawInvocation) {
		fn(newInvocationContext(raw, c))
	})
	return func() { c.reg.RemoveCallback(name) }
}

// Invoke calls target on the hub with no arguments and waits for its
// result.
func Invoke[T any](ctx context.Context, c *Client, target string) (T, error) {
	return InvokeWithArgs[T](ctx, c, target, nil)
}

// InvokeWithArgs calls target on the hub with arguments and waits for
// its result.
func InvokeWithArgs[T any](ctx context.Context, c *Client, target string, arguments []interface{}) (T, error) {
	var zero T
	tr, err := c.currentTransport()
	if err != nil {
		return zero, err
	}

	id := c.reg.CreateKey(target)
	future := registry.AddInvocation[T](c.reg, id)

	if err := c.sendInvocation(tr, protocol.Invocation, id, true, target, arguments, nil); err != nil {
		c.reg.Remove(id)
		return zero, err
	}

	select {
	case <-ctx.Done():
		c.reg.Remove(id)
		return zero, ctx.Err()
	default:
	}

	value, ok := waitWithContext(ctx, future)
	if !ok {
		return zero, fmt.Errorf("client: invocation %q was cancelled", target)
	}
	return value, nil
}

func waitWithContext[T any](ctx context.Context, future *completer.OneShot[T]) (T, bool) {
	type result struct {
		value T
		ok    bool
	}
	done := make(chan result, 1)
	go func() {
		v, ok := future.Wait()
		done <- result{v, ok}
	}()

	select {
	case r := <-done:
		return r.value, r.ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Send calls target on the hub with no arguments without waiting for
// a reply.
func (c *Client) Send(target string) error {
	return c.SendWithArgs(target, nil)
}

// SendWithArgs calls target on the hub with arguments without waiting
// for a reply.
func (c *Client) SendWithArgs(target string, arguments []interface{}) error {
	tr, err := c.currentTransport()
	if err != nil {
		return err
	}
	return c.sendInvocation(tr, protocol.Invocation, "", false, target, arguments, nil)
}

// Enumerate calls target on the hub with no arguments and returns a
// Stream of its server-streamed results.
func Enumerate[T any](c *Client, target string) (*completer.Stream[T], error) {
	return EnumerateWithArgs[T](c, target, nil)
}

// EnumerateWithArgs calls target on the hub with arguments and
// returns a Stream of its server-streamed results.
func EnumerateWithArgs[T any](c *Client, target string, arguments []interface{}) (*completer.Stream[T], error) {
	tr, err := c.currentTransport()
	if err != nil {
		return nil, err
	}

	id := c.reg.CreateKey(target)
	stream := registry.AddStream[T](c.reg, id)

	if err := c.sendInvocation(tr, protocol.StreamInvocation, id, true, target, arguments, nil); err != nil {
		c.reg.Remove(id)
		return nil, err
	}
	return stream, nil
}

func (c *Client) sendInvocation(tr *transport.Transport, msgType protocol.MessageType, id string, hasID bool, target string, arguments []interface{}, streamIDs []string) error {
	if arguments == nil {
		arguments = []interface{}{}
	}

	c.connMu.RLock()
	binary := c.tr != nil && c.negotiateCfg.UseMessagePack
	c.connMu.RUnlock()

	if binary {
		frame, err := protocol.EncodeBinaryInvocation(msgType, id, hasID, target, outboundArguments(arguments), streamIDs)
		if err != nil {
			return fmt.Errorf("client: encode invocation: %w", err)
		}
		return tr.Send(protocol.FrameMessage(frame))
	}

	msg := protocol.InvocationMessage{
		Type:      msgType,
		Target:    target,
		Arguments: arguments,
		StreamIDs: streamIDs,
	}
	if hasID {
		msg.InvocationID = id
	}
	body, err := protocol.EncodeText(msg)
	if err != nil {
		return fmt.Errorf("client: encode invocation: %w", err)
	}
	return tr.Send(body)
}

// outboundArguments applies the PascalCase bridge to each argument
// destined for a binary-mode invocation, so a typed Go struct's
// camelCase JSON field names arrive shaped the way a .NET hub expects.
// Arguments are round-tripped through JSON first since the bridge
// operates on generic maps/slices, not arbitrary struct values.
func outboundArguments(arguments []interface{}) []interface{} {
	out := make([]interface{}, len(arguments))
	for i, a := range arguments {
		generic, err := protocol.DecodeInto[interface{}](a)
		if err != nil {
			out[i] = a
			continue
		}
		out[i] = protocol.ApplyOutboundCase(generic)
	}
	return out
}

func (c *Client) sendCompletion(invocationID string, result interface{}, errMsg string) error {
	tr, err := c.currentTransport()
	if err != nil {
		return err
	}

	c.connMu.RLock()
	binary := c.negotiateCfg.UseMessagePack
	c.connMu.RUnlock()

	if binary {
		kind := protocol.ResultValue
		if errMsg != "" {
			kind = protocol.ResultError
			result = errMsg
		} else if result == nil {
			kind = protocol.ResultVoid
		}
		frame, err := protocol.EncodeBinaryCompletion(invocationID, kind, result)
		if err != nil {
			return fmt.Errorf("client: encode completion: %w", err)
		}
		return tr.Send(protocol.FrameMessage(frame))
	}

	msg := protocol.CompletionMessage{Type: protocol.Completion, InvocationID: invocationID, Result: result, Error: errMsg}
	body, err := protocol.EncodeText(msg)
	if err != nil {
		return fmt.Errorf("client: encode completion: %w", err)
	}
	return tr.Send(body)
}

// Disconnect closes the underlying connection and cancels every
// pending invocation. Disconnect never triggers reconnection logic,
// automatic or manual.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	c.localDone = true
	tr := c.tr
	c.connMu.Unlock()

	c.reg.CancelAll()
	if tr == nil {
		return nil
	}
	return tr.Close()
}
