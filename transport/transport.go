// Package transport wraps a negotiated WebSocket connection with the
// SignalR handshake and the dual text/binary wire codec, and runs the
// receive loop that feeds decoded messages into a registry.
package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/go-signalr/signalr/protocol"
	"github.com/go-signalr/signalr/registry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LossHook is invoked from the receive loop goroutine the moment the
// underlying connection is found to be gone. It never fires more than
// once per Transport, and never after Close.
type LossHook func(reason error)

// Transport holds one negotiated WebSocket connection, the record
// protocol it was promoted to after a successful handshake, and the
// goroutine reading frames off it. A fresh handshake happens once,
// during Dial; after that, the protocol mode never changes for the
// life of the Transport — reconnecting builds a new Transport instead
// of mutating this one.
type Transport struct {
	conn   *websocket.Conn
	binary bool // true once promoted to MessagePack framing

	sinkMu sync.Mutex // serializes writes to conn

	stateMu sync.Mutex
	state   State

	lossOnce sync.Once
	lossHook LossHook
}

// Dial opens conn, performs the JSON-text SignalR handshake
// (requesting messagepack when binary is true), and on success
// promotes the Transport to the negotiated mode. The handshake itself
// is always JSON text per protocol, regardless of the eventual mode.
func Dial(conn *websocket.Conn, binary bool) (*Transport, error) {
	t := &Transport{conn: conn, binary: binary, state: Connected()}

	protocolName := "json"
	if binary {
		protocolName = "messagepack"
	}
	req := protocol.HandshakeRequest{Protocol: protocolName, Version: 1}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transport: encode handshake: %w", err)
	}
	body = append(body, protocol.RecordSeparator)

	if err := t.writeRaw(websocket.TextMessage, body); err != nil {
		return nil, fmt.Errorf("transport: send handshake: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: read handshake response: %w", err)
	}
	frames := protocol.SplitTextFrame(raw)
	if len(frames) == 0 {
		return nil, fmt.Errorf("transport: empty handshake response")
	}
	var resp protocol.HandshakeResponse
	if err := json.Unmarshal([]byte(frames[0]), &resp); err != nil {
		return nil, fmt.Errorf("transport: decode handshake response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("transport: handshake rejected: %s", resp.Error)
	}

	return t, nil
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

func (t *Transport) setState(s State) {
	t.stateMu.Lock()
	t.state = s
	t.stateMu.Unlock()
}

// OnLoss registers the hook to invoke exactly once when the receive
// loop observes the connection is gone. Call before Listen.
func (t *Transport) OnLoss(hook LossHook) {
	t.lossHook = hook
}

// Send writes one already-encoded and already-framed message as a
// binary WebSocket message in binary mode, or a text WebSocket message
// otherwise. Send adds no framing of its own: callers pass
// protocol.EncodeText output (record-separator-terminated JSON) in
// text mode, and protocol.FrameMessage output (length-prefixed
// MessagePack, e.g. from protocol.EncodeBinaryInvocation) in binary
// mode.
func (t *Transport) Send(frame []byte) error {
	if !t.State().IsConnected() {
		return fmt.Errorf("transport: %s", t.State())
	}
	msgType := websocket.TextMessage
	if t.binary {
		msgType = websocket.BinaryMessage
	}
	return t.writeRaw(msgType, frame)
}

// SendPing writes a protocol-level keepalive ping in the negotiated
// mode.
func (t *Transport) SendPing() error {
	if t.binary {
		return t.Send(protocol.FrameMessage(protocol.EncodePing()))
	}
	body, err := json.Marshal(protocol.PingMessage{Type: protocol.Ping})
	if err != nil {
		return err
	}
	return t.Send(append(body, protocol.RecordSeparator))
}

func (t *Transport) writeRaw(msgType int, body []byte) error {
	t.sinkMu.Lock()
	defer t.sinkMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(msgType, body)
}

// Listen runs the receive loop until the connection closes or errors,
// dispatching every decoded message into reg. It returns once the
// loop exits, after invoking the loss hook once unless Close was
// called first. Run it in its own goroutine.
func (t *Transport) Listen(reg *registry.Registry) {
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			t.reportLoss(err)
			return
		}

		if t.binary {
			frames, err := protocol.SplitFramedMessages(raw)
			if err != nil {
				log.Error().Err(err).Msg("transport: cannot split binary frame")
				continue
			}
			for _, f := range frames {
				t.dispatchBinary(reg, f)
			}
			continue
		}

		for _, body := range protocol.SplitTextFrame(raw) {
			t.dispatchText(reg, body)
		}
	}
}

func (t *Transport) dispatchBinary(reg *registry.Registry, body []byte) {
	msgType, err := protocol.ReadMessageType(body)
	if err != nil {
		log.Error().Err(err).Msg("transport: cannot read binary message type")
		return
	}
	payload := protocol.BinaryPayload(body)
	if err := reg.ProcessMessage(payload, msgType); err != nil {
		log.Error().Err(err).Msg("transport: error processing binary message")
	}
}

func (t *Transport) dispatchText(reg *registry.Registry, body string) {
	msgType, err := protocol.SniffType(body)
	if err != nil {
		log.Error().Err(err).Str("body", body).Msg("transport: cannot sniff message type")
		return
	}
	payload := protocol.TextPayload(body)
	if err := reg.ProcessMessage(payload, msgType); err != nil {
		log.Error().Err(err).Msg("transport: error processing text message")
	}
}

func (t *Transport) reportLoss(reason error) {
	if t.State().Reason() == LocalClosed {
		return // Close already made this terminal; don't clobber it with RemoteClosed
	}
	t.setState(NotConnected(RemoteClosed))
	t.lossOnce.Do(func() {
		if t.lossHook != nil {
			t.lossHook(reason)
		}
	})
}

// Close sends a close frame and closes the underlying connection,
// marking the transport LocalClosed so no loss hook fires for it.
func (t *Transport) Close() error {
	t.setState(NotConnected(LocalClosed))
	t.lossOnce.Do(func() {}) // suppress any future loss hook firing for this transport
	t.sinkMu.Lock()
	defer t.sinkMu.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return t.conn.Close()
}
