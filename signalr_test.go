package signalr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-signalr/signalr/protocol"
)

var testUpgrader = websocket.Upgrader{}

func TestConnectInvokeAndDisconnect(t *testing.T) {
	type entity struct {
		Text   string `json:"text"`
		Number int    `json:"number"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/test/negotiate", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"connectionId":"abc","availableTransports":[{"transport":"WebSockets","transferFormats":["Text"]}]}`))
	})
	mux.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, append([]byte(`{}`), protocol.RecordSeparator))

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, append([]byte(`{"type":3,"invocationId":"SingleEntity_1","result":{"text":"ok","number":42}}`), protocol.RecordSeparator))
		time.Sleep(50 * time.Millisecond)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	u := strings.TrimPrefix(server.URL, "http://")
	parts := strings.SplitN(u, ":", 2)
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	c, err := ConnectWith(context.Background(), parts[0], "test", WithInsecure(), WithPort(port))
	if err != nil {
		t.Fatalf("ConnectWith() error = %v", err)
	}
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := Invoke[entity](ctx, c, "SingleEntity")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got.Text != "ok" || got.Number != 42 {
		t.Errorf("got = %+v, want {ok 42}", got)
	}
}
