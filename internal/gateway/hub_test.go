package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHubDeliversUpdates(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	ts := httptest.NewServer(h)
	defer ts.Close()

	conn := dialHub(t, ts)
	defer conn.Close()

	// Wait for registration before publishing.
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.Publish(context.Background(), &StateUpdate{
		Type:      UpdateSnapshot,
		Payload:   json.RawMessage(`{"total_items":2}`),
		Timestamp: time.Now(),
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var update StateUpdate
	if err := json.Unmarshal(msg, &update); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if update.Type != UpdateSnapshot {
		t.Errorf("type = %q, want snapshot", update.Type)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn := dialHub(t, ts)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.ClientCount() != 0 {
		t.Fatalf("client count after close = %d, want 0", h.ClientCount())
	}
	// Closing twice is safe.
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
