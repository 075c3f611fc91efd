package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowcore/flowengine/engine"
)

func TestHubPublishDeliversToConnectedClient(t *testing.T) {
	hub := NewHub(time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, r.RemoteAddr)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server goroutine a moment to register the client.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	if err := hub.Publish(context.Background(), engine.Envelope{
		Type:    engine.EnvFlowToast,
		Payload: map[string]interface{}{"message": "hello"},
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got wireEnvelope
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != engine.EnvFlowToast {
		t.Errorf("Type = %q, want %q", got.Type, engine.EnvFlowToast)
	}
	if got.Payload["message"] != "hello" {
		t.Errorf("Payload[message] = %v, want hello", got.Payload["message"])
	}
}

func TestHubPublishWithNoClientsIsNoop(t *testing.T) {
	hub := NewHub(time.Minute)
	if err := hub.Publish(context.Background(), engine.Envelope{Type: engine.EnvFlowToast}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
