package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(msg, &out); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return out
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishLocal(t *testing.T) {
	h := NewHub(nil)
	counts := make(chan int, 4)
	h.OnCount = func(n int) { counts <- n }
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)
	if n := <-counts; n != 1 {
		t.Errorf("OnCount = %d", n)
	}

	err := h.Publish(context.Background(), Event{Type: EventLatest, Day: "2025-10-17", Status: "market_day"})
	if err != nil {
		t.Fatal(err)
	}
	ev := readEvent(t, conn)
	if ev["type"] != EventLatest || ev["day"] != "2025-10-17" {
		t.Errorf("event = %v", ev)
	}
	if h.Latest() == nil {
		t.Error("latest not retained")
	}
}

func TestNewClientGetsLatest(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	if err := h.Publish(context.Background(), Event{Type: EventLatest, Day: "2025-10-20"}); err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv)
	ev := readEvent(t, conn)
	if ev["day"] != "2025-10-20" {
		t.Errorf("initial event = %v", ev)
	}
}

func TestPingPong(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ping":42}`)); err != nil {
		t.Fatal(err)
	}
	ev := readEvent(t, conn)
	if ev["type"] != "pong" || ev["ping"] != float64(42) {
		t.Errorf("pong = %v", ev)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)
	conn.Close()
	waitForClients(t, h, 0)
}
