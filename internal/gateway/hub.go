// Package gateway pushes latest-available-day events to WebSocket clients.
// With a Redis client the events travel over a PubSub channel so every
// bhavcopyd instance fans them out to its own clients.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// DefaultChannel is the Redis PubSub channel events are published on.
const DefaultChannel = "pub:bhavcopy:latest"

// EventLatest is the type of an Event announcing the newest downloadable day.
const EventLatest = "latest_available"

// Event is the JSON envelope sent to clients.
type Event struct {
	Type   string    `json:"type"`
	Day    string    `json:"day"`
	Status string    `json:"status,omitempty"`
	TS     time.Time `json:"ts"`
}

// Hub tracks connected clients and fans events out to them.
type Hub struct {
	Rdb     *goredis.Client
	Channel string

	// OnCount, if set, is called with the client count after every
	// connect and disconnect.
	OnCount func(n int)

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  []byte
}

// NewHub returns a Hub. rdb may be nil, in which case events stay local.
func NewHub(rdb *goredis.Client) *Hub {
	return &Hub{
		Rdb:     rdb,
		Channel: DefaultChannel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
	}
}

// Publish sends ev to every client. When the hub has a Redis client the
// event goes through PubSub and comes back to Run on each instance.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if h.Rdb == nil {
		h.broadcast(data)
		return nil
	}
	if err := h.Rdb.Publish(ctx, h.Channel, data).Err(); err != nil {
		// Still reach our own clients.
		h.broadcast(data)
		return err
	}
	return nil
}

// Run relays PubSub messages to clients. Without Redis it just waits for
// ctx. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.Rdb == nil {
		<-ctx.Done()
		return
	}
	pubsub := h.Rdb.Subscribe(ctx, h.Channel)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s", h.Channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	h.latest = data
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Slow client; it will catch up from the next event.
		}
	}
	h.mu.Unlock()
}

// Latest returns the last event broadcast, or nil.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ServeHTTP upgrades the request to a WebSocket and registers the client.
// The client immediately receives the last event, if any.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade: %v", err)
		return
	}
	client := &Client{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	if h.latest != nil {
		client.send <- h.latest
	}
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnCount != nil {
		h.OnCount(count)
	}

	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters c and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	if h.OnCount != nil {
		h.OnCount(count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
