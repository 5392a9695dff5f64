package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nbyapp/nbyapp/internal/status"
)

const heartbeatInterval = 30 * time.Second

// SSEClient represents an SSE client connection
type SSEClient struct {
	Channel chan status.Status
}

// SSEManager fans status snapshots out to SSE connections
type SSEManager struct {
	clients     map[*SSEClient]struct{}
	register    chan *SSEClient
	unregister  chan *SSEClient
	broadcast   chan status.Status
	done        chan struct{}
	unsubscribe func()
}

// NewSSEManager creates a manager fed by every change of broadcaster
func NewSSEManager(broadcaster *status.Broadcaster) *SSEManager {
	manager := &SSEManager{
		clients:    make(map[*SSEClient]struct{}),
		register:   make(chan *SSEClient),
		unregister: make(chan *SSEClient),
		broadcast:  make(chan status.Status),
		done:       make(chan struct{}),
	}

	go manager.run()
	manager.unsubscribe = broadcaster.Subscribe(manager.Broadcast)
	return manager
}

// run starts the SSE manager event loop
func (m *SSEManager) run() {
	for {
		select {
		case client := <-m.register:
			m.clients[client] = struct{}{}

		case client := <-m.unregister:
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.Channel)
			}

		case s := <-m.broadcast:
			for client := range m.clients {
				deliver(client.Channel, s)
			}

		case <-m.done:
			for client := range m.clients {
				delete(m.clients, client)
				close(client.Channel)
			}
			return
		}
	}
}

// deliver never blocks the loop. A slow client loses its oldest pending
// snapshot; every snapshot carries the full status so the newest is enough.
func deliver(ch chan status.Status, s status.Status) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	// Only the loop sends, so there is room now
	ch <- s
}

// Register registers a new SSE client
func (m *SSEManager) Register() *SSEClient {
	client := &SSEClient{
		Channel: make(chan status.Status, 16),
	}
	select {
	case m.register <- client:
	case <-m.done:
		close(client.Channel)
	}
	return client
}

// Unregister unregisters an SSE client
func (m *SSEManager) Unregister(client *SSEClient) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast hands a snapshot to all connected clients
func (m *SSEManager) Broadcast(s status.Status) {
	select {
	case m.broadcast <- s:
	case <-m.done:
	}
}

// Close detaches from the broadcaster and ends all streams
func (m *SSEManager) Close() {
	select {
	case <-m.done:
		return
	default:
	}
	m.unsubscribe()
	close(m.done)
}

// HandleSSE streams status snapshots until the generation reaches a terminal
// state or the client goes away
func HandleSSE(c *gin.Context, sseManager *SSEManager, broadcaster *status.Broadcaster) {
	// Set headers for SSE
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	client := sseManager.Register()
	defer sseManager.Unregister(client)

	// Send initial status
	current := broadcaster.Snapshot()
	if err := sendSSEMessage(c.Writer, "status", current); err != nil {
		return
	}
	c.Writer.Flush()

	if current.IsTerminal() {
		return
	}

	// Stream updates
	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case s, ok := <-client.Channel:
			if !ok {
				return
			}
			// Snapshots queued before the initial one belong to an older state
			if s.JobID == current.JobID && len(s.Steps) < len(current.Steps) {
				continue
			}
			current = s
			if err := sendSSEMessage(c.Writer, "status", s); err != nil {
				return
			}
			c.Writer.Flush()

			if s.IsTerminal() {
				return
			}

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		}
	}
}

// sendSSEMessage writes one event with v encoded as JSON on a single data line
func sendSSEMessage(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
