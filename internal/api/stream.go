package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Batch job event types.
const (
	EventStarted   = "started"
	EventDetection = "detection"
	EventProgress  = "progress"
	EventError     = "error"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// DetectionEvent describes websocket payloads emitted during batch jobs.
type DetectionEvent struct {
	Type      string        `json:"type"`
	JobID     string        `json:"job_id"`
	Company   string        `json:"company,omitempty"`
	Total     int           `json:"total,omitempty"`
	Processed int           `json:"processed,omitempty"`
	Failed    int           `json:"failed,omitempty"`
	Detection *DetectionDTO `json:"detection,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// DetectionNotifier tracks websocket clients and fans out batch events. New
// clients first receive the last status event.
type DetectionNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *DetectionEvent
}

// NewDetectionNotifier constructs a notifier instance.
func NewDetectionNotifier() *DetectionNotifier {
	return &DetectionNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle.
func (n *DetectionNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the client and closes its socket.
func (n *DetectionNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast stamps the event and sends it to every registered client. Clients
// that fail to receive it are dropped.
func (n *DetectionNotifier) Broadcast(event DetectionEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	switch event.Type {
	case EventStarted, EventProgress, EventDetection, EventCancelled, EventCompleted:
		snapshot := event
		n.lastStatus = &snapshot
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
}

// LastStatus returns a copy of the most recent status event, if any.
func (n *DetectionNotifier) LastStatus() *DetectionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	status := *n.lastStatus
	return &status
}

func (c *wsClient) writeJSON(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
