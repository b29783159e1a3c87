package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType names a pipeline event.
type EventType string

const (
	EventRunStarted     EventType = "sync.started"
	EventRunFinished    EventType = "sync.finished"
	EventUploadFinished EventType = "upload.finished"
)

const (
	clientBuffer = 64
	historySize  = 256
)

// Event is the payload broadcast to admin clients.
type Event struct {
	Event     EventType `json:"event"`
	CatalogID int       `json:"catalogId"`
	RunID     string    `json:"runId,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Status    string    `json:"status"`
	Valid     *int      `json:"valid,omitempty"`
	Invalid   *int      `json:"invalid,omitempty"`
	Sent      *int      `json:"sent,omitempty"`
	Records   *int      `json:"records,omitempty"`
	Error     *string   `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is an encoded event with its stream sequence number.
type Message struct {
	ID        uint64
	CatalogID int
	Data      []byte
}

// Client is a connected stream. A nil or empty Catalogs set receives every catalog.
type Client struct {
	ID       string
	Catalogs map[int]bool
	Events   chan Message
}

func (c *Client) wants(catalogID int) bool {
	return len(c.Catalogs) == 0 || c.Catalogs[catalogID]
}

// Hub fans events out to clients and keeps a short history so reconnecting
// clients can resume from their Last-Event-ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	history []Message
	seq     uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds a client and queues every retained message newer than
// afterID that matches its catalogs.
func (h *Hub) Register(clientID string, catalogs map[int]bool, afterID uint64) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{ID: clientID, Catalogs: catalogs, Events: make(chan Message, clientBuffer)}
	if afterID > 0 {
		for _, m := range h.history {
			if m.ID > afterID && c.wants(m.CatalogID) {
				select {
				case c.Events <- m:
				default:
				}
			}
		}
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast records event in the history and offers it to every interested
// client. A client with a full buffer misses the event.
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	msg := Message{ID: h.seq, CatalogID: event.CatalogID, Data: data}
	h.history = append(h.history, msg)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}

	for _, c := range h.clients {
		if !c.wants(event.CatalogID) {
			continue
		}
		select {
		case c.Events <- msg:
		default:
			log.Warn().Str("client_id", c.ID).Uint64("event_id", msg.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
