package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/scoring"
)

// Message types pushed to websocket clients.
const (
	MessageTypeNotices = "notices"
	MessageTypeState   = "state"
)

// Message is one websocket frame. Seq is the engine seq of the command
// that produced it; frames for one match arrive in seq order.
type Message struct {
	Type    string           `json:"type"`
	MatchID string           `json:"matchId"`
	Seq     int64            `json:"seq,omitempty"`
	Notices []scoring.Notice `json:"notices,omitempty"`
	Match   *MatchView       `json:"match,omitempty"`
}

// Hub fans match updates out to the websocket clients watching each match.
//
// Hub implements engine.UpdateSink. Publish is called on the engine
// goroutine and never blocks: when the broadcast buffer is full the update
// is dropped.
type Hub struct {
	clients   map[*client]struct{}
	clientsMu sync.RWMutex

	broadcast  chan Message
	register   chan *client
	unregister chan *client
	done       chan struct{}

	totalMessages int64
	dropped       int64
	statsMu       sync.Mutex
}

// NewHub creates a hub. Call Run before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Message, 1000),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Publish queues the command's notices, if any, followed by the new
// scoreboard for the clients watching the match.
func (h *Hub) Publish(out engine.Outcome) {
	if len(out.Notices) > 0 {
		h.enqueue(Message{Type: MessageTypeNotices, MatchID: out.MatchID, Seq: out.Seq, Notices: out.Notices})
	}
	view := newMatchView(out)
	h.enqueue(Message{Type: MessageTypeState, MatchID: out.MatchID, Seq: out.Seq, Match: &view})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of updates lost to a full buffer or a slow client.
func (h *Hub) Dropped() int64 {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	return h.dropped
}

func (h *Hub) enqueue(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.countDropped(1)
		slog.Warn("hub broadcast buffer full, dropping update", "match_id", msg.MatchID, "type", msg.Type)
	}
}

func (h *Hub) addClient(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) registerClient(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = struct{}{}
	slog.Debug("websocket client connected", "client_id", c.id, "match_id", c.matchID, "total", len(h.clients))
}

func (h *Hub) unregisterClient(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Debug("websocket client disconnected", "client_id", c.id, "total", len(h.clients))
	}
}

// deliver sends msg to every client watching its match. A client whose
// buffer is full is disconnected.
func (h *Hub) deliver(msg Message) {
	h.clientsMu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.matchID == msg.MatchID {
			targets = append(targets, c)
		}
	}
	h.clientsMu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.trySend(msg) {
			sent++
			continue
		}
		h.countDropped(1)
		slog.Warn("websocket client too slow, disconnecting", "client_id", c.id)
		go h.removeClient(c)
	}

	if sent > 0 {
		h.statsMu.Lock()
		h.totalMessages++
		h.statsMu.Unlock()
	}
}

func (h *Hub) countDropped(n int64) {
	h.statsMu.Lock()
	h.dropped += n
	h.statsMu.Unlock()
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	slog.Info("hub stopping", "clients", len(h.clients))
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
