package handlers

import (
	"log/slog"
	"sync"

	"github.com/mossy-p/ptt-signaling/internal/codec"
)

// Hub routes frames between live connections. Every connection is
// addressable by id; broadcast groups are joined explicitly on registration.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
	}
}

func (h *Hub) Attach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Detach removes the client from the hub and every group it joined, then
// closes its send channel so the write pump can finish.
func (h *Hub) Detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.ID]; !ok || current != client {
		return
	}
	delete(h.clients, client.ID)
	for name, members := range h.groups {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.groups, name)
		}
	}
	client.closed = true
	close(client.send)
}

func (h *Hub) Join(client *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*Client)
		h.groups[group] = members
	}
	members[client.ID] = client
}

func (h *Hub) Leave(client *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.groups[group]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of connections in group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// SendTo delivers an event to a single connection. It reports false when
// the id is unknown or the frame could not be queued.
func (h *Hub) SendTo(id, event string, data any) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[id]
	if !ok {
		slog.Debug("target connection not found", "target", id, "event", event)
		return false
	}
	frame, err := client.codec.Encode(event, data)
	if err != nil {
		slog.Error("failed to encode event", "event", event, "error", err)
		return false
	}
	return h.deliver(client, event, frame)
}

// BroadcastGroup delivers an event to every member of group except the
// connection excludeID. An empty excludeID includes everybody. It returns
// the number of members the frame was queued for.
func (h *Hub) BroadcastGroup(group, event string, data any, excludeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	encoded := make(map[codec.Codec][]byte, 2)
	delivered := 0
	for id, client := range h.groups[group] {
		if id == excludeID {
			continue
		}
		frame, ok := encoded[client.codec]
		if !ok {
			var err error
			frame, err = client.codec.Encode(event, data)
			if err != nil {
				slog.Error("failed to encode event", "event", event, "codec", client.codec.Name(), "error", err)
				return delivered
			}
			encoded[client.codec] = frame
		}
		if h.deliver(client, event, frame) {
			delivered++
		}
	}
	return delivered
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(client *Client, event string, frame []byte) bool {
	if client.closed {
		return false
	}
	select {
	case client.send <- frame:
		return true
	default:
		slog.Warn("send buffer full, dropping frame", "peer", client.ID, "event", event)
		return false
	}
}

// CloseAll closes every live connection. The read pumps notice and run the
// normal disconnect path.
func (h *Hub) CloseAll() int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.conn != nil {
			client.conn.Close()
		}
	}
	return len(clients)
}
