package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a fulfillment recompute notice pushed to console clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// draftEvent routes an event to the clients watching one draft session.
type draftEvent struct {
	DraftID uuid.UUID
	Event   Event
}

// Hub fans fulfillment events out to the WebSocket clients subscribed to a
// draft session. Each draft gets its own room; rooms disappear with their
// last client.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *draftEvent

	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub creates a Hub; run it with `go hub.Run()`.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *draftEvent, 256),
		log:        log,
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.draftID] == nil {
				h.rooms[client.draftID] = make(map[*Client]bool)
			}
			h.rooms[client.draftID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.draftID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.draftID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.DraftID]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error("failed to marshal ws event", zap.Error(err))
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// slow client, drop it
					delete(clients, client)
					close(client.send)
				}
			}
			if len(clients) == 0 {
				delete(h.rooms, event.DraftID)
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToDraft queues an event for every client watching draftID.
func (h *Hub) BroadcastToDraft(draftID uuid.UUID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal ws payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.broadcast <- &draftEvent{
		DraftID: draftID,
		Event:   Event{Type: eventType, Payload: raw},
	}
}
