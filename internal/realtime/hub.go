// Package realtime pushes live lesson events (class begin/end, roll calls,
// notices) to connected clients over WebSocket, with Redis pub/sub bridging
// instances.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Publisher publishes a lesson event to Redis for cross-instance delivery.
type Publisher interface {
	PublishLessonEvent(lessonID int64, event string, payload []byte) error
}

// Subscriber subscribes to a lesson's Redis channel and invokes the handler
// for incoming events. The returned cancel stops the subscription.
type Subscriber interface {
	SubscribeLesson(lessonID int64, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains lesson rooms and fans events out to their clients.
type Hub struct {
	rooms  map[int64]map[string]*Client
	subs   map[int64]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil for single-instance setups.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		rooms:  make(map[int64]map[string]*Client),
		subs:   make(map[int64]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its lesson room, starting the Redis subscription
// when the room was empty.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.LessonID] == nil {
		h.rooms[c.LessonID] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeLesson(c.LessonID, func(event string, payload []byte) {
				h.broadcast(c.LessonID, event, payload)
			})
			if err == nil {
				h.subs[c.LessonID] = cancel
			}
		}
	}
	h.rooms[c.LessonID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined lesson room",
		zap.String("client_id", c.ID), zap.Int64("lesson_id", c.LessonID))
}

// Unregister removes a client, tearing the subscription down with the last
// one out.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.LessonID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, c.LessonID)
			if cancel, ok := h.subs[c.LessonID]; ok {
				cancel()
				delete(h.subs, c.LessonID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left lesson room",
		zap.String("client_id", c.ID), zap.Int64("lesson_id", c.LessonID))
}

// Push delivers an event to every client watching the lesson. With a
// publisher configured it goes through Redis so every instance delivers it
// exactly once; otherwise it is delivered locally.
func (h *Hub) Push(lessonID int64, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.pub != nil {
		if err := h.pub.PublishLessonEvent(lessonID, event, data); err == nil {
			return
		}
	}
	h.broadcast(lessonID, event, data)
}

// RoomSize returns the number of clients connected to a lesson room.
func (h *Hub) RoomSize(lessonID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[lessonID])
}

func (h *Hub) broadcast(lessonID int64, event string, payload []byte) {
	msg := Message{Event: event, Data: payload}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[lessonID]))
	for _, c := range h.rooms[lessonID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}
