package push

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// EventNewNotification is the event name clients listen for.
const EventNewNotification = "new_notification"

// Envelope is the wire frame pushed to subscribers.
type Envelope struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// subscriber pairs a connection with its write lock. The websocket allows at
// most one concurrent writer, and pushes for the same user arrive from the
// scheduler and the callback handler at the same time.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Hub keeps one broadcast group per user (channel user_{id}) and pushes
// events to every live connection in the group. Delivery is best-effort:
// a slow or broken connection is dropped, never waited on.
type Hub struct {
	mu     sync.RWMutex
	groups map[int64]map[*websocket.Conn]*subscriber
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		groups: make(map[int64]map[*websocket.Conn]*subscriber),
		logger: logger,
	}
}

// GroupName returns the per-user channel name, e.g. user_42.
func GroupName(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[userID]
	if !ok {
		group = make(map[*websocket.Conn]*subscriber)
		h.groups[userID] = group
	}
	group[conn] = &subscriber{conn: conn}

	h.logger.WithFields(logrus.Fields{
		"channel":     GroupName(userID),
		"subscribers": len(group),
	}).Debug("Websocket subscriber registered")
}

func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[userID]
	if !ok {
		return
	}
	delete(group, conn)
	if len(group) == 0 {
		delete(h.groups, userID)
	}
}

// Subscribers returns the current connection count for a user's group.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID])
}

// Push sends the event to every connection in the user's group. No
// subscribers is a normal condition and not an error; individual write
// failures cause the connection to be dropped and are reported back for
// logging only. Safe to call concurrently: each connection's writes are
// serialized by its subscriber lock.
func (h *Hub) Push(userID int64, event string, payload any) error {
	frame, err := json.Marshal(Envelope{
		Event:   event,
		Channel: GroupName(userID),
		Data:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push frame: %w", err)
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.groups[userID]))
	for _, sub := range h.groups[userID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var failed int
	for _, sub := range subs {
		if err := sub.write(frame); err != nil {
			failed++
			h.Unregister(userID, sub.conn)
			sub.conn.Close()
		}
	}

	if failed > 0 {
		return fmt.Errorf("push to %s failed for %d connection(s)", GroupName(userID), failed)
	}
	return nil
}
