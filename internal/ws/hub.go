package ws

import (
	"fmt"
	"sync"

	"parley/internal/models"
)

// Subscriber is a connected client handle. Frames are delivered on C;
// delivery is best-effort and drops when the buffer is full.
type Subscriber struct {
	UserID string
	C      chan models.ServerFrame
}

func NewSubscriber(userID string) *Subscriber {
	return &Subscriber{
		UserID: userID,
		C:      make(chan models.ServerFrame, 100),
	}
}

// MembershipChecker reports whether a user participates in a conversation.
type MembershipChecker func(conversationID, userID string) bool

// Hub maps conversation ids to the set of currently subscribed connections
// and fans out newly appended messages to them. It owns only transient
// subscription state and never mutates conversation records.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
	subs  map[*Subscriber]map[string]struct{}

	// checker, when set, is consulted at subscribe time. Nil means any
	// client may subscribe to any room id (the default trust boundary).
	checker MembershipChecker
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Subscriber]struct{}),
		subs:  make(map[*Subscriber]map[string]struct{}),
	}
}

// SetMembershipChecker enables the strict subscribe policy.
func (h *Hub) SetMembershipChecker(fn MembershipChecker) {
	h.mu.Lock()
	h.checker = fn
	h.mu.Unlock()
}

// Attach registers a connected client before any subscription, so presence
// queries see it.
func (h *Hub) Attach(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		h.subs[sub] = make(map[string]struct{})
	}
}

// Subscribe adds the connection to the room's subscriber set. It is
// idempotent, and the room is created lazily: subscribing to a conversation
// id that does not exist yet is allowed and harmless.
func (h *Hub) Subscribe(sub *Subscriber, conversationID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.checker != nil && !h.checker(conversationID, sub.UserID) {
		return fmt.Errorf("%w: not a participant of %s", models.ErrForbidden, conversationID)
	}

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[conversationID] = room
	}
	room[sub] = struct{}{}

	if _, ok := h.subs[sub]; !ok {
		h.subs[sub] = make(map[string]struct{})
	}
	h.subs[sub][conversationID] = struct{}{}

	return nil
}

// Unsubscribe removes the connection from one room.
func (h *Hub) Unsubscribe(sub *Subscriber, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(sub, conversationID)
	if rooms, ok := h.subs[sub]; ok {
		delete(rooms, conversationID)
	}
}

// Drop removes the connection from every room it is subscribed to. Called
// on disconnect; subsequent publishes never see the stale subscriber.
func (h *Hub) Drop(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conversationID := range h.subs[sub] {
		h.removeFromRoom(sub, conversationID)
	}
	delete(h.subs, sub)
}

// removeFromRoom deletes the room once its subscriber set is empty, so
// rooms exist only while at least one client is subscribed.
func (h *Hub) removeFromRoom(sub *Subscriber, conversationID string) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// Publish delivers the message to every connection currently subscribed to
// the room. Publishing to a room with no subscribers is a no-op. IsSelf is
// stamped per receiver.
func (h *Hub) Publish(conversationID string, msg models.EnrichedMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[conversationID] {
		m := msg
		m.IsSelf = sub.UserID == msg.SenderID
		frame := models.ServerFrame{
			Type:           models.ServerFrameTypeMessage,
			ConversationID: conversationID,
			Message:        &m,
		}
		select {
		case sub.C <- frame:
		default:
			// Slow consumer, drop rather than block the append path.
		}
	}
}

// IsOnline reports whether any connection for the user is attached.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if sub.UserID == userID {
			return true
		}
	}
	return false
}
