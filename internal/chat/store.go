package chat

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"parley/internal/content"
	"parley/internal/directory"
	"parley/internal/models"

	"github.com/google/uuid"
)

// RecordCallback is invoked once for every appended message, while the
// conversation's append lock is still held. Fan-out therefore observes
// messages in append order. The callback receives the message with IsSelf
// unset; delivery decides that per receiver.
type RecordCallback func(conversationID string, participants []string, msg models.EnrichedMessage)

type Config struct {
	Directory      *directory.Directory
	RecordCallback RecordCallback
}

// Store owns all conversation records and their message logs. It is the
// single writer for every log; the Directory is consulted read-only for
// validation and read-time enrichment.
type Store struct {
	dir *directory.Directory
	cb  RecordCallback

	mu            sync.RWMutex
	conversations map[string]*Conversation
	order         []string
}

func NewStore(cfg Config) *Store {
	return &Store{
		dir:           cfg.Directory,
		cb:            cfg.RecordCallback,
		conversations: make(map[string]*Conversation),
	}
}

// DirectID computes the deterministic, order-independent id for the direct
// conversation between two identities.
func DirectID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm_%s_%s", a, b)
}

// EnsureDirect returns the direct conversation between two identities,
// creating it with an empty log if it does not exist yet. Calls with the
// arguments swapped yield the identical record.
func (s *Store) EnsureDirect(idA, idB string) (*Conversation, error) {
	if idA == idB {
		return nil, fmt.Errorf("%w: direct conversation needs two distinct participants", models.ErrInvalidArgument)
	}
	if _, ok := s.dir.Get(idA); !ok {
		return nil, fmt.Errorf("%w: identity %s", models.ErrNotFound, idA)
	}
	if _, ok := s.dir.Get(idB); !ok {
		return nil, fmt.Errorf("%w: identity %s", models.ErrNotFound, idB)
	}

	if idB < idA {
		idA, idB = idB, idA
	}
	id := DirectID(idA, idB)

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conversations[id]; ok {
		return c, nil
	}

	c := &Conversation{
		ID:           id,
		Kind:         models.KindDirect,
		participants: []string{idA, idB},
	}
	s.conversations[id] = c
	s.order = append(s.order, id)
	return c, nil
}

// CreateGroup creates a group conversation. The requester is always a
// participant regardless of memberIDs; duplicate ids are collapsed and
// unknown ids are dropped.
func (s *Store) CreateGroup(name, requesterID string, memberIDs []string) (*Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty group name", models.ErrInvalidArgument)
	}
	if _, ok := s.dir.Get(requesterID); !ok {
		return nil, fmt.Errorf("%w: identity %s", models.ErrNotFound, requesterID)
	}

	participants := []string{requesterID}
	seen := map[string]bool{requesterID: true}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		if _, ok := s.dir.Get(id); !ok {
			slog.Warn("dropping unknown member from group", "group_name", name, "member_id", id)
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}

	c := &Conversation{
		ID:           "group_" + uuid.NewString(),
		Kind:         models.KindGroup,
		Name:         content.Sanitize(name),
		participants: participants,
	}

	s.mu.Lock()
	s.conversations[c.ID] = c
	s.order = append(s.order, c.ID)
	s.mu.Unlock()

	return c, nil
}

// Append validates and appends a message, then triggers exactly one fan-out
// callback. Validation happens before any mutation; a failed append leaves
// the log untouched.
func (s *Store) Append(conversationID, senderID, body string, attachments []models.Attachment) (models.EnrichedMessage, error) {
	c, ok := s.Get(conversationID)
	if !ok {
		return models.EnrichedMessage{}, fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}
	if !c.HasParticipant(senderID) {
		slog.Warn("append rejected for non-participant", "conversation_id", conversationID, "sender_id", senderID)
		return models.EnrichedMessage{}, fmt.Errorf("%w: not a participant", models.ErrForbidden)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return models.EnrichedMessage{}, fmt.Errorf("%w: empty message", models.ErrInvalidArgument)
	}

	msg := models.Message{
		SenderID:    senderID,
		Content:     body,
		Attachments: attachments,
		SentAt:      time.Now().Unix(),
	}

	c.mux.Lock()
	c.log = append(c.log, msg)
	enriched := s.enrich(msg, "")
	if s.cb != nil {
		s.cb(c.ID, c.Participants(), enriched)
	}
	c.mux.Unlock()

	enriched.IsSelf = true
	return enriched, nil
}

// History returns the full log enriched for the requester. Sender metadata
// is resolved at call time.
func (s *Store) History(conversationID, requesterID string) ([]models.EnrichedMessage, error) {
	c, ok := s.Get(conversationID)
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}
	if !c.HasParticipant(requesterID) {
		slog.Warn("history rejected for non-participant", "conversation_id", conversationID, "requester_id", requesterID)
		return nil, fmt.Errorf("%w: not a participant", models.ErrForbidden)
	}

	log := c.messages()
	result := make([]models.EnrichedMessage, 0, len(log))
	for _, msg := range log {
		result = append(result, s.enrich(msg, requesterID))
	}
	return result, nil
}

// Info returns the requester-scoped header view of a conversation.
func (s *Store) Info(conversationID, requesterID string) (models.ConversationSummary, error) {
	c, ok := s.Get(conversationID)
	if !ok {
		return models.ConversationSummary{}, fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}
	if !c.HasParticipant(requesterID) {
		return models.ConversationSummary{}, fmt.Errorf("%w: not a participant", models.ErrForbidden)
	}

	summary := models.ConversationSummary{
		ID:   c.ID,
		Kind: c.Kind,
	}

	if c.Kind == models.KindGroup {
		summary.Name = c.Name
		summary.AvatarURL = c.AvatarURL
		summary.Status = fmt.Sprintf("%d members", len(c.participants))
		return summary, nil
	}

	otherID, _ := c.Other(requesterID)
	if other, ok := s.dir.Get(otherID); ok {
		summary.Name = other.Name
		summary.AvatarURL = other.AvatarURL
		summary.Status = string(other.Status)
	} else {
		summary.Name = "Unknown"
		summary.Status = string(models.StatusOffline)
	}
	return summary, nil
}

func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return c, ok
}

// ForParticipant returns the conversations the user participates in, in
// conversation creation order.
func (s *Store) ForParticipant(userID string) []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Conversation
	for _, id := range s.order {
		if c := s.conversations[id]; c.HasParticipant(userID) {
			result = append(result, c)
		}
	}
	return result
}

// IsParticipant reports whether the user participates in the conversation.
// Used as the hub's membership checker when the subscribe policy is strict.
func (s *Store) IsParticipant(conversationID, userID string) bool {
	c, ok := s.Get(conversationID)
	return ok && c.HasParticipant(userID)
}

func (s *Store) enrich(msg models.Message, requesterID string) models.EnrichedMessage {
	enriched := models.EnrichedMessage{
		SenderID:     msg.SenderID,
		Content:      msg.Content,
		RenderedHTML: content.Render(msg.Content),
		Attachments:  msg.Attachments,
		SentAt:       msg.SentAt,
		IsSelf:       msg.SenderID == requesterID,
	}
	if sender, ok := s.dir.Get(msg.SenderID); ok {
		enriched.SenderName = sender.Name
		enriched.AvatarURL = sender.AvatarURL
	} else {
		enriched.SenderName = "Unknown"
	}
	return enriched
}
