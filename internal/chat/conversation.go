package chat

import (
	"sync"

	"parley/internal/models"
)

// Conversation is a single direct or group conversation. The participant set
// is fixed at creation; the message log is append-only and guarded by mux,
// which serializes appends so that log order equals fan-out order.
type Conversation struct {
	ID        string
	Kind      models.ConversationKind
	Name      string
	AvatarURL string

	participants []string

	mux sync.RWMutex
	log []models.Message
}

// Participants returns the participant ids in insertion order.
func (c *Conversation) Participants() []string {
	out := make([]string, len(c.participants))
	copy(out, c.participants)
	return out
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID. Only meaningful for
// direct conversations.
func (c *Conversation) Other(userID string) (string, bool) {
	for _, p := range c.participants {
		if p != userID {
			return p, true
		}
	}
	return "", false
}

// LastMessage returns the content of the newest log entry.
func (c *Conversation) LastMessage() (string, bool) {
	c.mux.RLock()
	defer c.mux.RUnlock()

	if len(c.log) == 0 {
		return "", false
	}
	return c.log[len(c.log)-1].Content, true
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return len(c.log)
}

func (c *Conversation) messages() []models.Message {
	c.mux.RLock()
	defer c.mux.RUnlock()

	out := make([]models.Message, len(c.log))
	copy(out, c.log)
	return out
}
