package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"parley/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Config carries the VAPID key pair. The notifier is disabled when the keys
// are unset.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Contact         string
}

// Payload is the JSON body of a push notification.
type Payload struct {
	ConversationID string `json:"conversationId"`
	SenderName     string `json:"senderName"`
	Content        string `json:"content"`
}

// Notifier sends web-push notifications to participants that have no live
// connection when a message is appended. Subscriptions are registered per
// identity and kept in memory only.
type Notifier struct {
	cfg    Config
	online func(userID string) bool
	send   func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

	mu   sync.RWMutex
	subs map[string][]webpush.Subscription
}

// New creates a notifier. online reports whether a user currently has a
// connection attached to the hub.
func New(cfg Config, online func(userID string) bool) *Notifier {
	return &Notifier{
		cfg:    cfg,
		online: online,
		send:   webpush.SendNotification,
		subs:   make(map[string][]webpush.Subscription),
	}
}

func (n *Notifier) Enabled() bool {
	return n.cfg.VAPIDPublicKey != "" && n.cfg.VAPIDPrivateKey != ""
}

// Subscribe registers a push subscription for the user. Duplicate endpoints
// are collapsed.
func (n *Notifier) Subscribe(userID string, sub webpush.Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, existing := range n.subs[userID] {
		if existing.Endpoint == sub.Endpoint {
			return
		}
	}
	n.subs[userID] = append(n.subs[userID], sub)
}

// Notify pushes the message to every participant that is neither the sender
// nor currently online. Delivery is fire-and-forget; failures are logged and
// the failing subscription is kept (transient push-service errors are
// common).
func (n *Notifier) Notify(conversationID string, participants []string, msg models.EnrichedMessage) {
	if !n.Enabled() {
		return
	}

	body, err := json.Marshal(Payload{
		ConversationID: conversationID,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
	})
	if err != nil {
		slog.Error("failed to marshal push payload", "error", err)
		return
	}

	n.mu.RLock()
	var targets []webpush.Subscription
	for _, p := range participants {
		if p == msg.SenderID || n.online(p) {
			continue
		}
		targets = append(targets, n.subs[p]...)
	}
	n.mu.RUnlock()

	for _, sub := range targets {
		go func(sub webpush.Subscription) {
			resp, err := n.send(body, &sub, &webpush.Options{
				Subscriber:      n.cfg.Contact,
				VAPIDPublicKey:  n.cfg.VAPIDPublicKey,
				VAPIDPrivateKey: n.cfg.VAPIDPrivateKey,
				TTL:             60,
			})
			if err != nil {
				slog.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
				return
			}
			_ = resp.Body.Close()
		}(sub)
	}
}
