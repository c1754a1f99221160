package notify

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"parley/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

func newTestNotifier(online map[string]bool) (*Notifier, *[]string, *sync.Mutex) {
	n := New(Config{
		VAPIDPublicKey:  "pub",
		VAPIDPrivateKey: "priv",
		Contact:         "mailto:test@localhost",
	}, func(userID string) bool { return online[userID] })

	var mu sync.Mutex
	var sent []string
	n.send = func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		mu.Lock()
		sent = append(sent, s.Endpoint)
		mu.Unlock()
		return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	return n, &sent, &mu
}

func waitSent(t *testing.T, mu *sync.Mutex, sent *[]string, want int) []string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(*sent)
		got := append([]string(nil), *sent...)
		mu.Unlock()
		if n >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d deliveries", want)
	return nil
}

func TestNotifier_SkipsSenderAndOnline(t *testing.T) {
	n, sent, mu := newTestNotifier(map[string]bool{"online-user": true})

	n.Subscribe("offline-user", webpush.Subscription{Endpoint: "ep-offline"})
	n.Subscribe("online-user", webpush.Subscription{Endpoint: "ep-online"})
	n.Subscribe("sender", webpush.Subscription{Endpoint: "ep-sender"})

	n.Notify("conv1", []string{"sender", "online-user", "offline-user"}, models.EnrichedMessage{
		SenderID:   "sender",
		SenderName: "Alice",
		Content:    "hi",
	})

	got := waitSent(t, mu, sent, 1)
	if len(got) != 1 || got[0] != "ep-offline" {
		t.Errorf("expected delivery only to the offline non-sender, got %v", got)
	}
}

func TestNotifier_DuplicateEndpoints(t *testing.T) {
	n, sent, mu := newTestNotifier(nil)

	n.Subscribe("user", webpush.Subscription{Endpoint: "ep1"})
	n.Subscribe("user", webpush.Subscription{Endpoint: "ep1"})
	n.Subscribe("user", webpush.Subscription{Endpoint: "ep2"})

	n.Notify("conv1", []string{"user"}, models.EnrichedMessage{SenderID: "someone-else"})

	got := waitSent(t, mu, sent, 2)
	if len(got) != 2 {
		t.Errorf("duplicate subscription was not collapsed: %v", got)
	}
}

func TestNotifier_DisabledWithoutKeys(t *testing.T) {
	n := New(Config{}, func(string) bool { return false })
	if n.Enabled() {
		t.Fatal("notifier should be disabled without VAPID keys")
	}
	// Must be a silent no-op.
	n.Notify("conv1", []string{"user"}, models.EnrichedMessage{SenderID: "x"})
}
