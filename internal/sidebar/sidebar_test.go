package sidebar

import (
	"errors"
	"testing"

	"parley/internal/chat"
	"parley/internal/directory"
	"parley/internal/models"
)

func setup(t *testing.T) (*Projector, *chat.Store, map[string]models.Identity) {
	t.Helper()
	dir := directory.New()
	idents := make(map[string]models.Identity)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		ident, err := dir.Create(name, directory.Attributes{})
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		idents[name] = ident
	}
	store := chat.NewStore(chat.Config{Directory: dir})
	return New(store, dir), store, idents
}

func TestProjector_List(t *testing.T) {
	p, store, ids := setup(t)
	alice, bob := ids["Alice"], ids["Bob"]

	c, err := store.EnsureDirect(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("EnsureDirect failed: %v", err)
	}
	if _, err := store.Append(c.ID, bob.ID, "hello", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	items, err := p.List(alice.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (existing + virtual), got %d", len(items))
	}

	t.Run("ExistingFirst", func(t *testing.T) {
		if items[0].ConversationID != c.ID {
			t.Errorf("expected existing conversation first, got %s", items[0].ConversationID)
		}
		if items[0].Name != "Bob" {
			t.Errorf("direct item should mirror the other participant, got %s", items[0].Name)
		}
		if items[0].LastMessage != "hello" {
			t.Errorf("expected last message 'hello', got %q", items[0].LastMessage)
		}
	})

	t.Run("VirtualItem", func(t *testing.T) {
		virtual := items[1]
		if virtual.Name != "Carol" {
			t.Errorf("expected virtual item for Carol, got %s", virtual.Name)
		}
		if virtual.LastMessage != StartConversation {
			t.Errorf("expected sentinel %q, got %q", StartConversation, virtual.LastMessage)
		}
		if virtual.ConversationID != chat.DirectID(alice.ID, ids["Carol"].ID) {
			t.Errorf("virtual item should use the deterministic direct id, got %s", virtual.ConversationID)
		}
	})

	t.Run("EagerMaterialization", func(t *testing.T) {
		// The virtual conversation must now exist in the store, so an append
		// against its id succeeds without an explicit create step.
		virtualID := chat.DirectID(alice.ID, ids["Carol"].ID)
		if _, ok := store.Get(virtualID); !ok {
			t.Fatal("virtual conversation was not materialized during listing")
		}
		if _, err := store.Append(virtualID, ids["Carol"].ID, "hi alice", nil); err != nil {
			t.Errorf("append against materialized conversation failed: %v", err)
		}
	})

	t.Run("MaterializedBecomesExisting", func(t *testing.T) {
		again, err := p.List(alice.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(again) != 2 {
			t.Fatalf("expected 2 items, got %d", len(again))
		}
		// Carol's row now comes from the store and carries the real last message.
		var carol *models.SidebarItem
		for i := range again {
			if again[i].Name == "Carol" {
				carol = &again[i]
			}
		}
		if carol == nil {
			t.Fatal("no item for Carol")
		}
		if carol.LastMessage != "hi alice" {
			t.Errorf("expected materialized row with last message, got %q", carol.LastMessage)
		}
	})
}

func TestProjector_EmptyLogSentinel(t *testing.T) {
	p, store, ids := setup(t)
	alice := ids["Alice"]

	c, _ := store.CreateGroup("Team", alice.ID, []string{ids["Bob"].ID})

	items, err := p.List(alice.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if items[0].ConversationID != c.ID {
		t.Fatalf("expected group first, got %s", items[0].ConversationID)
	}
	if items[0].LastMessage != NoMessagesYet {
		t.Errorf("expected sentinel %q, got %q", NoMessagesYet, items[0].LastMessage)
	}
	if items[0].Name != "Team" {
		t.Errorf("group row should use the group's own name, got %s", items[0].Name)
	}
}

func TestProjector_UnknownRequester(t *testing.T) {
	p, _, _ := setup(t)
	if _, err := p.List("ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
