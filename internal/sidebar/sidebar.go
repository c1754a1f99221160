package sidebar

import (
	"fmt"

	"parley/internal/chat"
	"parley/internal/directory"
	"parley/internal/models"
)

// Sentinel texts for sidebar rows without real message data.
const (
	NoMessagesYet     = "no messages yet"
	StartConversation = "start a conversation"
)

// Projector derives the conversation list for one requester: conversations
// the requester participates in, in creation order, followed by direct
// conversations to every other known identity that does not have one yet.
type Projector struct {
	store *chat.Store
	dir   *directory.Directory
}

func New(store *chat.Store, dir *directory.Directory) *Projector {
	return &Projector{store: store, dir: dir}
}

// List builds the sidebar. Listing has a documented write side effect: a
// direct conversation to every other known identity is materialized through
// the store's EnsureDirect, so a later history or append call against the
// row's conversation id succeeds without an explicit create step.
func (p *Projector) List(requesterID string) ([]models.SidebarItem, error) {
	if _, ok := p.dir.Get(requesterID); !ok {
		return nil, fmt.Errorf("%w: identity %s", models.ErrNotFound, requesterID)
	}

	items := []models.SidebarItem{}
	haveDirect := make(map[string]bool)

	for _, c := range p.store.ForParticipant(requesterID) {
		item := models.SidebarItem{
			ConversationID: c.ID,
			Kind:           c.Kind,
		}
		if last, ok := c.LastMessage(); ok {
			item.LastMessage = last
		} else {
			item.LastMessage = NoMessagesYet
		}

		switch c.Kind {
		case models.KindDirect:
			otherID, _ := c.Other(requesterID)
			haveDirect[otherID] = true
			fillFromIdentity(&item, p.dir, otherID)
		case models.KindGroup:
			item.Name = c.Name
			item.AvatarURL = c.AvatarURL
		}

		items = append(items, item)
	}

	for _, other := range p.dir.List() {
		if other.ID == requesterID || haveDirect[other.ID] {
			continue
		}
		c, err := p.store.EnsureDirect(requesterID, other.ID)
		if err != nil {
			return nil, fmt.Errorf("materializing direct conversation: %w", err)
		}
		items = append(items, models.SidebarItem{
			ConversationID: c.ID,
			Kind:           models.KindDirect,
			Name:           other.Name,
			AvatarURL:      other.AvatarURL,
			Status:         string(other.Status),
			LastMessage:    StartConversation,
		})
	}

	return items, nil
}

func fillFromIdentity(item *models.SidebarItem, dir *directory.Directory, id string) {
	if ident, ok := dir.Get(id); ok {
		item.Name = ident.Name
		item.AvatarURL = ident.AvatarURL
		item.Status = string(ident.Status)
		return
	}
	item.Name = "Unknown"
	item.Status = string(models.StatusOffline)
}
