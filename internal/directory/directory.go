package directory

import (
	"fmt"
	"strings"
	"sync"

	"parley/internal/models"

	"github.com/google/uuid"
)

// Directory owns all identity records. Identities are created at
// registration and never destroyed in-process; List returns them in
// creation order.
type Directory struct {
	mu    sync.RWMutex
	byID  map[string]models.Identity
	order []string
}

// Attributes are the optional fields supplied at identity creation.
type Attributes struct {
	AvatarURL string
	Status    models.Status
}

// Update is a partial update of the mutable identity fields. Nil fields are
// left untouched.
type Update struct {
	Name      *string
	AvatarURL *string
	Status    *models.Status
}

func New() *Directory {
	return &Directory{
		byID: make(map[string]models.Identity),
	}
}

// Resolve finds an identity by display name using a case-insensitive exact
// match.
func (d *Directory) Resolve(name string) (models.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range d.order {
		ident := d.byID[id]
		if strings.EqualFold(ident.Name, name) {
			return ident, nil
		}
	}
	return models.Identity{}, models.ErrNotFound
}

// Create allocates a fresh identity. It fails with ErrConflict if the name
// already resolves to an existing identity.
func (d *Directory) Create(name string, attrs Attributes) (models.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Identity{}, fmt.Errorf("%w: empty name", models.ErrInvalidArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range d.order {
		if strings.EqualFold(d.byID[id].Name, name) {
			return models.Identity{}, fmt.Errorf("%w: name %q is taken", models.ErrConflict, name)
		}
	}

	status := attrs.Status
	if status == "" {
		status = models.StatusOnline
	}

	ident := models.Identity{
		ID:        uuid.NewString(),
		Name:      name,
		AvatarURL: attrs.AvatarURL,
		Status:    status,
	}
	d.byID[ident.ID] = ident
	d.order = append(d.order, ident.ID)

	return ident, nil
}

// UpdateIdentity applies a partial update and returns the new record.
func (d *Directory) UpdateIdentity(id string, fields Update) (models.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ident, ok := d.byID[id]
	if !ok {
		return models.Identity{}, models.ErrNotFound
	}

	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return models.Identity{}, fmt.Errorf("%w: empty name", models.ErrInvalidArgument)
		}
		for _, otherID := range d.order {
			if otherID != id && strings.EqualFold(d.byID[otherID].Name, name) {
				return models.Identity{}, fmt.Errorf("%w: name %q is taken", models.ErrConflict, name)
			}
		}
		ident.Name = name
	}
	if fields.AvatarURL != nil {
		ident.AvatarURL = *fields.AvatarURL
	}
	if fields.Status != nil {
		if !models.ValidStatus(*fields.Status) {
			return models.Identity{}, fmt.Errorf("%w: unknown status %q", models.ErrInvalidArgument, *fields.Status)
		}
		ident.Status = *fields.Status
	}

	d.byID[id] = ident
	return ident, nil
}

// Get returns the identity by id.
func (d *Directory) Get(id string) (models.Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ident, ok := d.byID[id]
	return ident, ok
}

// List returns all identities in creation order.
func (d *Directory) List() []models.Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]models.Identity, 0, len(d.order))
	for _, id := range d.order {
		result = append(result, d.byID[id])
	}
	return result
}
