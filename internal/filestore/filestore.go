package filestore

import (
	"fmt"
	"io"
	"sync"
	"time"

	"parley/internal/models"

	"github.com/google/uuid"
)

// BlobStore stores and retrieves file content by hash.
type BlobStore interface {
	// Save stores the content under the given hash. Idempotent: saving an
	// existing hash is a no-op.
	Save(r io.Reader, hash string) error

	// Get retrieves the content for the given hash.
	Get(hash string) (io.ReadCloser, error)
}

// Meta describes one uploaded attachment. Metadata lives in memory only;
// the blob on disk is a cache keyed by content hash.
type Meta struct {
	ID         string `json:"id"`
	Hash       string `json:"-"`
	Name       string `json:"name"`
	MimeType   string `json:"mimeType"`
	Size       int64  `json:"size"`
	UploaderID string `json:"-"`
	CreatedAt  int64  `json:"createdAt"`
}

// Registry maps attachment ids to their metadata.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Meta
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Meta)}
}

// Register records an upload and returns its assigned id.
func (r *Registry) Register(meta Meta) Meta {
	meta.ID = uuid.NewString()
	meta.CreatedAt = time.Now().Unix()

	r.mu.Lock()
	r.byID[meta.ID] = meta
	r.mu.Unlock()

	return meta
}

// Lookup returns the metadata for an attachment id.
func (r *Registry) Lookup(id string) (Meta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.byID[id]
	if !ok {
		return Meta{}, fmt.Errorf("%w: file %s", models.ErrNotFound, id)
	}
	return meta, nil
}
