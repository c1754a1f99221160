package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"parley/internal/filestore"
	"parley/internal/models"

	"github.com/h2non/filetype"
)

// UploadHandler accepts one multipart file, sniffs its type, stores the blob
// content-addressed and registers metadata for later attachment references.
func (a *API) UploadHandler(w http.ResponseWriter, r *http.Request, userID string) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Upload too large", http.StatusBadRequest)
		return
	}

	kind, err := filetype.Match(data)
	mime := "application/octet-stream"
	attachmentType := models.AttachmentTypeFile
	if err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
		if filetype.IsImage(data) {
			attachmentType = models.AttachmentTypeImage
		}
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if err := a.blobs.Save(bytes.NewReader(data), hash); err != nil {
		writeError(w, err)
		return
	}

	meta := a.files.Register(filestore.Meta{
		Hash:       hash,
		Name:       header.Filename,
		MimeType:   mime,
		Size:       int64(len(data)),
		UploaderID: userID,
	})

	writeJSON(w, map[string]any{
		"file": meta,
		"attachment": models.Attachment{
			Type:     attachmentType,
			Name:     meta.Name,
			MimeType: meta.MimeType,
			FileID:   meta.ID,
		},
	})
}

// FileHandler streams a previously uploaded blob.
func (a *API) FileHandler(w http.ResponseWriter, r *http.Request) {
	meta, err := a.files.Lookup(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	rc, err := a.blobs.Get(meta.Hash)
	if err != nil {
		writeError(w, models.ErrNotFound)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", meta.MimeType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		return
	}
}
