package api

import (
	"encoding/json"
	"net/http"
	"time"

	"parley/internal/auth"
	"parley/internal/chat"
	"parley/internal/directory"
	"parley/internal/filestore"
	"parley/internal/models"
	"parley/internal/notify"
	"parley/internal/sidebar"

	webpush "github.com/SherClockHolmes/webpush-go"
)

type API struct {
	auth      *auth.Service
	dir       *directory.Directory
	store     *chat.Store
	projector *sidebar.Projector
	notifier  *notify.Notifier
	blobs     filestore.BlobStore
	files     *filestore.Registry

	maxUploadBytes int64
}

func New(
	authService *auth.Service,
	dir *directory.Directory,
	store *chat.Store,
	projector *sidebar.Projector,
	notifier *notify.Notifier,
	blobs filestore.BlobStore,
	files *filestore.Registry,
	maxUploadBytes int64,
) *API {
	return &API{
		auth:           authService,
		dir:            dir,
		store:          store,
		projector:      projector,
		notifier:       notifier,
		blobs:          blobs,
		files:          files,
		maxUploadBytes: maxUploadBytes,
	}
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	// Support both JSON and form bodies.
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	sess, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    sess.Token,
		HttpOnly: true,
		Path:     "/",
		Expires:  time.Unix(sess.ExpiresAt, 0),
	})

	writeJSON(w, sess)
}

func (a *API) LogoffHandler(w http.ResponseWriter, r *http.Request) {
	if token := getToken(r); token != "" {
		_ = a.auth.Logoff(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusOK)
}

func (a *API) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ident, err := a.auth.Register(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, ident)
}

func (a *API) MeHandler(w http.ResponseWriter, r *http.Request, userID string) {
	ident, ok := a.dir.Get(userID)
	if !ok {
		writeError(w, models.ErrNotFound)
		return
	}
	writeJSON(w, ident)
}

func (a *API) UpdateProfileHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Name      *string        `json:"name"`
		AvatarURL *string        `json:"avatarUrl"`
		Status    *models.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ident, err := a.dir.UpdateIdentity(userID, directory.Update{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Status:    req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, ident)
}

// InitHandler returns the current identity and the sidebar in one call.
func (a *API) InitHandler(w http.ResponseWriter, r *http.Request, userID string) {
	ident, ok := a.dir.Get(userID)
	if !ok {
		writeError(w, models.ErrNotFound)
		return
	}
	items, err := a.projector.List(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"user":    ident,
		"sidebar": items,
	})
}

func (a *API) SidebarHandler(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := a.projector.List(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, items)
}

// ConversationHandler returns the header view plus the full enriched history.
func (a *API) ConversationHandler(w http.ResponseWriter, r *http.Request, userID string) {
	conversationID := r.PathValue("id")

	info, err := a.store.Info(conversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	messages, err := a.store.History(conversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"conversationInfo": info,
		"messages":         messages,
	})
}

func (a *API) SendMessageHandler(w http.ResponseWriter, r *http.Request, userID string) {
	conversationID := r.PathValue("id")

	var req struct {
		Content     string              `json:"content"`
		Attachments []models.Attachment `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Attachments must reference completed uploads.
	for i, att := range req.Attachments {
		meta, err := a.files.Lookup(att.FileID)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Attachments[i].MimeType = meta.MimeType
		if req.Attachments[i].Name == "" {
			req.Attachments[i].Name = meta.Name
		}
	}

	msg, err := a.store.Append(conversationID, userID, req.Content, req.Attachments)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"status":  "success",
		"message": msg,
	})
}

func (a *API) CreateGroupHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := a.store.CreateGroup(req.Name, userID, req.MemberIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := a.store.Info(c.ID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, info)
}

func (a *API) PushSubscribeHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var sub webpush.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || sub.Endpoint == "" {
		http.Error(w, "Invalid subscription", http.StatusBadRequest)
		return
	}

	a.notifier.Subscribe(userID, sub)
	w.WriteHeader(http.StatusOK)
}
