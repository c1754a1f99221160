package api

import (
	"encoding/json"
	"net/http"

	"parley/internal/auth"
)

// AdminHandler serves the operator-only provisioning surface. It listens on
// a separate address and is never exposed publicly.
type AdminHandler struct {
	auth *auth.Service
}

func NewAdminHandler(authService *auth.Service) *AdminHandler {
	return &AdminHandler{auth: authService}
}

type AddUserRequest struct {
	Username string `json:"username"`
}

type AddUserResponse struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	// Password is generated server-side and shown exactly once.
	Password string `json:"password"`
}

func (h *AdminHandler) AddUserHandler(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	ident, password, err := h.auth.Provision(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, AddUserResponse{
		Username: ident.Name,
		UserID:   ident.ID,
		Password: password,
	})
}
