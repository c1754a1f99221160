package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

type tokenChecker interface {
	GetUserID(token string) (string, error)
}

// Server upgrades authenticated HTTP requests to websocket connections.
type Server struct {
	auth     tokenChecker
	hub      *Hub
	store    appender
	upgrader *websocket.Upgrader
}

func NewServer(auth tokenChecker, hub *Hub, store appender) *Server {
	return &Server{
		auth:  auth,
		hub:   hub,
		store: store,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Same-origin is enforced on the state-changing API endpoints.
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("token")
	if token == "" {
		if c, err := r.Cookie("token"); err == nil {
			token = c.Value
		}
	}

	userID, err := s.auth.GetUserID(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("error upgrading to websocket: %v", err)
		return
	}

	c := NewConnection(s.hub, s.store, conn, userID)
	if err := c.Handle(r.Context()); err != nil {
		log.Printf("websocket session ended with error: %v", err)
	}
}
