package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"parley/internal/api"
	"parley/internal/ws"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(handlers *api.API, wsServer *ws.Server, addr string) *APIServer {
	mux := http.NewServeMux()

	// Session gate
	mux.HandleFunc("POST /api/login", api.RequireSameOrigin(handlers.LoginHandler))
	mux.HandleFunc("POST /api/logoff", api.RequireSameOrigin(handlers.LogoffHandler))
	mux.HandleFunc("POST /api/register", api.RequireSameOrigin(handlers.RegisterHandler))

	// Profile
	mux.HandleFunc("GET /api/me", handlers.RequireAuth(handlers.MeHandler))
	mux.HandleFunc("POST /api/me/profile", api.RequireSameOrigin(handlers.RequireAuth(handlers.UpdateProfileHandler)))

	// Conversations
	mux.HandleFunc("GET /api/init", handlers.RequireAuth(handlers.InitHandler))
	mux.HandleFunc("GET /api/sidebar", handlers.RequireAuth(handlers.SidebarHandler))
	mux.HandleFunc("GET /api/conversations/{id}", handlers.RequireAuth(handlers.ConversationHandler))
	mux.HandleFunc("POST /api/conversations/{id}/messages", api.RequireSameOrigin(handlers.RequireAuth(handlers.SendMessageHandler)))
	mux.HandleFunc("POST /api/groups", api.RequireSameOrigin(handlers.RequireAuth(handlers.CreateGroupHandler)))

	// Attachments
	mux.HandleFunc("POST /api/upload", api.RequireSameOrigin(handlers.RequireAuth(handlers.UploadHandler)))
	mux.HandleFunc("GET /api/files/{id}", handlers.FileHandler)

	// Push notifications
	mux.HandleFunc("POST /api/push/subscribe", api.RequireSameOrigin(handlers.RequireAuth(handlers.PushSubscribeHandler)))

	// Realtime channel
	mux.HandleFunc("/api/realtime", wsServer.HandleConnections)

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *APIServer) Start() error {
	log.Printf("Server started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
