package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"mailgate/internal/authflow"
	"mailgate/internal/config"
	"mailgate/internal/credentials"
	"mailgate/internal/provider"
	"mailgate/internal/token"
	"mailgate/internal/translog"
)

// Server is the HTTP front of the gateway.
type Server struct {
	router    *mux.Router
	apiKey    string
	preferred string

	flow      *authflow.Controller
	creds     *credentials.Store
	refresher *token.Refresher
	resolver  *provider.Resolver
	gmail     provider.Backend
	recorder  translog.Recorder
}

func NewServer(
	cfg *config.Config,
	flow *authflow.Controller,
	creds *credentials.Store,
	refresher *token.Refresher,
	resolver *provider.Resolver,
	gmail provider.Backend,
	recorder translog.Recorder,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		apiKey:    cfg.Server.APIKey,
		preferred: cfg.Provider.Preferred,
		flow:      flow,
		creds:     creds,
		refresher: refresher,
		resolver:  resolver,
		gmail:     gmail,
		recorder:  recorder,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthCheck", s.handleHealthCheck).Methods("GET")

	s.router.HandleFunc("/v1/oauth/authorize", s.handleAuthorize).Methods("POST")
	s.router.HandleFunc("/v1/oauth/callback", s.handleCallbackGet).Methods("GET")
	s.router.HandleFunc("/v1/oauth/callback", s.handleCallbackPost).Methods("POST")

	s.router.HandleFunc("/v1/users/{user_id}/messages", s.handleUserSend).Methods("POST")
	s.router.HandleFunc("/v1/users/{user_id}/profile", s.handleProfile).Methods("GET")
	s.router.HandleFunc("/v1/users/{user_id}/gmail", s.handleDisconnect).Methods("DELETE")

	s.router.HandleFunc("/v1/messages", s.handleSend).Methods("POST")
	s.router.HandleFunc("/v1/providers", s.handleProviders).Methods("GET")

	s.router.HandleFunc("/v1/reports/users/{user_id}", s.handleUserReport).Methods("GET")
	s.router.HandleFunc("/v1/reports/summary", s.handleSummary).Methods("GET")
}

// Handler returns the full middleware-wrapped handler chain.
func (s *Server) Handler() http.Handler {
	return requestIDMiddleware(corsMiddleware(s.apiKeyMiddleware(s.router)))
}

func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Starting API server on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
