/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
session store, socket hub and response provider into the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"Glupulse_Assistant/internal/assistant"
	"Glupulse_Assistant/internal/config"
	"Glupulse_Assistant/internal/health"
	"Glupulse_Assistant/internal/responder"
	"Glupulse_Assistant/internal/session"
	"Glupulse_Assistant/internal/utility"
	"github.com/gorilla/sessions"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// sessionStore holds every live conversation in memory.
	sessionStore *session.Store

	// cookies signs the cookie that carries the session id.
	cookies sessions.Store

	// allowedOrigins may call the API cross-origin. Empty means same-origin only.
	allowedOrigins []string

	hub       *utility.Hub
	health    *health.Service
	assistant *assistant.Handler
}

func newApp(cfg *config.Config, provider responder.Provider) *Server {
	hub := utility.NewHub()
	store := session.NewStore(cfg.Session.Capacity, cfg.Session.TTL, cfg.Chat.Greeting)

	return &Server{
		port:           cfg.Port,
		sessionStore:   store,
		cookies:        session.NewCookieStore(cfg.Session.Secret, cfg.Session.TTL, cfg.IsProduction()),
		allowedOrigins: cfg.AllowedOrigins,
		hub:            hub,
		health:         health.NewService(provider.Name(), cfg.APIKey != "", store, hub),
		assistant:      assistant.NewHandler(provider, hub, cfg.AllowedOrigins...),
	}
}

// NewServer returns a configured *http.Server for cfg that answers chat
// turns with provider.
func NewServer(cfg *config.Config, provider responder.Provider) *http.Server {
	app := newApp(cfg, provider)

	// WriteTimeout has to outlast a full retry cycle of the inference client.
	writeTimeout := time.Duration(cfg.Inference.MaxAttempts)*cfg.Inference.AttemptTimeout +
		time.Duration(1<<cfg.Inference.MaxAttempts)*cfg.Inference.InitialDelay +
		30*time.Second

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", app.port),
		Handler:      app.RegisterRoutes(), // Injected from routes.go
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}
}
