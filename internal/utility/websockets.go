package utility

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// NewUpgrader accepts same-origin handshakes plus the listed origins.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     OriginChecker(allowedOrigins),
	}
}

// OriginChecker allows requests without an Origin header, requests whose
// Origin host matches the Host header, and exact matches in allowedOrigins.
func OriginChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowedOrigins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// Client is one open socket. gorilla/websocket allows a single concurrent
// writer, so every write goes through WriteJSON.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

func (cl *Client) WriteJSON(v any) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.WriteJSON(v)
}

// Hub holds the open socket of each session: map[sessionID] -> Client
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register a new client connection. A newer tab replaces the older one.
func (h *Hub) Register(sessionID string, cl *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[sessionID] = cl
	log.Info().Str("session_id", sessionID).Msg("WebSocket Client Connected")
}

// Unregister removes cl if it is still the session's current client.
func (h *Hub) Unregister(sessionID string, cl *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[sessionID]; ok && cur == cl {
		delete(h.clients, sessionID)
		log.Info().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
	}
}

// Notify sends v to the session's socket, if one is open.
func (h *Hub) Notify(sessionID string, v any) {
	h.mu.Lock()
	cl, ok := h.clients[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}

	if err := cl.WriteJSON(v); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send WS message, removing client")
		cl.conn.Close()
		h.Unregister(sessionID, cl)
	}
}

// Len returns the number of open sockets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
