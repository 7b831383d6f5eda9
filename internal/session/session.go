// Package session keeps each browser's profile and transcript in memory.
// Nothing here outlives the process.
package session

import (
	"context"
	"sync"
	"time"

	"Glupulse_Assistant/internal/models"
	"Glupulse_Assistant/internal/responder"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

const (
	DefaultGreeting = "Hello! I am your diabetes care assistant. Ask me anything about diet, exercise or glucose control."
	DefaultCapacity = 1024
	DefaultTTL      = 2 * time.Hour
)

// Session is one conversation. Data access is guarded by mu; turnMu keeps
// questions on the same session strictly sequential.
type Session struct {
	ID string

	mu       sync.RWMutex
	turnMu   sync.Mutex
	greeting string
	profile  models.UserProfile
	history  *models.ChatHistory
}

func newSession(id, greeting string) *Session {
	return &Session{
		ID:       id,
		greeting: greeting,
		profile:  models.DefaultProfile(),
		history:  models.NewChatHistory(greeting),
	}
}

func (s *Session) Profile() models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// SetProfile replaces the profile. Callers validate first.
func (s *Session) SetProfile(p models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p.Clone()
}

func (s *Session) Messages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Messages()
}

// ResetHistory drops the transcript back to the greeting. It waits for an
// in-flight turn so the answer lands in the transcript it belongs to.
func (s *Session) ResetHistory() {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = models.NewChatHistory(s.greeting)
}

// Ask records query, asks p for a reply and records the reply text. It
// returns the reply and the transcript after both messages were added.
func (s *Session) Ask(ctx context.Context, p responder.Provider, query string) (responder.Reply, []models.ChatMessage) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	_ = s.history.Append(models.RoleUser, query)
	turn := responder.Turn{
		Profile: s.profile.Clone(),
		History: s.history.WithoutLast(),
		Query:   query,
	}
	s.mu.Unlock()

	reply := p.Respond(ctx, turn)

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.history.Append(models.RoleAssistant, reply.Text)
	return reply, s.history.Messages()
}

/* ====================================================================
                   		Store
==================================================================== */

// Store is a bounded, expiring in-memory session table.
type Store struct {
	mu       sync.Mutex
	cache    *expirable.LRU[string, *Session]
	greeting string
}

func NewStore(capacity int, ttl time.Duration, greeting string) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if greeting == "" {
		greeting = DefaultGreeting
	}
	onEvict := func(id string, _ *Session) {
		log.Debug().Str("session_id", id).Msg("session evicted")
	}
	return &Store{
		cache:    expirable.NewLRU[string, *Session](capacity, onEvict, ttl),
		greeting: greeting,
	}
}

func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

// GetOrCreate returns the session for id, or a fresh one when id is empty,
// unknown or expired. created reports whether a new session was made.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	sess = newSession(uuid.New().String(), s.greeting)
	s.cache.Add(sess.ID, sess)
	return sess, true
}

func (s *Store) Len() int {
	return s.cache.Len()
}
