package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	CookieName = "glupulse_assistant"

	cookieIDKey = "sid"
	contextKey  = "session"
)

// NewCookieStore returns the signed cookie store that carries session ids.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(int(ttl.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Middleware resolves the caller's Session from the cookie, creating one
// (and setting the cookie) when needed.
func Middleware(store *Store, cookies sessions.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A bad signature yields a fresh cookie session alongside the error.
			cs, _ := cookies.Get(c.Request(), CookieName)
			id, _ := cs.Values[cookieIDKey].(string)

			sess, created := store.GetOrCreate(id)
			if created {
				cs.Values[cookieIDKey] = sess.ID
				if err := cs.Save(c.Request(), c.Response()); err != nil {
					zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("Failed to save session cookie")
					return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start session"})
				}
			}

			logger := zerolog.Ctx(c.Request().Context()).With().Str("session_id", sess.ID).Logger()
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))
			c.Set("logger", &logger)
			c.Set(contextKey, sess)
			return next(c)
		}
	}
}

// FromContext returns the Session Middleware attached to c.
func FromContext(c echo.Context) (*Session, error) {
	sess, ok := c.Get(contextKey).(*Session)
	if !ok || sess == nil {
		return nil, errors.New("session not found in context")
	}
	return sess, nil
}
