package server

import (
	"html/template"
	"io"
	"net/http"

	"Glupulse_Assistant/internal/session"
	"Glupulse_Assistant/internal/utility"
	"Glupulse_Assistant/web"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// The session cookie is only shared with explicitly configured origins.
	if len(s.allowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	e.Use(LoggerMiddleware)

	e.Renderer = &TemplateRenderer{
		templates: template.Must(template.ParseFS(web.Templates, "templates/*.html")),
	}

	e.GET("/health", s.healthHandler)

	// Everything below belongs to a browser session.
	app := e.Group("", session.Middleware(s.sessionStore, s.cookies))

	app.GET("/", s.assistant.IndexHandler)

	// Profile Routes
	app.GET("/api/profile", s.assistant.GetProfileHandler)
	app.PUT("/api/profile", s.assistant.UpdateProfileHandler)
	app.GET("/api/profile/summary", s.assistant.GetProfileSummaryHandler)

	// Chat Routes
	app.GET("/api/messages", s.assistant.GetMessagesHandler)
	app.POST("/api/chat", s.assistant.ChatHandler)
	app.DELETE("/api/messages", s.assistant.ResetMessagesHandler)

	// Websocket for the chat widget
	app.GET("/ws/chat", s.assistant.ChatSocketHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.health.Health())
}

// LoggerMiddleware tags a request-scoped logger with the request id and
// stores it both on the echo context and on the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("ip", utility.GetRealIP(c)).
			Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}
