// Package assistant holds the HTTP and WebSocket handlers of the chat widget.
package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"Glupulse_Assistant/internal/models"
	"Glupulse_Assistant/internal/responder"
	"Glupulse_Assistant/internal/session"
	"Glupulse_Assistant/internal/utility"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Event types pushed to an open socket.
const (
	EventThinking = "thinking"
	EventAnswer   = "answer"
	EventProfile  = "profile"
	EventReset    = "reset"
	EventError    = "error"
)

type Handler struct {
	provider responder.Provider
	hub      *utility.Hub
	upgrader *websocket.Upgrader
}

// NewHandler serves chat turns with provider. Sockets are accepted from the
// page's own origin and from allowedOrigins.
func NewHandler(provider responder.Provider, hub *utility.Hub, allowedOrigins ...string) *Handler {
	return &Handler{provider: provider, hub: hub, upgrader: utility.NewUpgrader(allowedOrigins)}
}

// RequestProfile is a partial profile update. Nil fields are left unchanged.
// Medications accepts either a one-per-line string or a list of strings.
type RequestProfile struct {
	Name               *string         `json:"name"`
	Age                *int            `json:"age"`
	Gender             *string         `json:"gender"`
	HeightCm           *int            `json:"height_cm"`
	WeightKg           *int            `json:"weight_kg"`
	DiabetesType       *string         `json:"diabetes_type"`
	DiagnosisYear      *int            `json:"diagnosis_year"`
	RecentGlucoseMgdl  *int            `json:"recent_glucose_mgdl"`
	TargetGlucoseRange *string         `json:"target_glucose_range"`
	Medications        json.RawMessage `json:"medications"`
	SpecialNotes       *string         `json:"special_notes"`
}

type ChatRequest struct {
	Query string `json:"query"`
}

type ChatResponse struct {
	responder.Reply
	Messages []models.ChatMessage `json:"messages"`
}

// apply copies the set fields of req onto p.
func (req *RequestProfile) apply(p *models.UserProfile) error {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		p.Age = *req.Age
	}
	if req.Gender != nil {
		p.Gender = models.Gender(strings.ToLower(strings.TrimSpace(*req.Gender)))
	}
	if req.HeightCm != nil {
		p.HeightCm = *req.HeightCm
	}
	if req.WeightKg != nil {
		p.WeightKg = *req.WeightKg
	}
	if req.DiabetesType != nil {
		p.DiabetesType = models.DiabetesType(strings.ToLower(strings.TrimSpace(*req.DiabetesType)))
	}
	if req.DiagnosisYear != nil {
		p.DiagnosisYear = *req.DiagnosisYear
	}
	if req.RecentGlucoseMgdl != nil {
		p.RecentGlucoseMgdl = *req.RecentGlucoseMgdl
	}
	if req.TargetGlucoseRange != nil {
		p.TargetGlucoseRange = strings.TrimSpace(*req.TargetGlucoseRange)
	}
	if req.SpecialNotes != nil {
		p.SpecialNotes = strings.TrimSpace(*req.SpecialNotes)
	}

	if len(req.Medications) > 0 && string(req.Medications) != "null" {
		var text string
		if err := json.Unmarshal(req.Medications, &text); err == nil {
			p.Medications = models.ParseMedications(text)
			return nil
		}
		var list []string
		if err := json.Unmarshal(req.Medications, &list); err != nil {
			return errors.New("medications must be a string or a list of strings")
		}
		p.SetMedications(list)
	}
	return nil
}

/* ====================================================================
                   		Profile Handlers
==================================================================== */

// GetProfileHandler returns the session's current profile.
func (h *Handler) GetProfileHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}
	return c.JSON(http.StatusOK, sess.Profile())
}

// UpdateProfileHandler applies a partial update and validates the result.
// Nothing is stored when validation fails.
func (h *Handler) UpdateProfileHandler(c echo.Context) error {
	logger := utility.LoggerFromContext(c)

	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	var req RequestProfile
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	profile := sess.Profile()
	if err := req.apply(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := profile.Validate(); err != nil {
		logger.Info().Err(err).Msg("Rejected profile update")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	sess.SetProfile(profile)
	h.hub.Notify(sess.ID, Frame{Type: EventProfile, Profile: &profile})

	return c.JSON(http.StatusOK, profile)
}

// GetProfileSummaryHandler returns the short profile overview lines.
func (h *Handler) GetProfileSummaryHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{"summary": sess.Profile().Summary()})
}

/* ====================================================================
                   		Chat Handlers
==================================================================== */

func (h *Handler) GetMessagesHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": sess.Messages()})
}

// ChatHandler answers one question. The reply is always displayable; a
// failed answer comes back as 200 with failed=true and a diagnostic.
func (h *Handler) ChatHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Query is required"})
	}

	reply, msgs := sess.Ask(c.Request().Context(), h.provider, query)
	utility.LoggerFromContext(c).Info().
		Str("source", string(reply.Source)).
		Bool("failed", reply.Failed).
		Msg("Chat turn answered")

	return c.JSON(http.StatusOK, ChatResponse{Reply: reply, Messages: msgs})
}

// ResetMessagesHandler clears the transcript back to the greeting.
func (h *Handler) ResetMessagesHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Session unavailable"})
	}

	sess.ResetHistory()
	msgs := sess.Messages()
	h.hub.Notify(sess.ID, Frame{Type: EventReset, Messages: msgs})

	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

// PageData feeds the widget template.
type PageData struct {
	Profile       models.UserProfile
	Summary       []string
	Messages      []models.ChatMessage
	Mode          string
	DiabetesTypes []models.DiabetesType
}

// IndexHandler renders the widget with the session's current state.
func (h *Handler) IndexHandler(c echo.Context) error {
	sess, err := session.FromContext(c)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Session unavailable")
	}
	profile := sess.Profile()
	return c.Render(http.StatusOK, "index.html", PageData{
		Profile:  profile,
		Summary:  profile.Summary(),
		Messages: sess.Messages(),
		Mode:     h.provider.Name(),
		DiabetesTypes: []models.DiabetesType{
			models.DiabetesType1, models.DiabetesType2, models.DiabetesTypeGestational, models.DiabetesTypeOther,
		},
	})
}
