package assistant

import (
	"strings"

	"Glupulse_Assistant/internal/models"
	"Glupulse_Assistant/internal/responder"
	"Glupulse_Assistant/internal/session"
	"Glupulse_Assistant/internal/utility"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Frame is every server-to-client socket message. Reply fields are inlined
// on answer frames.
type Frame struct {
	Type string `json:"type"`
	*responder.Reply
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Profile  *models.UserProfile  `json:"profile,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// ChatSocketHandler upgrades to a WebSocket and answers each {"query": ...}
// with a thinking frame followed by an answer frame.
func (h *Handler) ChatSocketHandler(c echo.Context) error {
	logger := utility.LoggerFromContext(c)

	sess, err := session.FromContext(c)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	client := utility.NewClient(ws)
	h.hub.Register(sess.ID, client)
	defer h.hub.Unregister(sess.ID, client)

	ctx := c.Request().Context()
	for {
		var req ChatRequest
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return nil
		}

		query := strings.TrimSpace(req.Query)
		if query == "" {
			if err := client.WriteJSON(Frame{Type: EventError, Error: "Query is required"}); err != nil {
				return nil
			}
			continue
		}

		if err := client.WriteJSON(Frame{Type: EventThinking}); err != nil {
			return nil
		}

		reply, msgs := sess.Ask(ctx, h.provider, query)
		logger.Info().Str("source", string(reply.Source)).Bool("failed", reply.Failed).Msg("Socket chat turn answered")

		if err := client.WriteJSON(Frame{Type: EventAnswer, Reply: &reply, Messages: msgs}); err != nil {
			logger.Warn().Err(err).Msg("WebSocket write failed")
			return nil
		}
	}
}
