package webhook

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Responder turns an inbound user message into a reply.
type Responder interface {
	Handle(ctx context.Context, userID, text string) (string, error)
}

// Messenger delivers replies and resolves media through the channel.
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
	FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Handler serves the webhook endpoints.
type Handler struct {
	engine      Responder
	channel     Messenger
	transcriber Transcriber
	verifyToken string
	log         zerolog.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(engine Responder, channel Messenger, transcriber Transcriber, verifyToken string, log zerolog.Logger) *Handler {
	return &Handler{
		engine:      engine,
		channel:     channel,
		transcriber: transcriber,
		verifyToken: verifyToken,
		log:         log,
	}
}

// RegisterRoutes registers the webhook endpoints on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/webhook", h.Verify)
	e.POST("/webhook", h.Receive)
	e.GET("/health", h.Health)
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Verify answers the Graph API subscription handshake: echo the challenge
// when the verify token matches, 403 otherwise.
func (h *Handler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		return c.String(http.StatusOK, challenge)
	}

	h.log.Warn().Str("mode", mode).Msg("webhook verification rejected")
	return c.NoContent(http.StatusForbidden)
}

// Receive processes a webhook delivery. It always acknowledges with 200 once
// the payload parses; per-message failures are logged, not returned, so the
// Graph API does not redeliver the whole batch.
func (h *Handler) Receive(c echo.Context) error {
	var payload Payload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
	}

	ctx := c.Request().Context()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for i := range change.Value.Messages {
				h.process(ctx, &change.Value.Messages[i])
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// process handles one inbound message end to end: resolve it to text, run
// the conversation engine and send the reply back.
func (h *Handler) process(ctx context.Context, msg *Message) {
	log := h.log.With().
		Str("trace_id", uuid.NewString()).
		Str("from", msg.From).
		Str("message_id", msg.ID).
		Str("type", msg.Type).
		Logger()

	text, ok := h.resolveText(ctx, msg, log)
	if !ok {
		return
	}

	reply, err := h.engine.Handle(ctx, msg.From, text)
	if err != nil {
		log.Error().Err(err).Msg("failed to handle message")
		reply = "Desculpe, algo deu errado por aqui. Pode tentar de novo em instantes?"
	}

	if err := h.channel.SendText(ctx, msg.From, reply); err != nil {
		log.Error().Err(err).Msg("failed to send reply")
		return
	}
	log.Info().Msg("message handled")
}

// resolveText extracts the user's text, transcribing voice notes.
func (h *Handler) resolveText(ctx context.Context, msg *Message, log zerolog.Logger) (string, bool) {
	switch msg.Type {
	case "text":
		if msg.Text == nil || msg.Text.Body == "" {
			return "", false
		}
		return msg.Text.Body, true

	case "audio":
		if msg.Audio == nil {
			return "", false
		}
		data, _, err := h.channel.FetchMedia(ctx, msg.Audio.ID)
		if err != nil {
			log.Error().Err(err).Str("media_id", msg.Audio.ID).Msg("failed to fetch audio")
			return "", false
		}
		text, err := h.transcriber.Transcribe(ctx, data, msg.Audio.ID+".ogg")
		if err != nil {
			log.Error().Err(err).Str("media_id", msg.Audio.ID).Msg("failed to transcribe audio")
			return "", false
		}
		return text, true

	default:
		log.Debug().Msg("unsupported message type dropped")
		return "", false
	}
}
