package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intelligentbasedhms/hms-gateway/internal/http/middleware"
	"github.com/intelligentbasedhms/hms-gateway/internal/services"
)

// HeaderIdempotencyReplayed marks a response served from a remembered turn.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// ChatRequest is the JSON payload of one chat turn.
type ChatRequest struct {
	// Message is the user's text. It must be non-empty.
	Message string `json:"message" example:"How many hours of sleep do adults need?"`
	// ThreadID continues an existing thread; omit it to start a new one.
	ThreadID string `json:"thread_id,omitempty" example:"5b3c1f0e-8d7a-4a53-9a51-1c6f3e0b2d4e"`
}

// Chat godoc
// @ID          chat
// @Summary     Send a chat message
// @Description Runs one turn against the conversational engine and returns the full assistant reply.
// @Description A missing thread_id starts a new thread whose id is returned.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Replay a previous successful turn"  example(turn-42)
// @Param       body             body    handlers.ChatRequest  true  "Chat turn"
//
// @Success     200  {object}  services.ChatResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a remembered turn"
// @Failure     400  {object}  handlers.ErrorResponse  "Message is required"
// @Failure     500  {object}  handlers.ErrorResponse  "Chatbot error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	// An empty message never replays; Turn rejects it below.
	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && req.Message != "" && middleware.IsReplay(c) {
		if resp, found := h.chat.Replay(ctx, key); found {
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, resp)
			return
		}
	}

	resp, err := h.chat.Turn(ctx, req.Message, req.ThreadID)
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Message is required")
		return
	case errors.Is(err, services.ErrEngine):
		fail(c, http.StatusInternalServerError, ErrCodeChatFailed, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if hasKey {
		if err := h.chat.Remember(ctx, key, resp); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("thread_id", resp.ThreadID).Msg("remember turn failed")
		}
	}
	ok(c, http.StatusOK, resp)
}
