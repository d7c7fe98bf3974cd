package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/dcsim/internal/linebot"
	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/resilience"
	"github.com/OldStager01/dcsim/pkg/validation"
)

const lineSignatureHeader = "X-Line-Signature"

// WebhookHandler processes a signed LINE webhook body.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (linebot.WebhookResult, error)
}

// Messenger sends outbound LINE messages.
type Messenger interface {
	Push(ctx context.Context, to, text string) error
	Broadcast(ctx context.Context, text string) error
}

type LineHandler struct {
	bot       WebhookHandler
	messenger Messenger
}

func NewLineHandler(bot WebhookHandler, messenger Messenger) *LineHandler {
	return &LineHandler{bot: bot, messenger: messenger}
}

// Webhook always answers 200; LINE keeps redelivering anything else.
func (h *LineHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.WarnCtxf(c.Request.Context(), "Failed to read LINE webhook body: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	result, err := h.bot.HandleWebhook(c.Request.Context(), body, c.GetHeader(lineSignatureHeader))
	if err != nil {
		logger.WarnCtxf(c.Request.Context(), "LINE webhook rejected: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": result})
}

type PushRequest struct {
	UserID  string `json:"userId" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type BroadcastRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *LineHandler) Push(c *gin.Context) {
	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateLineUserID(req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateMessage(req.Message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.messenger.Push(c.Request.Context(), req.UserID, validation.SanitizeString(req.Message))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "timestamp": timestamp()})
}

func (h *LineHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateMessage(req.Message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messenger.Broadcast(c.Request.Context(), validation.SanitizeString(req.Message)); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "timestamp": timestamp()})
}

func (h *LineHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, linebot.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "line messaging is not configured"})
	case errors.Is(err, resilience.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "line messaging temporarily unavailable"})
	default:
		logger.ErrorCtxf(c.Request.Context(), "LINE send failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send line message"})
	}
}
