package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/repository"
	"support-chat/internal/service"
	"support-chat/internal/stream"
)

// ChatHandler sirve el stream de eventos de cada turno.
type ChatHandler struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	limiter       service.TurnLimiter
	router        service.AgentRouter
	delay         time.Duration
}

// NewChatHandler crea una instancia de ChatHandler. delay separa los
// fragmentos de texto para simular generacion incremental. limiter puede ser nil.
func NewChatHandler(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	limiter service.TurnLimiter,
	delay time.Duration,
) *ChatHandler {
	return &ChatHandler{
		logger:        logger,
		conversations: conversations,
		limiter:       limiter,
		delay:         delay,
	}
}

// PostMessage maneja POST /api/chat/messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req domain.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if h.limiter != nil && !h.limiter.Allow(ctx, req.UserID) {
		h.logger.Warn("turn rate limited", zap.String("user_id", req.UserID))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages"})
		return
	}

	conversationID, err := h.resolveConversation(ctx, req)
	if err != nil {
		h.logger.Error("resolve conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start conversation"})
		return
	}

	events := h.router.Script(conversationID, req.Message)
	h.logger.Info("turn started",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", req.UserID),
		zap.String("agent", h.router.Route(req.Message)),
	)

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	for _, ev := range events {
		line, err := stream.EncodeEvent(ev)
		if err != nil {
			h.logger.Error("encode event failed", zap.Error(err))
			return
		}
		if _, err := c.Writer.Write(line); err != nil {
			h.logger.Warn("client went away", zap.Error(err), zap.String("conversation_id", conversationID))
			return
		}
		c.Writer.Flush()

		if ev.Type == domain.EventText && h.delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(h.delay):
			}
		}
	}
}

// resolveConversation reutiliza la conversacion si pertenece al usuario; si no, crea una nueva.
func (h *ChatHandler) resolveConversation(ctx context.Context, req domain.TurnRequest) (string, error) {
	if req.ConversationID != "" {
		owner, ok, err := h.conversations.Owner(ctx, req.ConversationID)
		if err != nil {
			return "", err
		}
		if ok && owner == req.UserID {
			return req.ConversationID, nil
		}
	}

	id := uuid.NewString()
	if err := h.conversations.Create(ctx, id, req.UserID); err != nil {
		return "", err
	}
	return id, nil
}

// Health maneja GET /healthz.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
