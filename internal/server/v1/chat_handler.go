package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/internal/router"
	"github.com/loopline/concierge/internal/server/middleware"
	"github.com/loopline/concierge/internal/server/validator"
	"github.com/loopline/concierge/pkg/api"
)

// Completer is the routing surface the handlers depend on.
type Completer interface {
	Complete(ctx context.Context, req router.Request) router.Result
}

type ChatHandler struct {
	completer Completer
}

func NewChatHandler(completer Completer) *ChatHandler {
	return &ChatHandler{completer: completer}
}

func (h *ChatHandler) CreateCompletion(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	result := h.completer.Complete(c.Request.Context(), router.Request{
		RequestID: c.GetString(middleware.ContextKeyRequestID),
		Messages:  req.Messages,
		Model:     req.Model,
	})

	if result.Exhausted {
		_ = c.Error(api.ProviderUnavailableError())
		return
	}

	c.JSON(http.StatusOK, api.CompletionResponse{Content: result.Content})
}
