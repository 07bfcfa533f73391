package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/internal/router"
	"github.com/loopline/concierge/internal/server/middleware"
	"github.com/loopline/concierge/internal/server/validator"
	"github.com/loopline/concierge/internal/store/cache"
	"github.com/loopline/concierge/pkg/api"
	"go.uber.org/zap"
)

const analysisInstruction = "You are a document analysis assistant. " +
	"Examine the provided document and respond with a single JSON object " +
	"containing a \"summary\" field and any structured fields you can extract. " +
	"Respond with JSON only, no prose."

const analysisCacheTTL = time.Hour

type AnalyzeHandler struct {
	completer Completer
	cache     cache.CacheService
	logger    *zap.Logger
}

func NewAnalyzeHandler(completer Completer, cacheSvc cache.CacheService, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		completer: completer,
		cache:     cacheSvc,
		logger:    logger,
	}
}

func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req api.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if req.Prompt == "" && req.Attachment == nil {
		_ = c.Error(api.BadRequestError("Either 'prompt' or 'attachment' must be provided"))
		return
	}

	key := cacheKey(&req)
	var cached api.AnalyzeResponse
	if err := h.cache.Get(c.Request.Context(), key, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	result := h.completer.Complete(c.Request.Context(), router.Request{
		RequestID:        c.GetString(middleware.ContextKeyRequestID),
		Messages:         buildAnalysisMessages(&req),
		Attachment:       req.Attachment,
		HasExtractedText: req.ExtractedText != "",
	})

	if result.Exhausted {
		// Degraded mode: the frontend still gets a renderable analysis shell.
		c.JSON(http.StatusOK, api.AnalyzeResponse{
			Content: "Document analysis is temporarily unavailable.",
			Analysis: map[string]any{
				"summary":   "Analysis could not be completed. Please try again later.",
				"available": false,
			},
			Degraded: true,
		})
		return
	}

	resp := api.AnalyzeResponse{
		Content:  result.Content,
		Analysis: llm.Parse(result.Content),
	}

	if err := h.cache.Set(c.Request.Context(), key, resp, analysisCacheTTL); err != nil {
		h.logger.Warn("failed to cache analysis result", zap.Error(err))
	}

	c.JSON(http.StatusOK, resp)
}

// buildAnalysisMessages assembles the conversation for an analysis request.
// Extracted document text travels inside the messages; the raw attachment
// only matters to providers that accept inline binary parts.
func buildAnalysisMessages(req *api.AnalyzeRequest) []api.ChatMessage {
	prompt := req.Prompt
	if prompt == "" {
		prompt = "Analyze this document."
	}

	messages := []api.ChatMessage{
		{Role: api.RoleSystem, Content: analysisInstruction},
		{Role: api.RoleUser, Content: prompt},
	}

	if req.ExtractedText != "" {
		messages = append(messages, api.ChatMessage{
			Role:    api.RoleUser,
			Content: "Document text:\n" + req.ExtractedText,
		})
	}

	return messages
}

func cacheKey(req *api.AnalyzeRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Prompt))
	h.Write([]byte{0})
	if req.Attachment != nil {
		h.Write([]byte(req.Attachment.MimeType))
		h.Write([]byte{0})
		h.Write(req.Attachment.Data)
	}
	h.Write([]byte{0})
	h.Write([]byte(req.ExtractedText))
	return "analysis:" + hex.EncodeToString(h.Sum(nil))
}
