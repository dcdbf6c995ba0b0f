// README: AI intent suggestion endpoint, quota-guarded.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gofer/internal/ai"
	"gofer/internal/http/middleware"
	"gofer/internal/modules/aiusage"
)

type AIHandler struct {
	provider ai.LLMProvider
	usage    *aiusage.Service
}

// NewAIHandler wires the suggestion endpoint. provider may be nil when
// no API key is configured; the endpoint then reports unavailable.
func NewAIHandler(provider ai.LLMProvider, usage *aiusage.Service) *AIHandler {
	return &AIHandler{provider: provider, usage: usage}
}

type suggestReq struct {
	Description string `json:"description"`
}

func (h *AIHandler) Suggest(c *gin.Context) {
	if h.provider == nil {
		writeError(c, http.StatusServiceUnavailable, "ai suggestion not configured")
		return
	}
	var req suggestReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Description == "" {
		writeError(c, http.StatusBadRequest, "missing description")
		return
	}
	if h.usage != nil {
		if err := h.usage.UseToken(c.Request.Context(), middleware.CallerUID(c)); err != nil {
			if errors.Is(err, aiusage.ErrInsufficientTokens) {
				writeError(c, http.StatusTooManyRequests, err.Error())
				return
			}
			writeServiceError(c, err)
			return
		}
	}
	result, err := h.provider.SuggestIntent(c.Request.Context(), req.Description)
	if err != nil {
		writeError(c, http.StatusBadGateway, "suggestion failed")
		return
	}
	writeJSON(c, http.StatusOK, result)
}
