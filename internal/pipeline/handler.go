package pipeline

import (
	"errors"
	"net/http"

	"rawi/pkg/logging"

	"github.com/gin-gonic/gin"
)

const maxQueryRunes = 10000

// Handler exposes the pipeline over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	metrics      *Metrics
	logger       logging.Logger
}

func NewHandler(orchestrator *Orchestrator, metrics *Metrics, logger logging.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, metrics: metrics, logger: logger}
}

// RegisterRoutes mounts the ask endpoint on the given router group.
func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.POST("/ask", handler.HandleAsk)
}

type askRequest struct {
	Query    string `json:"query"`
	Thinking bool   `json:"thinking"`
}

// HandleAsk serves POST /v1/ask. Pipeline failures map onto HTTP statuses:
// invalid input 400, timeout 504, provider unavailable 502.
func (h *Handler) HandleAsk(c *gin.Context) {
	if h == nil || h.orchestrator == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pipeline unavailable"})
		return
	}
	done := h.metrics.TrackInFlight("http")
	defer done()

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "code": CodeInvalidInput})
		return
	}
	if len([]rune(req.Query)) > maxQueryRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too long", "code": CodeInvalidInput})
		return
	}

	resp, err := h.orchestrator.Process(c.Request.Context(), Query{
		Text:     req.Query,
		Thinking: req.Thinking,
	})
	if err != nil {
		var perr *PipelineError
		if errors.As(err, &perr) {
			c.JSON(statusForCode(perr.Code), gin.H{
				"error": perr.Message,
				"code":  perr.Code,
				"stage": perr.Stage,
			})
			return
		}
		h.logger.WithError(err).Error("Unclassified pipeline failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func statusForCode(code ErrorCode) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
