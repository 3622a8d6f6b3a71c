package handler

import (
	"errors"
	"net/http"
	"strings"

	"advisor-service/internal/models"
	"advisor-service/internal/orchestrator"
	"advisor-service/internal/service"
	"advisor-service/internal/session"
	"advisor-service/internal/training"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	advisor *service.Advisor
	logger  *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(advisor *service.Advisor, logger *zap.Logger) *Handler {
	return &Handler{
		advisor: advisor,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Catalogue
		api.GET("/models", h.ListModels)
		api.GET("/chains", h.ListChains)

		// Comparison sessions
		api.POST("/ask", h.Ask)
		api.GET("/sessions/:id", h.GetSession)
		api.POST("/sessions/:id/select", h.Select)
		api.POST("/sessions/:id/save", h.Save)

		// Training data
		api.GET("/training", h.ListTraining)
		api.DELETE("/training", h.ClearTraining)
		api.GET("/stats", h.GetStats)

		// Export
		api.GET("/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// ListModels returns the model registry
func (h *Handler) ListModels(c *gin.Context) {
	list := h.advisor.Models()
	c.JSON(http.StatusOK, gin.H{
		"models": list,
		"total":  len(list),
	})
}

// ListChains returns the chain catalogue. ?enabled=openai,gemini restricts
// runnability to the listed models.
func (h *Handler) ListChains(c *gin.Context) {
	var enabled map[string]bool
	if raw, ok := c.GetQuery("enabled"); ok {
		enabled = map[string]bool{}
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				enabled[id] = true
			}
		}
	}

	list := h.advisor.Chains(enabled)
	c.JSON(http.StatusOK, gin.H{
		"chains": list,
		"total":  len(list),
	})
}

// Ask handles a question submission
func (h *Handler) Ask(c *gin.Context) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.advisor.Ask(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrNoProvidersEnabled):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, orchestrator.ErrEmptyQuestion),
			errors.Is(err, orchestrator.ErrUnknownMode),
			errors.Is(err, orchestrator.ErrChainOverrideMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, orchestrator.ErrChainNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to answer question", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ask failed"})
		}
		return
	}

	c.JSON(http.StatusOK, sess)
}

// GetSession returns an open session
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.advisor.Session(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// Select records the preferred answer
func (h *Handler) Select(c *gin.Context) {
	var req models.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.advisor.Select(c.Param("id"), req.Option)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// Save persists a selected session as training data
func (h *Handler) Save(c *gin.Context) {
	resp, err := h.advisor.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrUnknownOption),
		errors.Is(err, session.ErrNothingToSelect),
		errors.Is(err, session.ErrNoSelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrAlreadyPersisted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Session operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session operation failed"})
	}
}

// ListTraining returns all stored training entries
func (h *Handler) ListTraining(c *gin.Context) {
	entries, err := h.advisor.ListTraining(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get training data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get training data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// ClearTraining deletes all training entries
func (h *Handler) ClearTraining(c *gin.Context) {
	if err := h.advisor.ClearTraining(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear training data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear training data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// GetStats returns win rates and category breakdowns
func (h *Handler) GetStats(c *gin.Context) {
	report, err := h.advisor.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportJSON exports selected training entries
func (h *Handler) ExportJSON(c *gin.Context) {
	out, err := h.advisor.ExportJSON(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, training.ErrPersistence) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(status, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=training_data.json")
	c.Data(http.StatusOK, "application/json", []byte(out))
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "advisor-service",
		"version": "1.0.0",
	})
}
