package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/collector"
	"github.com/ghinsight/ghinsight/internal/domain"
	"github.com/ghinsight/ghinsight/internal/observability"
	"github.com/ghinsight/ghinsight/internal/storage"
)

// CollectionService runs and prices collections. *collector.Orchestrator
// satisfies it.
type CollectionService interface {
	Collect(ctx context.Context, projectID string, options domain.CollectionOptions) (*domain.AggregateResult, error)
	Estimate(ctx context.Context, projectID string, options domain.CollectionOptions) (*collector.Feasibility, error)
}

// LimitChecker reports the current rate limit snapshot
type LimitChecker interface {
	CheckCurrentLimits(ctx context.Context) (*domain.RateLimitSnapshot, error)
}

// Handler handles API requests
type Handler struct {
	collector CollectionService
	store     storage.Storage
	limits    LimitChecker
	recorder  *observability.Recorder
	logger    *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(collection CollectionService, store storage.Storage, limits LimitChecker, recorder *observability.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		collector: collection,
		store:     store,
		limits:    limits,
		recorder:  recorder,
		logger:    logger,
	}
}

// CollectRequest is the body of collection and estimate requests. A missing
// options block means full defaults.
type CollectRequest struct {
	Project string                    `json:"project" binding:"required"`
	Options *domain.CollectionOptions `json:"options"`
}

func (r *CollectRequest) options() domain.CollectionOptions {
	if r.Options != nil {
		return *r.Options
	}
	return domain.DefaultOptions()
}

// StartCollection runs a full collection and persists the result
// POST /api/v1/collections
func (h *Handler) StartCollection(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}

	result, err := h.collector.Collect(c.Request.Context(), req.Project, req.options())
	if err != nil {
		h.recorder.ObserveFailure()
		respondError(c, err)
		return
	}
	h.recorder.ObserveRun(result)

	// The budget is already spent, so a storage failure must not turn the
	// collected result into an error response
	if err := h.store.SaveRun(c.Request.Context(), result); err != nil {
		h.logger.Error("failed to persist run",
			"run_id", result.Metadata.Execution.RunID,
			"error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// EstimateCollection prices a collection without running it
// POST /api/v1/collections/estimate
func (h *Handler) EstimateCollection(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}

	feasibility, err := h.collector.Estimate(c.Request.Context(), req.Project, req.options())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": feasibility,
	})
}

// ListRuns returns stored run summaries, newest first
// GET /api/v1/runs?project=&limit=
func (h *Handler) ListRuns(c *gin.Context) {
	project := c.Query("project")
	limit := parseIntQuery(c, "limit", 20)

	runs, err := h.store.ListRuns(c.Request.Context(), project, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
	})
}

// GetRun returns one stored result in full
// GET /api/v1/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	result, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// GetRunMetrics returns only the computed metrics of one stored run
// GET /api/v1/runs/:id/metrics
func (h *Handler) GetRunMetrics(c *gin.Context) {
	result, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Metrics,
	})
}

// GetProjectMetrics returns the metrics of the project's most recent run
// GET /api/v1/projects/:project/metrics
func (h *Handler) GetProjectMetrics(c *gin.Context) {
	result, err := h.store.LatestRun(c.Request.Context(), c.Param("project"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"run_id":     result.Metadata.Execution.RunID,
			"project_id": result.Metadata.Collection.ProjectID,
			"metrics":    result.Metrics,
		},
	})
}

// GetLimits returns the live rate limit snapshot
// GET /api/v1/limits
func (h *Handler) GetLimits(c *gin.Context) {
	snapshot, err := h.limits.CheckCurrentLimits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.recorder.ObserveSnapshot(snapshot)

	c.JSON(http.StatusOK, gin.H{
		"data": snapshot,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeForbidden:
			status = http.StatusForbidden
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeRateLimited, apperrors.ErrCodeBudgetInfeasible:
			status = http.StatusTooManyRequests
		case apperrors.ErrCodeCollectionFailed, apperrors.ErrCodeTransport:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
