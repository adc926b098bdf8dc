package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/actions"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/middleware"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/models"
	"github.com/Ayash-Bera/clinical-trials-sorter/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ActionRouter is satisfied by *actions.Router.
type ActionRouter interface {
	Handle(ctx context.Context, event actions.Event) (*actions.Result, error)
}

type ActionHandler struct {
	router      ActionRouter
	invocations models.ActionInvocationRepository
	timeout     time.Duration
	logger      *logrus.Logger
}

// NewActionHandler builds the handler; invocations may be nil to disable tracking.
func NewActionHandler(router ActionRouter, invocations models.ActionInvocationRepository, logger *logrus.Logger) *ActionHandler {
	return &ActionHandler{
		router:      router,
		invocations: invocations,
		timeout:     2 * time.Minute,
		logger:      logger,
	}
}

// HandleAction routes an agent action event and returns the response envelope.
func (h *ActionHandler) HandleAction(c *gin.Context) {
	startTime := time.Now()

	var event actions.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.WithError(err).Error("Invalid action event")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.router.Handle(ctx, event)
	if err != nil {
		if errors.Is(err, actions.ErrMissingParameter) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Missing action parameter", err)
			return
		}
		h.logger.WithError(err).Error("Action failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Action failed", err)
		return
	}

	responseTime := time.Since(startTime)

	if h.invocations != nil {
		invocation := &models.ActionInvocation{
			ActionGroup:    event.ActionGroup,
			APIPath:        event.APIPath,
			HTTPMethod:     event.HTTPMethod,
			Operation:      string(result.Operation),
			ValidRoute:     result.Operation != actions.OperationInvalid,
			ResultCount:    result.ResultCount,
			ResponseTimeMs: int(responseTime.Milliseconds()),
			SessionID:      event.SessionID,
			RequestID:      c.GetString(middleware.RequestIDKey),
		}
		go h.trackInvocation(invocation)
	}

	h.logger.WithFields(logrus.Fields{
		"api_path":      event.APIPath,
		"operation":     result.Operation,
		"result_count":  result.ResultCount,
		"response_time": responseTime.Milliseconds(),
	}).Info("Action completed")

	c.JSON(http.StatusOK, result.Response)
}

// GetActionStats returns per-path invocation statistics for the last N hours.
func (h *ActionHandler) GetActionStats(c *gin.Context) {
	if h.invocations == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Analytics disabled", nil)
		return
	}

	var query struct {
		Hours int `form:"hours"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid hours parameter", err)
		return
	}
	if query.Hours <= 0 || query.Hours > 24*30 {
		query.Hours = 24
	}

	to := time.Now()
	from := to.Add(-time.Duration(query.Hours) * time.Hour)

	stats, err := h.invocations.GetStats(from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get action stats")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get stats", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Action stats", stats)
}

// GetRecentActions lists the latest invocations, or one session's when
// session_id is given.
func (h *ActionHandler) GetRecentActions(c *gin.Context) {
	if h.invocations == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Analytics disabled", nil)
		return
	}

	var query struct {
		SessionID string `form:"session_id"`
		Limit     int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}

	var (
		invocations []models.ActionInvocation
		err         error
	)
	if query.SessionID != "" {
		if !utils.ValidateSessionID(query.SessionID) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session id", nil)
			return
		}
		invocations, err = h.invocations.GetBySession(query.SessionID)
		if len(invocations) > query.Limit {
			invocations = invocations[:query.Limit]
		}
	} else {
		invocations, err = h.invocations.GetRecent(query.Limit)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent actions")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get recent actions", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Recent actions", invocations)
}

func (h *ActionHandler) trackInvocation(invocation *models.ActionInvocation) {
	if err := h.invocations.Create(invocation); err != nil {
		h.logger.WithError(err).WithField("api_path", invocation.APIPath).Error("Failed to track action invocation")
	}
}
