package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/agent"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/models"
	"github.com/Ayash-Bera/clinical-trials-sorter/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const SessionHeader = "X-Session-ID"

// Agent is satisfied by *agent.Service.
type Agent interface {
	Ask(ctx context.Context, sessionID, question string) (*agent.Answer, error)
	EndSession(ctx context.Context, sessionID string) error
}

type ChatHandler struct {
	agent    Agent
	sessions models.AgentSessionRepository
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewChatHandler builds the handler; sessions may be nil to disable tracking.
func NewChatHandler(agent Agent, sessions models.AgentSessionRepository, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		agent:    agent,
		sessions: sessions,
		timeout:  3 * time.Minute,
		logger:   logger,
	}
}

// HandleChat forwards a question, or a trial request for a patient, to the agent.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		prompt, err := agent.BuildPrompt(req.PatientName, req.Condition)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Patient name and condition are required", err)
			return
		}
		question = prompt
	}

	sessionID, ok := h.sessionID(c, true)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	answer, err := h.agent.Ask(ctx, sessionID, question)
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Error("Agent request failed")
		utils.ErrorResponse(c, http.StatusBadGateway, "Agent request failed", err)
		return
	}

	if h.sessions != nil {
		go h.recordTurn(sessionID)
	}

	c.Header(SessionHeader, sessionID)
	utils.SuccessResponse(c, http.StatusOK, "Answer received", models.ChatResponse{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer.Text,
		Trace:     answer.Trace,
		Rows:      answer.Rows,
	})
}

// HandleEndSession tells the agent to discard the session's context.
func (h *ChatHandler) HandleEndSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c, false)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.agent.EndSession(ctx, sessionID); err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to end agent session")
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to end session", err)
		return
	}

	if h.sessions != nil {
		if err := h.sessions.End(sessionID); err != nil {
			h.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to mark session ended")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Session ended", models.EndSessionResponse{
		SessionID: sessionID,
		Message:   "Thank you for using the clinical trials assistant",
	})
}

// sessionID reads the session header, generating one when allowed. It writes
// the error response itself and reports false when the request must stop.
func (h *ChatHandler) sessionID(c *gin.Context, generate bool) (string, bool) {
	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		if !generate {
			utils.ErrorResponse(c, http.StatusBadRequest, "Missing "+SessionHeader+" header", nil)
			return "", false
		}
		return utils.NewSessionID(), true
	}

	if !utils.ValidateSessionID(sessionID) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session id", errors.New(sessionID))
		return "", false
	}
	return sessionID, true
}

func (h *ChatHandler) recordTurn(sessionID string) {
	if err := h.sessions.RecordTurn(sessionID); err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to record session turn")
	}
}
