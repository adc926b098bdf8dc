package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	endSessionQuestion = "placeholder to end session"
	traceMarker        = `"trace"`
	traceEndMarker     = "Lst Response:"
)

// ErrIncompletePatient is returned when a patient prompt lacks a name or condition.
var ErrIncompletePatient = errors.New("either patient name or medical condition is not provided")

// Invoker is satisfied by *Client.
type Invoker interface {
	InvokeWithRetry(ctx context.Context, req InvokeRequest) (*Reply, error)
}

type Service struct {
	client Invoker
	logger *logrus.Logger
}

func NewService(client Invoker, logger *logrus.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// Ask sends question within sessionID and prepares the reply for display.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	reply, err := s.client.InvokeWithRetry(ctx, InvokeRequest{
		SessionID: sessionID,
		Question:  question,
	})
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Text:  reply.Trace(),
		Trace: ExtractTrace(reply.Response),
		Rows:  FormatResponse(reply.Response),
	}
	if answer.Text == "" {
		answer.Text = reply.Response
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"rows":       len(answer.Rows),
	}).Debug("Agent answered")

	return answer, nil
}

// EndSession tells the agent to drop sessionID's conversation state.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	_, err := s.client.InvokeWithRetry(ctx, InvokeRequest{
		SessionID:  sessionID,
		Question:   endSessionQuestion,
		EndSession: true,
	})
	return err
}

// BuildPrompt turns a patient name and top-level condition into a trial question.
func BuildPrompt(patientName, condition string) (string, error) {
	name := strings.TrimSpace(patientName)
	cond := strings.TrimSpace(condition)
	if name == "" || cond == "" {
		return "", ErrIncompletePatient
	}
	return "Can you please fetch clinical trials for " + name + " with " + cond, nil
}

// ExtractTrace cuts the agent's trace section out of text, from the "trace"
// key up to the final response marker. Text without a trace is returned as is.
func ExtractTrace(text string) string {
	start := strings.Index(text, traceMarker)
	if start == -1 {
		return text
	}
	rest := text[start:]
	if end := strings.Index(rest, traceEndMarker); end != -1 {
		return rest[:end]
	}
	return rest
}

// FormatResponse returns the elements of text when it is a JSON array, else nil.
func FormatResponse(text string) []interface{} {
	var rows []interface{}
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		return nil
	}
	return rows
}
