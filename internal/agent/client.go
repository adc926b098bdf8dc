package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	logger     *logrus.Logger
}

func NewClient(url, apiKey string, logger *logrus.Logger) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

// WithRetryConfig replaces the retry policy used by InvokeWithRetry.
func (c *Client) WithRetryConfig(config RetryConfig) *Client {
	c.retry = config
	return c
}

// Invoke sends one question (or the end-of-session signal) to the agent.
func (c *Client) Invoke(ctx context.Context, req InvokeRequest) (*Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.WithFields(logrus.Fields{
		"session_id":  req.SessionID,
		"end_session": req.EndSession,
		"size":        len(payload),
	}).Debug("Making agent request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"session_id":    req.SessionID,
		"response_size": len(responseBody),
	}).Debug("Agent response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(responseBody)}
	}

	return decodeReply(responseBody)
}

// decodeReply accepts the proxy envelope {"statusCode","body":"<json>"} and
// also a bare reply object. An empty body is an empty reply.
func decodeReply(data []byte) (*Reply, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Reply{}, nil
	}

	var envelope invokeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if envelope.Body != "" {
		if envelope.StatusCode >= 400 {
			return nil, &StatusError{StatusCode: envelope.StatusCode, Body: envelope.Body}
		}
		data = []byte(envelope.Body)
	}

	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent reply: %w", err)
	}
	return &reply, nil
}

// StatusError reports a non-success status from the agent endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent request failed with status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying could help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
