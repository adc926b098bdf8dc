package agent

import "encoding/json"

// Request models
type InvokeRequest struct {
	SessionID  string `json:"sessionId"`
	Question   string `json:"question"`
	EndSession bool   `json:"endSession,omitempty"`
}

// Response models

// invokeEnvelope is the proxy-style wrapper around the agent reply; Body
// holds the reply as a JSON string.
type invokeEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type Reply struct {
	Response  string          `json:"response"`
	TraceData json.RawMessage `json:"trace_data"`
}

// Trace returns trace_data as text. Non-string values are returned as raw JSON.
func (r Reply) Trace() string {
	if len(r.TraceData) == 0 || string(r.TraceData) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.TraceData, &s); err == nil {
		return s
	}
	return string(r.TraceData)
}

// Answer is a reply prepared for display.
type Answer struct {
	Text  string
	Trace string
	Rows  []interface{}
}
