package models

// ChatRequest asks the agent either a free-form question or, when
// patientName and condition are given, for trials matching that patient.
type ChatRequest struct {
	PatientName string `json:"patientName"`
	Condition   string `json:"condition"`
	Question    string `json:"question"`
}

type ChatResponse struct {
	SessionID string        `json:"session_id"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Trace     string        `json:"trace,omitempty"`
	Rows      []interface{} `json:"rows,omitempty"`
}

type EndSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
