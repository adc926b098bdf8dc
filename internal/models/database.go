package models

// GORM models

import (
	"time"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActionInvocation records one routed agent action. Parameter values and
// response bodies are never stored.
type ActionInvocation struct {
	BaseModel
	ActionGroup    string `json:"action_group"`
	APIPath        string `json:"api_path" gorm:"not null;index"`
	HTTPMethod     string `json:"http_method"`
	Operation      string `json:"operation" gorm:"index"`
	ValidRoute     bool   `json:"valid_route"`
	ResultCount    int    `json:"result_count" gorm:"default:0"`
	ResponseTimeMs int    `json:"response_time_ms"`
	SessionID      string `json:"session_id" gorm:"index"`
	RequestID      string `json:"request_id"`
}

// AgentSession tracks a chat session with the hosted agent.
type AgentSession struct {
	BaseModel
	SessionID string     `json:"session_id" gorm:"uniqueIndex;not null"`
	Turns     int        `json:"turns" gorm:"default:0"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

// SystemHealth stores the result of a service health check.
type SystemHealth struct {
	BaseModel
	ServiceName    string    `json:"service_name" gorm:"uniqueIndex;not null"`
	Status         string    `json:"status" gorm:"not null"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at"`
}

// ActionStats aggregates invocations per path.
type ActionStats struct {
	APIPath           string  `json:"api_path"`
	Invocations       int64   `json:"invocations"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	AvgResultCount    float64 `json:"avg_result_count"`
}

// Repository interfaces

type ActionInvocationRepository interface {
	Create(invocation *ActionInvocation) error
	GetRecent(limit int) ([]ActionInvocation, error)
	GetBySession(sessionID string) ([]ActionInvocation, error)
	GetStats(from, to time.Time) ([]ActionStats, error)
}

type AgentSessionRepository interface {
	RecordTurn(sessionID string) error
	End(sessionID string) error
	GetBySessionID(sessionID string) (*AgentSession, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetAll() ([]SystemHealth, error)
}

// All lists the models managed by auto-migration.
func All() []interface{} {
	return []interface{}{
		&ActionInvocation{},
		&AgentSession{},
		&SystemHealth{},
	}
}
