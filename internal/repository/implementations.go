package repository

import (
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActionInvocationRepositoryImpl implements ActionInvocationRepository
type ActionInvocationRepositoryImpl struct {
	db *gorm.DB
}

func NewActionInvocationRepository(db *gorm.DB) models.ActionInvocationRepository {
	return &ActionInvocationRepositoryImpl{db: db}
}

func (r *ActionInvocationRepositoryImpl) Create(invocation *models.ActionInvocation) error {
	return r.db.Create(invocation).Error
}

func (r *ActionInvocationRepositoryImpl) GetRecent(limit int) ([]models.ActionInvocation, error) {
	var invocations []models.ActionInvocation
	err := r.db.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&invocations).Error
	return invocations, err
}

func (r *ActionInvocationRepositoryImpl) GetBySession(sessionID string) ([]models.ActionInvocation, error) {
	var invocations []models.ActionInvocation
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&invocations).Error
	return invocations, err
}

func (r *ActionInvocationRepositoryImpl) GetStats(from, to time.Time) ([]models.ActionStats, error) {
	var stats []models.ActionStats
	err := r.db.Model(&models.ActionInvocation{}).
		Select("api_path, COUNT(*) AS invocations, AVG(response_time_ms) AS avg_response_time_ms, AVG(result_count) AS avg_result_count").
		Where("created_at BETWEEN ? AND ?", from, to).
		Group("api_path").
		Order("invocations DESC").
		Scan(&stats).Error
	return stats, err
}

// AgentSessionRepositoryImpl implements AgentSessionRepository
type AgentSessionRepositoryImpl struct {
	db *gorm.DB
}

func NewAgentSessionRepository(db *gorm.DB) models.AgentSessionRepository {
	return &AgentSessionRepositoryImpl{db: db}
}

// RecordTurn creates the session on its first turn and increments the turn
// count afterwards in a single upsert, so concurrent first turns both count.
func (r *AgentSessionRepositoryImpl) RecordTurn(sessionID string) error {
	now := time.Now()

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"turns":      gorm.Expr("agent_sessions.turns + 1"),
			"updated_at": now,
		}),
	}).Create(&models.AgentSession{
		SessionID: sessionID,
		Turns:     1,
		StartedAt: now,
	}).Error
}

func (r *AgentSessionRepositoryImpl) End(sessionID string) error {
	now := time.Now()

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"ended_at": now, "updated_at": now}),
	}).Create(&models.AgentSession{
		SessionID: sessionID,
		StartedAt: now,
		EndedAt:   &now,
	}).Error
}

func (r *AgentSessionRepositoryImpl) GetBySessionID(sessionID string) (*models.AgentSession, error) {
	var session models.AgentSession
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	health := models.SystemHealth{
		ServiceName:    serviceName,
		Status:         status,
		ResponseTimeMs: responseTime,
		ErrorMessage:   errorMsg,
		CheckedAt:      time.Now(),
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "response_time_ms", "error_message", "checked_at", "updated_at"}),
	}).Create(&health).Error
}

func (r *SystemHealthRepositoryImpl) GetAll() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Order("service_name").Find(&health).Error
	return health, err
}

// RepositoryManager groups the repositories over one connection.
type RepositoryManager struct {
	ActionInvocation models.ActionInvocationRepository
	AgentSession     models.AgentSessionRepository
	SystemHealth     models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		ActionInvocation: NewActionInvocationRepository(db),
		AgentSession:     NewAgentSessionRepository(db),
		SystemHealth:     NewSystemHealthRepository(db),
	}
}
