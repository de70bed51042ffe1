package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/retention"
	"github.com/google/uuid"
)

// RetentionPolicyModel is the persistence model for retention policies
type RetentionPolicyModel struct {
	TenantAggregateModel
	Name           string            `gorm:"type:varchar(100);not null"`
	TargetTable    string            `gorm:"type:varchar(50);not null"`
	Category       string            `gorm:"type:varchar(50)"`
	RetentionDays  int               `gorm:"not null"`
	Action         retention.Action  `gorm:"type:varchar(20);not null"`
	Conditions     map[string]string `gorm:"serializer:json;type:jsonb"`
	IntervalHours  int               `gorm:"not null;default:24"`
	NextExecution  time.Time         `gorm:"not null;index"`
	IsActive       bool              `gorm:"not null;default:true;index"`
	LastExecutedAt *time.Time
	LastError      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (RetentionPolicyModel) TableName() string {
	return "retention_policies"
}

// ToDomain converts the persistence model to a domain Policy
func (m *RetentionPolicyModel) ToDomain() *retention.Policy {
	p := &retention.Policy{
		Name:           m.Name,
		TargetTable:    m.TargetTable,
		Category:       m.Category,
		RetentionDays:  m.RetentionDays,
		Action:         m.Action,
		Conditions:     m.Conditions,
		IntervalHours:  m.IntervalHours,
		NextExecution:  m.NextExecution.UTC(),
		IsActive:       m.IsActive,
		LastExecutedAt: m.LastExecutedAt,
		LastError:      m.LastError,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Policy
func (m *RetentionPolicyModel) FromDomain(p *retention.Policy) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Name = p.Name
	m.TargetTable = p.TargetTable
	m.Category = p.Category
	m.RetentionDays = p.RetentionDays
	m.Action = p.Action
	m.Conditions = p.Conditions
	m.IntervalHours = p.IntervalHours
	m.NextExecution = p.NextExecution
	m.IsActive = p.IsActive
	m.LastExecutedAt = p.LastExecutedAt
	m.LastError = p.LastError
}

// RetentionExecutionModel records one run of a retention policy
type RetentionExecutionModel struct {
	ID         uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID                 `gorm:"type:uuid;not null;index"`
	PolicyID   uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Status     retention.ExecutionStatus `gorm:"type:varchar(20);not null"`
	StartedAt  time.Time                 `gorm:"not null;index"`
	FinishedAt *time.Time
	Processed  int64  `gorm:"not null;default:0"`
	Deleted    int64  `gorm:"not null;default:0"`
	Archived   int64  `gorm:"not null;default:0"`
	Anonymized int64  `gorm:"not null;default:0"`
	DurationMs int64  `gorm:"not null;default:0"`
	Error      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (RetentionExecutionModel) TableName() string {
	return "retention_executions"
}

// ToDomain converts the persistence model to a domain Execution
func (m *RetentionExecutionModel) ToDomain() *retention.Execution {
	return &retention.Execution{
		ID:         m.ID,
		TenantID:   m.TenantID,
		PolicyID:   m.PolicyID,
		Status:     m.Status,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Processed:  m.Processed,
		Deleted:    m.Deleted,
		Archived:   m.Archived,
		Anonymized: m.Anonymized,
		DurationMs: m.DurationMs,
		Error:      m.Error,
	}
}

// RetentionExecutionModelFromDomain creates a persistence model from a domain Execution
func RetentionExecutionModelFromDomain(e *retention.Execution) *RetentionExecutionModel {
	return &RetentionExecutionModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		PolicyID:   e.PolicyID,
		Status:     e.Status,
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
		Processed:  e.Processed,
		Deleted:    e.Deleted,
		Archived:   e.Archived,
		Anonymized: e.Anonymized,
		DurationMs: e.DurationMs,
		Error:      e.Error,
	}
}

// ArchivedRecordModel holds one row copied out by an archive action
type ArchivedRecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	PolicyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SourceTable string    `gorm:"type:varchar(50);not null;index"`
	SourceKey   string    `gorm:"type:varchar(100);not null"`
	Payload     []byte    `gorm:"type:jsonb;not null"`
	ArchivedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ArchivedRecordModel) TableName() string {
	return "archived_records"
}
