package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is the persistence model for the append-only audit trail
type AuditLogModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_tenant_resource,priority:1"`
	ActorID       *uuid.UUID `gorm:"type:uuid"`
	Module        string     `gorm:"type:varchar(20);not null"`
	Action        string     `gorm:"type:varchar(30);not null"`
	ResourceType  string     `gorm:"type:varchar(50);not null;index:idx_audit_tenant_resource,priority:2"`
	ResourceID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_tenant_resource,priority:3"`
	BeforeData    []byte     `gorm:"column:before_data;type:jsonb"`
	AfterData     []byte     `gorm:"column:after_data;type:jsonb"`
	CorrelationID string     `gorm:"type:varchar(100)"`
	CreatedAt     time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Log
func (m *AuditLogModel) ToDomain() *audit.Log {
	return &audit.Log{
		ID:            m.ID,
		TenantID:      m.TenantID,
		ActorID:       m.ActorID,
		Module:        m.Module,
		Action:        m.Action,
		ResourceType:  m.ResourceType,
		ResourceID:    m.ResourceID,
		Before:        m.BeforeData,
		After:         m.AfterData,
		CorrelationID: m.CorrelationID,
		CreatedAt:     m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a persistence model from a domain audit Log
func AuditLogModelFromDomain(l *audit.Log) *AuditLogModel {
	return &AuditLogModel{
		ID:            l.ID,
		TenantID:      l.TenantID,
		ActorID:       l.ActorID,
		Module:        l.Module,
		Action:        l.Action,
		ResourceType:  l.ResourceType,
		ResourceID:    l.ResourceID,
		BeforeData:    l.Before,
		AfterData:     l.After,
		CorrelationID: l.CorrelationID,
		CreatedAt:     l.CreatedAt,
	}
}
