package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxAuditListLimit caps a single audit listing
const maxAuditListLimit = 1000

// GormAuditRepository implements audit.Repository using GORM.
// Rows are only ever inserted; retention is the sole deleter.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts an audit record
func (r *GormAuditRepository) Append(ctx context.Context, log *audit.Log) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(log)).Error)
}

// List returns audit records newest first
func (r *GormAuditRepository) List(ctx context.Context, tenantID uuid.UUID, filter audit.Filter) ([]*audit.Log, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}

	var rows []models.AuditLogModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	logs := make([]*audit.Log, len(rows))
	for i := range rows {
		logs[i] = rows[i].ToDomain()
	}
	return logs, nil
}

// Ensure GormAuditRepository implements audit.Repository
var _ audit.Repository = (*GormAuditRepository)(nil)
