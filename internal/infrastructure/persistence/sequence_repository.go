package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceGenerator issues document numbers from the number_sequences table.
// The increment row-locks the counter, so numbers taken inside a posting
// transaction are released again if that transaction rolls back.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next number for (tenant, prefix), starting at 1
func (g *GormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, prefix string) (int64, error) {
	var next int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := models.NumberSequenceModel{TenantID: tenantID, Prefix: prefix, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.NumberSequenceModel{}).
			Where("tenant_id = ? AND prefix = ?", tenantID, prefix).
			Updates(map[string]any{
				"last_value": gorm.Expr("last_value + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		var row models.NumberSequenceModel
		if err := tx.Where("tenant_id = ? AND prefix = ?", tenantID, prefix).First(&row).Error; err != nil {
			return err
		}
		next = row.LastValue
		return nil
	})
	if err != nil {
		return 0, TranslateError(err)
	}
	return next, nil
}

// Ensure GormSequenceGenerator implements SequenceGenerator
var _ ledger.SequenceGenerator = (*GormSequenceGenerator)(nil)
