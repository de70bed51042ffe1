package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// immutableColumns are never rewritten by a versioned update
var immutableColumns = []string{"id", "created_at", "tenant_id", "created_by"}

// updateVersioned writes every column of model for the row (tenantID, id)
// only if the stored version still equals expected. The caller has already
// bumped the version on the model. Associations and the omit columns are
// left untouched.
func updateVersioned(ctx context.Context, db *gorm.DB, model any, tenantID, id uuid.UUID, expected int, omit ...string) error {
	skip := append(append([]string{clause.Associations}, immutableColumns...), omit...)
	result := db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit(skip...).
		Where("id = ? AND tenant_id = ? AND version = ?", id, tenantID, expected).
		Updates(model)
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(model).Where("id = ? AND tenant_id = ?", id, tenantID).Count(&count).Error; err != nil {
			return TranslateError(err)
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// bumpVersion prepares an aggregate for a versioned update and returns the
// version the row must still carry. On failure call restore.
func bumpVersion(root *shared.BaseAggregateRoot) (expected int, restore func()) {
	expected = root.Version
	updatedAt := root.UpdatedAt
	root.IncrementVersion()
	root.Touch()
	return expected, func() {
		root.Version = expected
		root.UpdatedAt = updatedAt
	}
}

// findOne loads a single row into dest, mapping a miss to shared.ErrNotFound
func findOne(ctx context.Context, db *gorm.DB, dest any, query string, args ...any) error {
	err := db.WithContext(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return TranslateError(err)
}
