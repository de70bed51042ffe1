package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormArchiveSink copies archived rows into the archived_records table
type GormArchiveSink struct {
	db *gorm.DB
}

// NewGormArchiveSink creates a new table-backed archive sink
func NewGormArchiveSink(db *gorm.DB) *GormArchiveSink {
	return &GormArchiveSink{db: db}
}

// Archive stores one archived_records row per source row
func (s *GormArchiveSink) Archive(ctx context.Context, batch retention.ArchiveBatch) error {
	if len(batch.Records) == 0 {
		return nil
	}
	target, ok := retention.LookupTarget(batch.Table)
	if !ok {
		return fmt.Errorf("archive: unknown table %q", batch.Table)
	}

	rows := make([]models.ArchivedRecordModel, 0, len(batch.Records))
	for _, rec := range batch.Records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("archive: encode %s row: %w", batch.Table, err)
		}
		rows = append(rows, models.ArchivedRecordModel{
			ID:          uuid.New(),
			TenantID:    batch.TenantID,
			PolicyID:    batch.PolicyID,
			SourceTable: batch.Table,
			SourceKey:   fmt.Sprint(rec[target.KeyColumn]),
			Payload:     payload,
			ArchivedAt:  batch.ArchivedAt,
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

// Ensure GormArchiveSink implements ArchiveSink
var _ retention.ArchiveSink = (*GormArchiveSink)(nil)
