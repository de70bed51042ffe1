package event

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEntry(eventType string) *shared.OutboxEntry {
	event := newTestEvent(eventType, uuid.New())
	payload, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	return shared.NewOutboxEntry(event, payload)
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	repo := NewGormOutboxRepository(setupTestDB(t))
	ctx := context.Background()

	first := newTestEntry("EntryPosted")
	second := newTestEntry("PeriodClosed")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first, second))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, first.EventID, pending[0].EventID)
	assert.Contains(t, string(pending[0].Payload), `"data":"test data"`)

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_Save_Empty(t *testing.T) {
	repo := NewGormOutboxRepository(setupTestDB(t))

	require.NoError(t, repo.Save(context.Background()))
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	repo := NewGormOutboxRepository(setupTestDB(t))
	ctx := context.Background()

	due := newTestEntry("EntryPosted")
	due.MarkFailed("handler down")
	later := newTestEntry("EntryPosted")
	later.MarkFailed("handler down")
	farFuture := time.Now().UTC().Add(time.Hour)
	later.NextRetryAt = &farFuture
	require.NoError(t, repo.Save(ctx, due, later))

	retryable, err := repo.FindRetryable(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, due.ID, retryable[0].ID)
	assert.Equal(t, 1, retryable[0].RetryCount)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	repo := NewGormOutboxRepository(setupTestDB(t))
	ctx := context.Background()

	pending := newTestEntry("EntryPosted")
	sent := newTestEntry("EntryPosted")
	sent.MarkSent()
	require.NoError(t, repo.Save(ctx, pending, sent))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID, sent.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, pending.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry already claimed is not handed out twice")
}

func TestGormOutboxRepository_UpdateAndDeleteOlderThan(t *testing.T) {
	repo := NewGormOutboxRepository(setupTestDB(t))
	ctx := context.Background()

	entry := newTestEntry("EntryPosted")
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkSent()
	old := time.Now().UTC().Add(-48 * time.Hour)
	entry.ProcessedAt = &old
	require.NoError(t, repo.Update(ctx, entry))

	counts, err := repo.CountByStatus(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestGormOutboxRepository_DeadLetters(t *testing.T) {
	repo := NewGormOutboxRepository(setupTestDB(t))
	ctx := context.Background()

	dead := newTestEntry("EntryPosted")
	for !dead.IsDead() {
		dead.MarkFailed("allocation failed")
	}
	other := newTestEntry("EntryPosted")
	for !other.IsDead() {
		other.MarkFailed("allocation failed")
	}
	alive := newTestEntry("EntryPosted")
	alive.TenantID = dead.TenantID
	require.NoError(t, repo.Save(ctx, dead, other, alive))

	entries, total, err := repo.FindDead(ctx, dead.TenantID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, dead.ID, entries[0].ID)
	assert.Equal(t, "allocation failed", entries[0].LastError)

	found, err := repo.FindByID(ctx, dead.TenantID, dead.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, shared.OutboxStatusDead, found.Status)

	missing, err := repo.FindByID(ctx, dead.TenantID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, missing, "entries of another tenant are invisible")

	counts, err := repo.CountByStatus(ctx, dead.TenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}

func TestGormOutboxRepository_WithTx(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOutboxRepository(db)

	txRepo := repo.WithTx(db)

	assert.NotNil(t, txRepo)
	assert.NotSame(t, repo, txRepo)
}
