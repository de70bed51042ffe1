package event

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// memoryOutboxRepo is a tenant-aware in-memory OutboxRepository
type memoryOutboxRepo struct {
	entries   map[uuid.UUID]*shared.OutboxEntry
	updateErr error
}

func newMemoryOutboxRepo() *memoryOutboxRepo {
	return &memoryOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutboxRepo) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutboxRepo) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutboxRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryOutboxRepo) FindDead(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.IsDead() {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].UpdatedAt.After(dead[j].UpdatedAt) })
	total := int64(len(dead))
	if offset >= len(dead) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(dead) {
		end = len(dead)
	}
	return dead[offset:end], total, nil
}

func (r *memoryOutboxRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, nil
}

func (r *memoryOutboxRepo) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		if tenantID == uuid.Nil || e.TenantID == tenantID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func addEntry(repo *memoryOutboxRepo, tenantID uuid.UUID, status shared.OutboxStatus) *shared.OutboxEntry {
	now := time.Now().UTC()
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventID:       uuid.New(),
		EventType:     "EntryPosted",
		AggregateID:   uuid.New(),
		AggregateType: "JournalEntry",
		Status:        status,
		MaxRetries:    shared.DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = shared.DefaultMaxRetries
		entry.LastError = "no matching allocation rule"
	}
	repo.entries[entry.ID] = entry
	return entry
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()

	for i := 0; i < 5; i++ {
		addEntry(repo, tenantID, shared.OutboxStatusDead)
	}
	addEntry(repo, tenantID, shared.OutboxStatusPending)
	addEntry(repo, uuid.New(), shared.OutboxStatusDead)

	result, err := service.GetDeadLetterEntries(context.Background(), tenantID, OutboxFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Items, 2)
	for _, entry := range result.Items {
		assert.Equal(t, "DEAD", entry.Status)
		assert.Equal(t, "no matching allocation rule", entry.LastError)
	}
}

func TestOutboxService_GetEntry(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	entry := addEntry(repo, tenantID, shared.OutboxStatusSent)

	got, err := service.GetEntry(context.Background(), tenantID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EventID, got.EventID)

	_, err = service.GetEntry(context.Background(), uuid.New(), entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.New(core))
	tenantID := uuid.New()
	dead := addEntry(repo, tenantID, shared.OutboxStatusDead)

	result, err := service.RetryDeadEntry(context.Background(), tenantID, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Equal(t, 0, result.RetryCount)
	assert.Empty(t, result.LastError)
	assert.Equal(t, 1, logs.FilterMessage("Dead letter entry reset for retry").Len())
}

func TestOutboxService_RetryDeadEntry_NotFound(t *testing.T) {
	service := NewOutboxService(newMemoryOutboxRepo(), zap.NewNop())

	_, err := service.RetryDeadEntry(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_RetryDeadEntry_NotDead(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	entry := addEntry(repo, tenantID, shared.OutboxStatusPending)

	_, err := service.RetryDeadEntry(context.Background(), tenantID, entry.ID)
	require.Error(t, err)
	assert.Equal(t, ledger.KindState, ledger.KindOfError(err))
}

func TestOutboxService_RetryDeadEntry_UpdateFails(t *testing.T) {
	repo := newMemoryOutboxRepo()
	repo.updateErr = errors.New("connection reset")
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	dead := addEntry(repo, tenantID, shared.OutboxStatusDead)

	_, err := service.RetryDeadEntry(context.Background(), tenantID, dead.ID)
	require.Error(t, err)
	assert.True(t, ledger.IsRetriable(err))
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()

	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		addEntry(repo, tenantID, status)
	}
	addEntry(repo, uuid.New(), shared.OutboxStatusDead)

	stats, err := service.GetStats(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()

	for i := 0; i < retryBatchSize+3; i++ {
		addEntry(repo, tenantID, shared.OutboxStatusDead)
	}
	pending := addEntry(repo, tenantID, shared.OutboxStatusPending)
	foreign := addEntry(repo, uuid.New(), shared.OutboxStatusDead)

	count, err := service.RetryAllDeadEntries(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(retryBatchSize+3), count)

	for _, entry := range repo.entries {
		if entry.ID == foreign.ID {
			assert.Equal(t, shared.OutboxStatusDead, entry.Status)
			continue
		}
		assert.Equal(t, shared.OutboxStatusPending, entry.Status, "entry %s", entry.ID)
	}
	assert.Equal(t, shared.OutboxStatusPending, repo.entries[pending.ID].Status)
}

func TestOutboxService_RetryAllDeadEntries_StopsWhenNothingRequeues(t *testing.T) {
	repo := newMemoryOutboxRepo()
	repo.updateErr = errors.New("read only")
	service := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	addEntry(repo, tenantID, shared.OutboxStatusDead)

	count, err := service.RetryAllDeadEntries(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
