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

// GormJournalEntryRepository implements ledger.EntryRepository using GORM
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_number ASC")
}

// Create inserts the entry header together with its lines
func (r *GormJournalEntryRepository) Create(ctx context.Context, entry *ledger.JournalEntry) error {
	var model models.JournalEntryModel
	model.FromDomain(entry)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return TranslateError(err)
	}
	for i := range entry.Lines {
		entry.Lines[i].ID = model.Lines[i].ID
	}
	return nil
}

// Save updates the header with optimistic locking. Lines are never rewritten.
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	expected, restore := bumpVersion(&entry.BaseAggregateRoot)
	var model models.JournalEntryModel
	model.FromDomain(entry)
	model.Lines = nil
	if err := updateVersioned(ctx, r.db, &model, entry.TenantID, entry.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID loads an entry with its lines
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	db := r.db.Preload("Lines", orderedLines)
	if err := findOne(ctx, db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// LockByID loads an entry holding a row lock on its header until the transaction ends
func (r *GormJournalEntryRepository) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	db := r.db.Clauses(clause.Locking{Strength: "UPDATE"})
	if err := findOne(ctx, db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	var lines []models.JournalLineModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", id).
		Order("line_number ASC").
		Find(&lines).Error; err != nil {
		return nil, TranslateError(err)
	}
	model.Lines = lines
	return model.ToDomain(), nil
}

// List returns a page of entries, newest first, with the total match count
func (r *GormJournalEntryRepository) List(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) ([]*ledger.JournalEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SourceModule != "" {
		query = query.Where("source_module = ?", filter.SourceModule)
	}
	if filter.From != nil {
		query = query.Where("entry_date >= ?", ledger.CivilDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("entry_date <= ?", ledger.CivilDate(*filter.To))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	page := filter.Page.Normalize()
	var rows []models.JournalEntryModel
	if err := query.
		Preload("Lines", orderedLines).
		Order(entryOrder(filter.OrderBy, filter.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, TranslateError(err)
	}
	entries := make([]*ledger.JournalEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// CountInRange counts entries in the given statuses dated within [from, to]
func (r *GormJournalEntryRepository) CountInRange(ctx context.Context, tenantID uuid.UUID, statuses []ledger.EntryStatus, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND status IN ? AND entry_date BETWEEN ? AND ?",
			tenantID, statuses, ledger.CivilDate(from), ledger.CivilDate(to)).
		Count(&count).Error
	if err != nil {
		return 0, TranslateError(err)
	}
	return count, nil
}

// PostedInRange returns ids of posted entries dated within [from, to]
func (r *GormJournalEntryRepository) PostedInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND status = ? AND entry_date BETWEEN ? AND ?",
			tenantID, ledger.EntryStatusPosted, ledger.CivilDate(from), ledger.CivilDate(to)).
		Order("entry_date ASC, entry_number ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return ids, nil
}

// PostedLines returns the lines of entries that affect balances. A reversed
// entry still counts; its reversal carries the offsetting lines.
func (r *GormJournalEntryRepository) PostedLines(ctx context.Context, tenantID uuid.UUID, filter ledger.LineFilter) ([]ledger.PostedLine, error) {
	query := r.db.WithContext(ctx).
		Table("journal_lines AS l").
		Select(`e.id AS entry_id, e.entry_number, e.entry_date, e.source_module, e.description,
			l.line_number, l.account_id, l.description AS line_memo, l.debit, l.credit`).
		Joins("JOIN journal_entries AS e ON e.id = l.entry_id").
		Where("e.tenant_id = ? AND e.status IN ?", tenantID,
			[]ledger.EntryStatus{ledger.EntryStatusPosted, ledger.EntryStatusReversed})
	if len(filter.AccountIDs) > 0 {
		query = query.Where("l.account_id IN ?", filter.AccountIDs)
	}
	if filter.From != nil {
		query = query.Where("e.entry_date >= ?", ledger.CivilDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("e.entry_date <= ?", ledger.CivilDate(*filter.To))
	}
	if filter.ExcludeClosing {
		query = query.Where("e.source_module <> ?", ledger.SourceClose)
	}

	var rows []models.PostedLineRow
	if err := query.
		Order("e.entry_date ASC, e.entry_number ASC, l.line_number ASC").
		Scan(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	lines := make([]ledger.PostedLine, len(rows))
	for i, row := range rows {
		lines[i] = row.ToDomain()
	}
	return lines, nil
}

// Ensure GormJournalEntryRepository implements EntryRepository
var _ ledger.EntryRepository = (*GormJournalEntryRepository)(nil)
