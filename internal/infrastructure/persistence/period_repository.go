package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPeriodRepository implements ledger.PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// Create inserts a new period
func (r *GormPeriodRepository) Create(ctx context.Context, period *ledger.AccountingPeriod) error {
	var model models.AccountingPeriodModel
	model.FromDomain(period)
	err := TranslateError(r.db.WithContext(ctx).Create(&model).Error)
	if errors.Is(err, ledger.ErrOverlappingPeriod) {
		return ledger.ErrOverlappingPeriod.WithDetail("label", period.Label)
	}
	return err
}

// Save updates a period with optimistic locking
func (r *GormPeriodRepository) Save(ctx context.Context, period *ledger.AccountingPeriod) error {
	expected, restore := bumpVersion(&period.BaseAggregateRoot)
	var model models.AccountingPeriodModel
	model.FromDomain(period)
	if err := updateVersioned(ctx, r.db, &model, period.TenantID, period.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a period by ID
func (r *GormPeriodRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// LockByID loads a period holding a row lock until the transaction ends
func (r *GormPeriodRepository) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	db := r.db.Clauses(clause.Locking{Strength: "UPDATE"})
	if err := findOne(ctx, db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// LockByDate returns the period whose range contains date, holding a share
// lock so the period cannot start closing until the transaction ends
func (r *GormPeriodRepository) LockByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	d := ledger.CivilDate(date)
	db := r.db.Clauses(clause.Locking{Strength: "SHARE"})
	if err := findOne(ctx, db, &model, "tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, d, d); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOverlapping returns periods intersecting [start, end]
func (r *GormPeriodRepository) FindOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]*ledger.AccountingPeriod, error) {
	var rows []models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?",
			tenantID, ledger.CivilDate(end), ledger.CivilDate(start)).
		Order("start_date ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return periodsToDomain(rows), nil
}

// List returns all periods of a tenant ordered by start date
func (r *GormPeriodRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*ledger.AccountingPeriod, error) {
	var rows []models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return periodsToDomain(rows), nil
}

func periodsToDomain(rows []models.AccountingPeriodModel) []*ledger.AccountingPeriod {
	out := make([]*ledger.AccountingPeriod, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormCloseRepository implements ledger.CloseRepository using GORM
type GormCloseRepository struct {
	db *gorm.DB
}

// NewGormCloseRepository creates a new GormCloseRepository
func NewGormCloseRepository(db *gorm.DB) *GormCloseRepository {
	return &GormCloseRepository{db: db}
}

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// Create inserts a close process with its checklist
func (r *GormCloseRepository) Create(ctx context.Context, process *ledger.CloseProcess) error {
	var model models.CloseProcessModel
	model.FromDomain(process)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates the process header with optimistic locking and rewrites each task row
func (r *GormCloseRepository) Save(ctx context.Context, process *ledger.CloseProcess) error {
	expected, restore := bumpVersion(&process.BaseAggregateRoot)
	var model models.CloseProcessModel
	model.FromDomain(process)
	tasks := model.Tasks
	model.Tasks = nil
	if err := updateVersioned(ctx, r.db, &model, process.TenantID, process.ID, expected); err != nil {
		restore()
		return err
	}
	for i := range tasks {
		if err := r.db.WithContext(ctx).
			Model(&tasks[i]).
			Select("*").
			Omit("id", "process_id").
			Updates(&tasks[i]).Error; err != nil {
			return TranslateError(err)
		}
	}
	return nil
}

// FindByID loads a close process with its tasks
func (r *GormCloseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.CloseProcess, error) {
	return r.findOne(ctx, "id = ? AND tenant_id = ?", id, tenantID)
}

// FindByTaskID loads the close process owning a task
func (r *GormCloseRepository) FindByTaskID(ctx context.Context, tenantID, taskID uuid.UUID) (*ledger.CloseProcess, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = (SELECT process_id FROM close_tasks WHERE id = ?)", tenantID, taskID)
}

// FindByPeriod loads the latest close process of a period
func (r *GormCloseRepository) FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*ledger.CloseProcess, error) {
	var model models.CloseProcessModel
	db := r.db.Preload("Tasks", orderedTasks).Order("created_at DESC")
	if err := findOne(ctx, db, &model, "tenant_id = ? AND period_id = ?", tenantID, periodID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormCloseRepository) findOne(ctx context.Context, query string, args ...any) (*ledger.CloseProcess, error) {
	var model models.CloseProcessModel
	db := r.db.Preload("Tasks", orderedTasks)
	if err := findOne(ctx, db, &model, query, args...); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure repositories implement the ledger interfaces
var (
	_ ledger.PeriodRepository = (*GormPeriodRepository)(nil)
	_ ledger.CloseRepository  = (*GormCloseRepository)(nil)
)
