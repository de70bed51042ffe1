package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAllocationRuleRepository implements allocation.RuleRepository using GORM
type GormAllocationRuleRepository struct {
	db *gorm.DB
}

// NewGormAllocationRuleRepository creates a new GormAllocationRuleRepository
func NewGormAllocationRuleRepository(db *gorm.DB) *GormAllocationRuleRepository {
	return &GormAllocationRuleRepository{db: db}
}

// Create inserts a rule; a duplicate code maps to ALREADY_EXISTS
func (r *GormAllocationRuleRepository) Create(ctx context.Context, rule *allocation.Rule) error {
	var model models.AllocationRuleModel
	model.FromDomain(rule)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a rule with optimistic locking
func (r *GormAllocationRuleRepository) Save(ctx context.Context, rule *allocation.Rule) error {
	expected, restore := bumpVersion(&rule.BaseAggregateRoot)
	var model models.AllocationRuleModel
	model.FromDomain(rule)
	if err := updateVersioned(ctx, r.db, &model, rule.TenantID, rule.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a rule by ID
func (r *GormAllocationRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*allocation.Rule, error) {
	var model models.AllocationRuleModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a rule by code
func (r *GormAllocationRuleRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*allocation.Rule, error) {
	var model models.AllocationRuleModel
	if err := findOne(ctx, r.db, &model, "tenant_id = ? AND code = ?", tenantID, code); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns rules ordered by priority, then code
func (r *GormAllocationRuleRepository) List(ctx context.Context, tenantID uuid.UUID, filter allocation.RuleFilter) ([]*allocation.Rule, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var rows []models.AllocationRuleModel
	if err := query.Order("priority DESC, code ASC").Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	rules := make([]*allocation.Rule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules, nil
}

// GormAllocationRepository implements allocation.Repository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

func orderedAllocationEntries(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// Create inserts an allocation with its entries
func (r *GormAllocationRepository) Create(ctx context.Context, a *allocation.Allocation) error {
	var model models.AllocationModel
	model.FromDomain(a)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// FindByID loads an allocation with its entries
func (r *GormAllocationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*allocation.Allocation, error) {
	var model models.AllocationModel
	db := r.db.Preload("Entries", orderedAllocationEntries)
	if err := findOne(ctx, db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySourceEntry returns the allocation made from a source entry, or
// shared.ErrNotFound when the entry was never allocated
func (r *GormAllocationRepository) FindBySourceEntry(ctx context.Context, tenantID, sourceEntryID uuid.UUID) (*allocation.Allocation, error) {
	var model models.AllocationModel
	db := r.db.Preload("Entries", orderedAllocationEntries)
	if err := findOne(ctx, db, &model, "tenant_id = ? AND source_entry_id = ?", tenantID, sourceEntryID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure repositories implement the allocation interfaces
var (
	_ allocation.RuleRepository = (*GormAllocationRuleRepository)(nil)
	_ allocation.Repository     = (*GormAllocationRepository)(nil)
)
