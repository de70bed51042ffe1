package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create inserts a new account. A duplicate (tenant, code) maps to DUPLICATE_CODE.
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	var model models.AccountModel
	model.FromDomain(account)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if IsUniqueViolation(err) {
			return ledger.ErrDuplicateCode.WithDetail("code", account.Code)
		}
		return TranslateError(err)
	}
	return nil
}

// Save updates an account with optimistic locking. The cached balance is
// written only by UpdateBalance under the posting lock.
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	expected, restore := bumpVersion(&account.BaseAggregateRoot)
	var model models.AccountModel
	model.FromDomain(account)
	if err := updateVersioned(ctx, r.db, &model, account.TenantID, account.ID, expected, "current_balance"); err != nil {
		restore()
		if errors.Is(err, shared.ErrAlreadyExists) {
			return ledger.ErrDuplicateCode.WithDetail("code", account.Code)
		}
		return err
	}
	return nil
}

// Delete removes an account row
func (r *GormAccountRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.AccountModel{})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds an account by its chart code
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	var model models.AccountModel
	if err := findOne(ctx, r.db, &model, "tenant_id = ? AND code = ?", tenantID, code); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads several accounts keyed by ID. Missing ids are absent from the map.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*ledger.Account, error) {
	out := make(map[uuid.UUID]*ledger.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	for i := range rows {
		a := rows[i].ToDomain()
		out[a.ID] = a
	}
	return out, nil
}

// List returns accounts ordered by code
func (r *GormAccountRepository) List(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]*ledger.Account, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("tenant_id = ?", tenantID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.ParentID != nil {
		query = query.Where("parent_id = ?", *filter.ParentID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var rows []models.AccountModel
	if err := query.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	accounts := make([]*ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// LockForUpdate takes row locks on the accounts in ascending id order so
// that concurrent postings touching overlapping accounts cannot deadlock.
func (r *GormAccountRepository) LockForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ledger.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]uuid.UUID(nil), ids...)
	ledger.SortIDs(sorted)
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, sorted).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	accounts := make([]*ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// UpdateBalance writes the cached balance of an account locked by LockForUpdate
func (r *GormAccountRepository) UpdateBalance(ctx context.Context, tenantID, id uuid.UUID, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(map[string]any{
			"current_balance": balance,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasLines reports whether any journal line references the account
func (r *GormAccountRepository) HasLines(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalLineModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, TranslateError(err)
	}
	return count > 0, nil
}

// Ensure GormAccountRepository implements AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
