package persistence

import (
	"context"
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/retention"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRetentionPolicyRepository implements retention.PolicyRepository using GORM
type GormRetentionPolicyRepository struct {
	db *gorm.DB
}

// NewGormRetentionPolicyRepository creates a new GormRetentionPolicyRepository
func NewGormRetentionPolicyRepository(db *gorm.DB) *GormRetentionPolicyRepository {
	return &GormRetentionPolicyRepository{db: db}
}

// Create inserts a policy
func (r *GormRetentionPolicyRepository) Create(ctx context.Context, policy *retention.Policy) error {
	var model models.RetentionPolicyModel
	model.FromDomain(policy)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a policy with optimistic locking
func (r *GormRetentionPolicyRepository) Save(ctx context.Context, policy *retention.Policy) error {
	expected, restore := bumpVersion(&policy.BaseAggregateRoot)
	var model models.RetentionPolicyModel
	model.FromDomain(policy)
	if err := updateVersioned(ctx, r.db, &model, policy.TenantID, policy.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a policy by ID
func (r *GormRetentionPolicyRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*retention.Policy, error) {
	var model models.RetentionPolicyModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns the policies of a tenant
func (r *GormRetentionPolicyRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*retention.Policy, error) {
	var rows []models.RetentionPolicyModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return policiesToDomain(rows), nil
}

// ListDue returns active policies of every tenant whose next run is at or before now
func (r *GormRetentionPolicyRepository) ListDue(ctx context.Context, now time.Time) ([]*retention.Policy, error) {
	var rows []models.RetentionPolicyModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_execution <= ?", true, now.UTC()).
		Order("next_execution ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return policiesToDomain(rows), nil
}

func policiesToDomain(rows []models.RetentionPolicyModel) []*retention.Policy {
	out := make([]*retention.Policy, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormRetentionExecutionRepository implements retention.ExecutionRepository using GORM
type GormRetentionExecutionRepository struct {
	db *gorm.DB
}

// NewGormRetentionExecutionRepository creates a new GormRetentionExecutionRepository
func NewGormRetentionExecutionRepository(db *gorm.DB) *GormRetentionExecutionRepository {
	return &GormRetentionExecutionRepository{db: db}
}

// Create inserts an execution record
func (r *GormRetentionExecutionRepository) Create(ctx context.Context, exec *retention.Execution) error {
	return TranslateError(r.db.WithContext(ctx).Create(models.RetentionExecutionModelFromDomain(exec)).Error)
}

// Save rewrites an execution record
func (r *GormRetentionExecutionRepository) Save(ctx context.Context, exec *retention.Execution) error {
	return TranslateError(r.db.WithContext(ctx).Save(models.RetentionExecutionModelFromDomain(exec)).Error)
}

// ListByPolicy returns the latest executions of a policy
func (r *GormRetentionExecutionRepository) ListByPolicy(ctx context.Context, tenantID, policyID uuid.UUID, limit int) ([]*retention.Execution, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.RetentionExecutionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND policy_id = ?", tenantID, policyID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	out := make([]*retention.Execution, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GormRecordStore reads and mutates rows of registered retention targets.
// Table and column names only ever come from the target registry.
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore creates a new GormRecordStore
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// Select returns up to sel.Limit expired rows ordered by key
func (s *GormRecordStore) Select(ctx context.Context, sel retention.Selection) ([]retention.Record, error) {
	t := sel.Target
	query := s.db.WithContext(ctx).
		Table(t.Table).
		Where(clause.Eq{Column: clause.Column{Name: t.TenantColumn}, Value: sel.TenantID}).
		Where(clause.Lt{Column: clause.Column{Name: t.TimestampColumn}, Value: sel.Cutoff.UTC()})

	cols := make([]string, 0, len(sel.Conditions))
	for col := range sel.Conditions {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !t.AllowsCondition(col) {
			return nil, shared.ErrInvalidInput.WithDetail("condition", col)
		}
		query = query.Where(clause.Eq{Column: clause.Column{Name: col}, Value: sel.Conditions[col]})
	}
	if sel.AfterKey != nil {
		query = query.Where(clause.Gt{Column: clause.Column{Name: t.KeyColumn}, Value: sel.AfterKey})
	}
	if sel.Limit > 0 {
		query = query.Limit(sel.Limit)
	}

	var rows []map[string]any
	if err := query.Order(clause.OrderByColumn{Column: clause.Column{Name: t.KeyColumn}}).Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	records := make([]retention.Record, len(rows))
	for i, row := range rows {
		records[i] = retention.Record(row)
	}
	return records, nil
}

// Delete removes the rows with the given keys
func (s *GormRecordStore) Delete(ctx context.Context, target retention.Target, tenantID uuid.UUID, keys []any) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE ? = ? AND ? IN ?",
		clause.Table{Name: target.Table},
		clause.Column{Name: target.TenantColumn}, tenantID,
		clause.Column{Name: target.KeyColumn}, keys)
	if result.Error != nil {
		return 0, TranslateError(result.Error)
	}
	return result.RowsAffected, nil
}

// Anonymize overwrites the PII columns of the rows with the given keys
func (s *GormRecordStore) Anonymize(ctx context.Context, target retention.Target, tenantID uuid.UUID, keys []any) (int64, error) {
	if len(keys) == 0 || len(target.PIIColumns) == 0 {
		return 0, nil
	}
	values := make(map[string]any, len(target.PIIColumns))
	for col, v := range target.PIIColumns {
		values[col] = v
	}
	result := s.db.WithContext(ctx).
		Table(target.Table).
		Where(clause.Eq{Column: clause.Column{Name: target.TenantColumn}, Value: tenantID}).
		Where(clause.IN{Column: clause.Column{Name: target.KeyColumn}, Values: keys}).
		Updates(values)
	if result.Error != nil {
		return 0, TranslateError(result.Error)
	}
	return result.RowsAffected, nil
}

// Ensure repositories implement the retention interfaces
var (
	_ retention.PolicyRepository    = (*GormRetentionPolicyRepository)(nil)
	_ retention.ExecutionRepository = (*GormRetentionExecutionRepository)(nil)
	_ retention.RecordStore         = (*GormRecordStore)(nil)
)
