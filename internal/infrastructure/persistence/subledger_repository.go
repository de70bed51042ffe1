package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBillRepository implements finance.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// Create inserts a new bill
func (r *GormBillRepository) Create(ctx context.Context, bill *finance.Bill) error {
	var model models.BillModel
	model.FromDomain(bill)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a bill with optimistic locking
func (r *GormBillRepository) Save(ctx context.Context, bill *finance.Bill) error {
	expected, restore := bumpVersion(&bill.BaseAggregateRoot)
	var model models.BillModel
	model.FromDomain(bill)
	if err := updateVersioned(ctx, r.db, &model, bill.TenantID, bill.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a bill by ID
func (r *GormBillRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	var model models.BillModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListOpen returns approved or partially paid bills dated on or before asOf
func (r *GormBillRepository) ListOpen(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]*finance.Bill, error) {
	var rows []models.BillModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND bill_date <= ?", tenantID,
			[]finance.BillStatus{finance.BillStatusApproved, finance.BillStatusPartial}, ledger.CivilDate(asOf)).
		Order("due_date ASC, bill_number ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	bills := make([]*finance.Bill, len(rows))
	for i := range rows {
		bills[i] = rows[i].ToDomain()
	}
	return bills, nil
}

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *finance.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates an invoice with optimistic locking
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	expected, restore := bumpVersion(&invoice.BaseAggregateRoot)
	var model models.InvoiceModel
	model.FromDomain(invoice)
	if err := updateVersioned(ctx, r.db, &model, invoice.TenantID, invoice.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListOpen returns sent or partially paid invoices dated on or before asOf
func (r *GormInvoiceRepository) ListOpen(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]*finance.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND invoice_date <= ?", tenantID,
			[]finance.InvoiceStatus{finance.InvoiceStatusSent, finance.InvoiceStatusPartial}, ledger.CivilDate(asOf)).
		Order("due_date ASC, invoice_number ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	invoices := make([]*finance.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices, nil
}

// GormTaxRuleRepository implements finance.TaxRuleRepository using GORM
type GormTaxRuleRepository struct {
	db *gorm.DB
}

// NewGormTaxRuleRepository creates a new GormTaxRuleRepository
func NewGormTaxRuleRepository(db *gorm.DB) *GormTaxRuleRepository {
	return &GormTaxRuleRepository{db: db}
}

// Create inserts a tax rule
func (r *GormTaxRuleRepository) Create(ctx context.Context, rule *finance.TaxRule) error {
	var model models.TaxRuleModel
	model.FromDomain(rule)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// FindByCode finds a tax rule by code
func (r *GormTaxRuleRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*finance.TaxRule, error) {
	var model models.TaxRuleModel
	if err := findOne(ctx, r.db, &model, "tenant_id = ? AND code = ?", tenantID, code); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns all tax rules of a tenant
func (r *GormTaxRuleRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*finance.TaxRule, error) {
	var rows []models.TaxRuleModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	rules := make([]*finance.TaxRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules, nil
}

// GormBankAccountRepository implements finance.BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// Create inserts a bank account
func (r *GormBankAccountRepository) Create(ctx context.Context, account *finance.BankAccount) error {
	var model models.BankAccountModel
	model.FromDomain(account)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a bank account with optimistic locking
func (r *GormBankAccountRepository) Save(ctx context.Context, account *finance.BankAccount) error {
	expected, restore := bumpVersion(&account.BaseAggregateRoot)
	var model models.BankAccountModel
	model.FromDomain(account)
	if err := updateVersioned(ctx, r.db, &model, account.TenantID, account.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a bank account by ID
func (r *GormBankAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankAccount, error) {
	var model models.BankAccountModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns all bank accounts of a tenant
func (r *GormBankAccountRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*finance.BankAccount, error) {
	var rows []models.BankAccountModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	accounts := make([]*finance.BankAccount, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// GormCashTransactionRepository implements finance.CashTransactionRepository using GORM
type GormCashTransactionRepository struct {
	db *gorm.DB
}

// NewGormCashTransactionRepository creates a new GormCashTransactionRepository
func NewGormCashTransactionRepository(db *gorm.DB) *GormCashTransactionRepository {
	return &GormCashTransactionRepository{db: db}
}

// Create inserts a cash transaction
func (r *GormCashTransactionRepository) Create(ctx context.Context, tx *finance.CashTransaction) error {
	var model models.CashTransactionModel
	model.FromDomain(tx)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a cash transaction with optimistic locking
func (r *GormCashTransactionRepository) Save(ctx context.Context, tx *finance.CashTransaction) error {
	expected, restore := bumpVersion(&tx.BaseAggregateRoot)
	var model models.CashTransactionModel
	model.FromDomain(tx)
	if err := updateVersioned(ctx, r.db, &model, tx.TenantID, tx.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByIDs loads the given transactions ordered by date
func (r *GormCashTransactionRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*finance.CashTransaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.CashTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("transaction_date ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return cashTransactionsToDomain(rows), nil
}

// ListUnreconciled returns posted, unreconciled transactions of a bank account up to a date
func (r *GormCashTransactionRepository) ListUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID, upTo time.Time) ([]*finance.CashTransaction, error) {
	var rows []models.CashTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ? AND reconciled = ? AND transaction_date <= ?",
			tenantID, bankAccountID, false, ledger.CivilDate(upTo)).
		Order("transaction_date ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return cashTransactionsToDomain(rows), nil
}

func cashTransactionsToDomain(rows []models.CashTransactionModel) []*finance.CashTransaction {
	out := make([]*finance.CashTransaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormReconciliationRepository implements finance.ReconciliationRepository using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// Create inserts a reconciliation
func (r *GormReconciliationRepository) Create(ctx context.Context, rec *finance.BankReconciliation) error {
	var model models.BankReconciliationModel
	model.FromDomain(rec)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// FindByID finds a reconciliation by ID
func (r *GormReconciliationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankReconciliation, error) {
	var model models.BankReconciliationModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormPayrollRepository implements finance.PayrollRepository using GORM
type GormPayrollRepository struct {
	db *gorm.DB
}

// NewGormPayrollRepository creates a new GormPayrollRepository
func NewGormPayrollRepository(db *gorm.DB) *GormPayrollRepository {
	return &GormPayrollRepository{db: db}
}

// Create inserts a payroll run
func (r *GormPayrollRepository) Create(ctx context.Context, run *finance.PayrollRun) error {
	var model models.PayrollRunModel
	model.FromDomain(run)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a payroll run with optimistic locking
func (r *GormPayrollRepository) Save(ctx context.Context, run *finance.PayrollRun) error {
	expected, restore := bumpVersion(&run.BaseAggregateRoot)
	var model models.PayrollRunModel
	model.FromDomain(run)
	if err := updateVersioned(ctx, r.db, &model, run.TenantID, run.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a payroll run by ID
func (r *GormPayrollRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.PayrollRun, error) {
	var model models.PayrollRunModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormAssetRepository implements finance.AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// Create inserts a fixed asset
func (r *GormAssetRepository) Create(ctx context.Context, asset *finance.FixedAsset) error {
	var model models.FixedAssetModel
	model.FromDomain(asset)
	return TranslateError(r.db.WithContext(ctx).Create(&model).Error)
}

// Save updates a fixed asset with optimistic locking
func (r *GormAssetRepository) Save(ctx context.Context, asset *finance.FixedAsset) error {
	expected, restore := bumpVersion(&asset.BaseAggregateRoot)
	var model models.FixedAssetModel
	model.FromDomain(asset)
	if err := updateVersioned(ctx, r.db, &model, asset.TenantID, asset.ID, expected); err != nil {
		restore()
		return err
	}
	return nil
}

// FindByID finds a fixed asset by ID
func (r *GormAssetRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.FixedAsset, error) {
	var model models.FixedAssetModel
	if err := findOne(ctx, r.db, &model, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListDepreciable returns active assets acquired on or before the given date
func (r *GormAssetRepository) ListDepreciable(ctx context.Context, tenantID uuid.UUID, acquiredBy time.Time) ([]*finance.FixedAsset, error) {
	var rows []models.FixedAssetModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND acquisition_date <= ?",
			tenantID, finance.AssetStatusActive, ledger.CivilDate(acquiredBy)).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	assets := make([]*finance.FixedAsset, len(rows))
	for i := range rows {
		assets[i] = rows[i].ToDomain()
	}
	return assets, nil
}

// RecordDepreciation stores one depreciation charge. The (asset, period) pair is unique.
func (r *GormAssetRepository) RecordDepreciation(ctx context.Context, rec *finance.DepreciationRecord) error {
	model := models.DepreciationRecordModelFromDomain(rec)
	return TranslateError(r.db.WithContext(ctx).Create(model).Error)
}

// HasDepreciation reports whether the asset was already depreciated for the period
func (r *GormAssetRepository) HasDepreciation(ctx context.Context, tenantID, assetID, periodID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DepreciationRecordModel{}).
		Where("tenant_id = ? AND asset_id = ? AND period_id = ?", tenantID, assetID, periodID).
		Count(&count).Error; err != nil {
		return false, TranslateError(err)
	}
	return count > 0, nil
}

// Ensure repositories implement the finance interfaces
var (
	_ finance.BillRepository            = (*GormBillRepository)(nil)
	_ finance.InvoiceRepository         = (*GormInvoiceRepository)(nil)
	_ finance.TaxRuleRepository         = (*GormTaxRuleRepository)(nil)
	_ finance.BankAccountRepository     = (*GormBankAccountRepository)(nil)
	_ finance.CashTransactionRepository = (*GormCashTransactionRepository)(nil)
	_ finance.ReconciliationRepository  = (*GormReconciliationRepository)(nil)
	_ finance.PayrollRepository         = (*GormPayrollRepository)(nil)
	_ finance.AssetRepository           = (*GormAssetRepository)(nil)
)
