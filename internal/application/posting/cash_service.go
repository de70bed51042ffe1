package posting

import (
	"context"
	"strings"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	bankAccountResource     = "bank_account"
	cashTransactionResource = "cash_transaction"
	reconciliationResource  = "bank_reconciliation"
)

// CashService manages bank accounts, posts cash transactions and
// reconciles bank statements
type CashService struct {
	poster
}

// NewCashService creates a new CashService
func NewCashService(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) *CashService {
	return &CashService{poster: newPoster(uow, journal, recorder, settings, logger)}
}

// cashAccount checks that a GL account can back a bank account
func (s *CashService) cashAccount(ctx context.Context, repos unitofwork.Repositories, tenantID, id uuid.UUID) error {
	acct, err := s.activeAccount(ctx, repos, tenantID, id)
	if err != nil {
		return err
	}
	if acct.Type != ledger.AccountTypeAsset {
		return ledger.ErrInvalidType.WithDetail("gl_account", acct.Code)
	}
	return nil
}

// CreateBankAccount links a new bank account to an active asset account
func (s *CashService) CreateBankAccount(ctx context.Context, tenantID, actorID uuid.UUID, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	var bank *finance.BankAccount
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		if err := s.cashAccount(ctx, repos, tenantID, req.GLAccountID); err != nil {
			return err
		}
		currency := req.Currency
		if currency == "" {
			currency = s.settings.BaseCurrency
		}
		var err error
		bank, err = finance.NewBankAccount(tenantID, req.Name, req.AccountNumber, req.GLAccountID, currency)
		if err != nil {
			return err
		}
		if err := repos.BankAccounts().Create(ctx, bank); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceCash, audit.ActionCreate, bankAccountResource, bank.ID, nil, ToBankAccountResponse(bank))
	})
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(bank)
	return &resp, nil
}

// RelinkBankAccount points a bank account at another GL cash account.
// Transactions posted earlier keep their account.
func (s *CashService) RelinkBankAccount(ctx context.Context, tenantID, actorID, bankID uuid.UUID, req RelinkBankAccountRequest) (*BankAccountResponse, error) {
	var bank *finance.BankAccount
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		bank, err = repos.BankAccounts().FindByID(ctx, tenantID, bankID)
		if err != nil {
			return err
		}
		if err := s.cashAccount(ctx, repos, tenantID, req.GLAccountID); err != nil {
			return err
		}
		before := ToBankAccountResponse(bank)
		bank.RelinkGLAccount(req.GLAccountID)
		if err := repos.BankAccounts().Save(ctx, bank); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceCash, audit.ActionUpdate, bankAccountResource, bank.ID, before, ToBankAccountResponse(bank))
	})
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(bank)
	return &resp, nil
}

// ListBankAccounts returns the tenant's bank accounts
func (s *CashService) ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]BankAccountResponse, error) {
	banks, err := s.uow.Repos().BankAccounts().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]BankAccountResponse, len(banks))
	for i, b := range banks {
		out[i] = ToBankAccountResponse(b)
	}
	return out, nil
}

// RecordTransaction posts a deposit or disbursement against the GL account
// the bank account is linked to right now
func (s *CashService) RecordTransaction(ctx context.Context, tenantID, actorID uuid.UUID, req CashTransactionRequest) (*CashTransactionResponse, error) {
	var tx *finance.CashTransaction
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		bank, err := s.bank(ctx, repos, tenantID, req.BankAccountID)
		if err != nil {
			return err
		}
		txType := finance.CashTransactionType(strings.ToUpper(req.Type))
		tx, err = finance.NewCashTransaction(bank, txType, req.Amount, req.CounterAccountID, req.TransactionDate, req.Description)
		if err != nil {
			return err
		}
		tx.Reference = req.Reference

		entry, err := s.post(ctx, repos, tenantID, actorID, CashEntry(tx), "")
		if err != nil {
			return err
		}
		tx.MarkPosted(entry.ID)
		if err := repos.CashTransactions().Create(ctx, tx); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceCash, audit.ActionPost, cashTransactionResource, tx.ID, nil, ToCashTransactionResponse(tx))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cash transaction posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()),
	)
	resp := ToCashTransactionResponse(tx)
	return &resp, nil
}

// ListUnreconciled returns posted transactions of a bank account dated up
// to upTo that have not cleared yet
func (s *CashService) ListUnreconciled(ctx context.Context, tenantID, bankID uuid.UUID, upTo time.Time) ([]CashTransactionResponse, error) {
	if upTo.IsZero() {
		upTo = s.today()
	}
	txs, err := s.uow.Repos().CashTransactions().ListUnreconciled(ctx, tenantID, bankID, upTo)
	if err != nil {
		return nil, err
	}
	out := make([]CashTransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = ToCashTransactionResponse(t)
	}
	return out, nil
}

// Reconcile compares the statement balance with the book balance of the
// cleared transactions. A difference posts one RECON- adjusting entry
// against the configured adjustment account. Cleared transactions are
// flagged reconciled; no account changes for them.
func (s *CashService) Reconcile(ctx context.Context, tenantID, actorID uuid.UUID, req ReconcileRequest) (*ReconciliationResponse, error) {
	var rec *finance.BankReconciliation
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		bank, err := s.bank(ctx, repos, tenantID, req.BankAccountID)
		if err != nil {
			return err
		}
		cleared, err := repos.CashTransactions().FindByIDs(ctx, tenantID, req.TransactionIDs)
		if err != nil {
			return err
		}
		if len(cleared) != len(req.TransactionIDs) {
			return shared.ErrNotFound.WithDetail("resource", cashTransactionResource)
		}
		rec, err = finance.NewBankReconciliation(bank, req.StatementDate, req.StatementBalance, cleared)
		if err != nil {
			return err
		}

		if rec.NeedsAdjustment() {
			adjID, err := s.control(ctx, repos, tenantID, "reconciliation_adjustment", s.settings.Controls.ReconciliationAdjustment)
			if err != nil {
				return err
			}
			entry, err := s.post(ctx, repos, tenantID, actorID, ReconciliationEntry(rec, bank.GLAccountID, adjID), ledger.PrefixReconciliation)
			if err != nil {
				return err
			}
			rec.AdjustmentEntryID = &entry.ID
		}

		for _, tx := range cleared {
			if err := tx.MarkReconciled(rec.ID); err != nil {
				return err
			}
			if err := repos.CashTransactions().Save(ctx, tx); err != nil {
				return err
			}
		}
		bank.RecordStatement(rec.StatementDate, rec.StatementBalance)
		if err := repos.BankAccounts().Save(ctx, bank); err != nil {
			return err
		}
		if err := repos.Reconciliations().Create(ctx, rec); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceCash, audit.ActionReconcile, reconciliationResource, rec.ID, nil, ToReconciliationResponse(rec))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bank statement reconciled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bank_account_id", req.BankAccountID.String()),
		zap.Int("cleared", len(rec.ClearedIDs)),
		zap.String("difference", rec.Difference.String()),
	)
	resp := ToReconciliationResponse(rec)
	return &resp, nil
}

// GetReconciliation returns a reconciliation by id
func (s *CashService) GetReconciliation(ctx context.Context, tenantID, id uuid.UUID) (*ReconciliationResponse, error) {
	rec, err := s.uow.Repos().Reconciliations().FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToReconciliationResponse(rec)
	return &resp, nil
}
