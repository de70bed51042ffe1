package posting

import (
	"context"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const payrollResource = "payroll_run"

// PayrollService posts payroll runs and their net pay disbursement
type PayrollService struct {
	poster
}

// NewPayrollService creates a new PayrollService
func NewPayrollService(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) *PayrollService {
	return &PayrollService{poster: newPoster(uow, journal, recorder, settings, logger)}
}

// CreatePayrollRun records a draft run
func (s *PayrollService) CreatePayrollRun(ctx context.Context, tenantID, actorID uuid.UUID, req CreatePayrollRunRequest) (*PayrollRunResponse, error) {
	run, err := finance.NewPayrollRun(tenantID, req.Label, req.PayDate, req.GrossPay, req.EmployerTax, req.TaxWithheld, req.BenefitsWithheld)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		if err := repos.Payrolls().Create(ctx, run); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourcePayroll, audit.ActionCreate, payrollResource, run.ID, nil, ToPayrollRunResponse(run))
	})
	if err != nil {
		return nil, err
	}
	resp := ToPayrollRunResponse(run)
	return &resp, nil
}

// payrollAccounts resolves the payroll control accounts
func (s *PayrollService) payrollAccounts(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID) (PayrollAccounts, error) {
	c := s.settings.Controls
	var accts PayrollAccounts
	for _, r := range []struct {
		role, code string
		dst        *uuid.UUID
	}{
		{"gross_pay_expense", c.GrossPayExpense, &accts.GrossPayExpense},
		{"employer_tax_expense", c.EmployerTaxExpense, &accts.EmployerTaxExpense},
		{"tax_withholding", c.TaxWithholding, &accts.TaxWithholding},
		{"benefit_withholding", c.BenefitWithholding, &accts.BenefitWithholding},
		{"net_pay_clearing", c.NetPayClearing, &accts.NetPayClearing},
	} {
		id, err := s.control(ctx, repos, tenantID, r.role, r.code)
		if err != nil {
			return PayrollAccounts{}, err
		}
		*r.dst = id
	}
	return accts, nil
}

// ApprovePayrollRun posts the composite payroll entry
func (s *PayrollService) ApprovePayrollRun(ctx context.Context, tenantID, actorID, runID uuid.UUID) (*PayrollRunResponse, error) {
	var run *finance.PayrollRun
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		run, err = repos.Payrolls().FindByID(ctx, tenantID, runID)
		if err != nil {
			return err
		}
		if run.Status != finance.PayrollStatusDraft {
			return ledger.ErrWrongStatus.WithDetail("payroll_run_id", run.ID.String())
		}
		accts, err := s.payrollAccounts(ctx, repos, tenantID)
		if err != nil {
			return err
		}
		before := ToPayrollRunResponse(run)
		entry, err := s.post(ctx, repos, tenantID, actorID, PayrollEntry(run, accts), "")
		if err != nil {
			return err
		}
		if err := run.Approve(entry.ID); err != nil {
			return err
		}
		if err := repos.Payrolls().Save(ctx, run); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourcePayroll, audit.ActionApprove, payrollResource, run.ID, before, ToPayrollRunResponse(run))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payroll run approved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("label", run.Label),
		zap.String("gross", run.GrossPay.String()),
		zap.String("net", run.NetPay().String()),
	)
	resp := ToPayrollRunResponse(run)
	return &resp, nil
}

// DisbursePayrollRun clears net pay out of a bank account
func (s *PayrollService) DisbursePayrollRun(ctx context.Context, tenantID, actorID, runID uuid.UUID, req DisbursePayrollRequest) (*PayrollRunResponse, error) {
	var run *finance.PayrollRun
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		run, err = repos.Payrolls().FindByID(ctx, tenantID, runID)
		if err != nil {
			return err
		}
		if run.Status != finance.PayrollStatusApproved {
			return ledger.ErrWrongStatus.WithDetail("payroll_run_id", run.ID.String())
		}
		bank, err := s.bank(ctx, repos, tenantID, req.BankAccountID)
		if err != nil {
			return err
		}
		clearing, err := s.control(ctx, repos, tenantID, "net_pay_clearing", s.settings.Controls.NetPayClearing)
		if err != nil {
			return err
		}
		before := ToPayrollRunResponse(run)
		date := req.Date
		if date.IsZero() {
			date = run.PayDate
		}

		entry, err := s.post(ctx, repos, tenantID, actorID, PayrollDisbursementEntry(run, clearing, bank.GLAccountID, date), ledger.PrefixPayment)
		if err != nil {
			return err
		}
		tx, err := finance.NewCashTransaction(bank, finance.CashDisbursement, run.NetPay(), clearing, date, "Net pay "+run.Label)
		if err != nil {
			return err
		}
		tx.Reference = entry.EntryNumber
		tx.MarkPosted(entry.ID)
		if err := repos.CashTransactions().Create(ctx, tx); err != nil {
			return err
		}

		if err := run.MarkDisbursed(entry.ID); err != nil {
			return err
		}
		if err := repos.Payrolls().Save(ctx, run); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourcePayroll, audit.ActionPay, payrollResource, run.ID, before, ToPayrollRunResponse(run))
	})
	if err != nil {
		return nil, err
	}
	resp := ToPayrollRunResponse(run)
	return &resp, nil
}

// GetPayrollRun returns a payroll run by id
func (s *PayrollService) GetPayrollRun(ctx context.Context, tenantID, runID uuid.UUID) (*PayrollRunResponse, error) {
	run, err := s.uow.Repos().Payrolls().FindByID(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	resp := ToPayrollRunResponse(run)
	return &resp, nil
}
