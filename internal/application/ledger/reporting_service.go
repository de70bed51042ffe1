package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/reporting"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReportingService builds read-only reports from posted journal lines
type ReportingService struct {
	uow      unitofwork.UnitOfWork
	accounts *AccountService
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportingService creates a new ReportingService
func NewReportingService(uow unitofwork.UnitOfWork, accounts *AccountService, logger *zap.Logger) *ReportingService {
	return &ReportingService{uow: uow, accounts: accounts, logger: logger, now: time.Now}
}

// TrialBalance lists balances as of a date. Without asOf the computed
// balances are also compared with the cached ones; any difference marks
// the report provisional and triggers a rebuild. Unequal totals are
// returned as LEDGER_INCONSISTENCY together with the report.
func (s *ReportingService) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (*reporting.TrialBalance, error) {
	ctx, span := telemetry.StartSpan(ctx, "reporting", "trial_balance", attribute.String("tenant_id", tenantID.String()))
	tb, err := s.trialBalance(ctx, tenantID, asOf)
	telemetry.EndSpan(span, err)
	return tb, err
}

func (s *ReportingService) trialBalance(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (*reporting.TrialBalance, error) {
	repos := s.uow.Repos()
	accounts, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{To: asOf})
	if err != nil {
		return nil, err
	}
	totals := reporting.SumByAccount(lines)

	date := s.now()
	if asOf != nil {
		date = *asOf
	}
	tb, buildErr := reporting.BuildTrialBalance(tenantID, date, accounts, totals)
	if buildErr != nil {
		s.logger.Error("trial balance out of balance",
			zap.String("tenant_id", tenantID.String()),
			zap.String("code", ledger.CodeLedgerInconsistency),
			zap.String("total_debit", tb.TotalDebit.String()),
			zap.String("total_credit", tb.TotalCredit.String()),
		)
	}

	if asOf == nil {
		if mismatches := reporting.FindMismatches(accounts, totals); len(mismatches) > 0 {
			tb.Provisional = true
			tb.Mismatches = mismatches
			s.logger.Error("cached balances disagree with posted lines",
				zap.String("tenant_id", tenantID.String()),
				zap.String("code", ledger.CodeLedgerInconsistency),
				zap.Int("accounts", len(mismatches)),
			)
			if _, err := s.accounts.RebuildBalances(ctx, tenantID, uuid.Nil); err != nil {
				s.logger.Error("balance rebuild failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			}
		}
	}
	return tb, buildErr
}

// BalanceSheet reports assets against liabilities and equity as of a date
func (s *ReportingService) BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (*reporting.BalanceSheet, error) {
	repos := s.uow.Repos()
	accounts, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{To: asOf})
	if err != nil {
		return nil, err
	}
	date := s.now()
	if asOf != nil {
		date = *asOf
	}
	bs, err := reporting.BuildBalanceSheet(tenantID, date, accounts, reporting.SumByAccount(lines))
	if err != nil {
		s.logger.Error("balance sheet equation does not hold",
			zap.String("tenant_id", tenantID.String()),
			zap.String("code", ledger.CodeLedgerInconsistency),
		)
	}
	return bs, err
}

// IncomeStatement reports revenue less expense over [start, end]. Closing
// entries are excluded so closed periods still show their result.
func (s *ReportingService) IncomeStatement(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*reporting.IncomeStatement, error) {
	if end.Before(start) {
		return nil, ledger.ErrInvalidPeriod
	}
	return s.incomeStatement(ctx, s.uow.Repos(), tenantID, start, end)
}

func (s *ReportingService) incomeStatement(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, start, end time.Time) (*reporting.IncomeStatement, error) {
	accounts, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{From: &start, To: &end, ExcludeClosing: true})
	if err != nil {
		return nil, err
	}
	return reporting.BuildIncomeStatement(tenantID, start, end, accounts, reporting.SumByAccount(lines)), nil
}

// CashFlow reports cash movements over [start, end] by activity
func (s *ReportingService) CashFlow(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*reporting.CashFlowStatement, error) {
	if end.Before(start) {
		return nil, ledger.ErrInvalidPeriod
	}
	repos := s.uow.Repos()
	accounts, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	var cashIDs []uuid.UUID
	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for _, acct := range accounts {
		byID[acct.ID] = acct
		if acct.CashFlowCategory == ledger.CashFlowCash {
			cashIDs = append(cashIDs, acct.ID)
		}
	}

	opening := decimal.Zero
	if len(cashIDs) > 0 {
		before := ledger.CivilDate(start).AddDate(0, 0, -1)
		prior, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{AccountIDs: cashIDs, To: &before})
		if err != nil {
			return nil, err
		}
		for id, t := range reporting.SumByAccount(prior) {
			opening = opening.Add(reporting.NetBalance(byID[id], t))
		}
	}

	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{From: &start, To: &end})
	if err != nil {
		return nil, err
	}
	return reporting.BuildCashFlow(tenantID, start, end, accounts, lines, opening), nil
}

// GLDetail lists posted lines with running balances per account
func (s *ReportingService) GLDetail(ctx context.Context, tenantID uuid.UUID, query GLDetailQuery) (*reporting.GLDetail, error) {
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, ledger.ErrInvalidPeriod
	}
	repos := s.uow.Repos()
	accounts, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for _, acct := range accounts {
		byID[acct.ID] = acct
	}
	for _, id := range query.AccountIDs {
		if _, ok := byID[id]; !ok {
			return nil, ledger.ErrUnknownAccount.WithDetail("account_id", id.String())
		}
	}

	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{
		AccountIDs: query.AccountIDs,
		From:       query.From,
		To:         query.To,
	})
	if err != nil {
		return nil, err
	}

	opening := make(map[uuid.UUID]decimal.Decimal)
	if query.From != nil {
		before := ledger.CivilDate(*query.From).AddDate(0, 0, -1)
		prior, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{AccountIDs: query.AccountIDs, To: &before})
		if err != nil {
			return nil, err
		}
		for id, t := range reporting.SumByAccount(prior) {
			opening[id] = reporting.NetBalance(byID[id], t)
		}
	}
	return reporting.BuildGLDetail(tenantID, query.From, query.To, byID, lines, opening), nil
}

// Aging buckets open bills or invoices by days past due
func (s *ReportingService) Aging(ctx context.Context, tenantID uuid.UUID, kind reporting.AgingKind, asOf *time.Time) (*reporting.AgingReport, error) {
	date := s.now()
	if asOf != nil {
		date = *asOf
	}
	date = ledger.CivilDate(date)
	repos := s.uow.Repos()

	var items []reporting.AgingItem
	switch reporting.AgingKind(strings.ToUpper(string(kind))) {
	case reporting.AgingPayables:
		bills, err := repos.Bills().ListOpen(ctx, tenantID, date)
		if err != nil {
			return nil, err
		}
		for _, b := range bills {
			items = append(items, reporting.AgingItem{
				DocumentID:  b.ID,
				Number:      b.BillNumber,
				Party:       b.VendorName,
				DueDate:     b.DueDate,
				Outstanding: b.Outstanding(),
			})
		}
		kind = reporting.AgingPayables
	case reporting.AgingReceivables:
		invoices, err := repos.Invoices().ListOpen(ctx, tenantID, date)
		if err != nil {
			return nil, err
		}
		for _, inv := range invoices {
			items = append(items, reporting.AgingItem{
				DocumentID:  inv.ID,
				Number:      inv.InvoiceNumber,
				Party:       inv.CustomerName,
				DueDate:     inv.DueDate,
				Outstanding: inv.Outstanding(),
			})
		}
		kind = reporting.AgingReceivables
	default:
		return nil, errors.New("aging kind must be AP or AR")
	}
	return reporting.BuildAging(tenantID, kind, date, items), nil
}

// RunCloseTask generates the period statements for the generate_statements
// close task. An unequal trial balance fails the task.
func (s *ReportingService) RunCloseTask(ctx context.Context, repos unitofwork.Repositories, period *ledger.AccountingPeriod, _ uuid.UUID) (string, error) {
	accounts, err := repos.Accounts().List(ctx, period.TenantID, ledger.AccountFilter{})
	if err != nil {
		return "", err
	}
	end := period.EndDate
	lines, err := repos.Entries().PostedLines(ctx, period.TenantID, ledger.LineFilter{To: &end})
	if err != nil {
		return "", err
	}
	tb, err := reporting.BuildTrialBalance(period.TenantID, end, accounts, reporting.SumByAccount(lines))
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	is, err := s.incomeStatement(ctx, repos, period.TenantID, period.StartDate, period.EndDate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("trial balance %s/%s, revenue %s, expenses %s, net income %s",
		tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2),
		is.Revenue.Total.StringFixed(2), is.Expenses.Total.StringFixed(2), is.NetIncome.StringFixed(2)), nil
}
