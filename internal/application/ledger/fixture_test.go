package ledger

import (
	"context"
	"testing"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	uow       unitofwork.UnitOfWork
	tenantID  uuid.UUID
	actorID   uuid.UUID
	accounts  *AccountService
	journal   *JournalService
	periods   *PeriodService
	reporting *ReportingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	uow := persistence.NewGormUnitOfWork(db, nil)
	settings := NewSettings(config.LedgerConfig{
		BaseCurrency: "USD",
		DefaultScale: 2,
		ControlAccounts: config.ControlAccounts{
			RetainedEarnings: "3100",
			FXRounding:       "7990",
		},
	})
	logger := zap.NewNop()
	recorder := auditapp.NewRecorder(time.Second, logger)

	accounts := NewAccountService(uow, recorder, settings, logger)
	journal := NewJournalService(uow, recorder, settings, logger)
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		uow:       uow,
		tenantID:  testutil.TestTenantID(),
		actorID:   testutil.TestUserID(),
		accounts:  accounts,
		journal:   journal,
		periods:   NewPeriodService(uow, journal, recorder, settings, logger),
		reporting: NewReportingService(uow, accounts, logger),
	}
	return f
}

func (f *fixture) account(code, name string, typ ledger.AccountType) uuid.UUID {
	f.t.Helper()
	resp, err := f.accounts.Create(f.ctx, f.tenantID, f.actorID, CreateAccountRequest{
		Code: code,
		Name: name,
		Type: string(typ),
	})
	require.NoError(f.t, err)
	return resp.ID
}

func (f *fixture) period(label string, start, end time.Time) uuid.UUID {
	f.t.Helper()
	resp, err := f.periods.CreatePeriod(f.ctx, f.tenantID, f.actorID, CreatePeriodRequest{
		Label:      label,
		PeriodType: string(ledger.PeriodTypeMonth),
		StartDate:  start,
		EndDate:    end,
	})
	require.NoError(f.t, err)
	return resp.ID
}

func (f *fixture) balance(id uuid.UUID) decimal.Decimal {
	f.t.Helper()
	resp, err := f.accounts.Get(f.ctx, f.tenantID, id)
	require.NoError(f.t, err)
	return resp.CurrentBalance
}

func (f *fixture) draft(date time.Time, debitID, creditID uuid.UUID, debit, credit string) (*EntryResponse, error) {
	return f.journal.Draft(f.ctx, f.tenantID, f.actorID, DraftEntryRequest{
		EntryDate:   date,
		Description: "test entry",
		Lines: []LineRequest{
			{AccountID: debitID, Debit: decimal.RequireFromString(debit)},
			{AccountID: creditID, Credit: decimal.RequireFromString(credit)},
		},
	})
}

// postEntry drafts and walks an entry through submit, approve and post
func (f *fixture) postEntry(date time.Time, debitID, creditID uuid.UUID, amount string) *EntryResponse {
	f.t.Helper()
	d, err := f.draft(date, debitID, creditID, amount, amount)
	require.NoError(f.t, err)
	_, err = f.journal.Submit(f.ctx, f.tenantID, f.actorID, d.ID)
	require.NoError(f.t, err)
	_, err = f.journal.Approve(f.ctx, f.tenantID, f.actorID, d.ID)
	require.NoError(f.t, err)
	posted, err := f.journal.Post(f.ctx, f.tenantID, f.actorID, d.ID)
	require.NoError(f.t, err)
	return posted
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
