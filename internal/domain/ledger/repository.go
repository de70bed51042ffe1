package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountFilter narrows account listings
type AccountFilter struct {
	Type       AccountType
	ActiveOnly bool
	ParentID   *uuid.UUID
	Search     string
}

// AccountRepository persists the chart of accounts
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Account, error)
	List(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]*Account, error)
	// LockForUpdate row-locks the accounts in ascending id order
	LockForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Account, error)
	// UpdateBalance writes the absolute cached balance of a locked account
	UpdateBalance(ctx context.Context, tenantID, id uuid.UUID, balance decimal.Decimal) error
	HasLines(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

// EntryFilter narrows journal entry listings
type EntryFilter struct {
	Status       EntryStatus
	SourceModule SourceModule
	From         *time.Time
	To           *time.Time
	OrderBy      string
	OrderDir     string
	shared.Page
}

// LineFilter selects posted lines for balances and reports
type LineFilter struct {
	AccountIDs []uuid.UUID
	From       *time.Time
	To         *time.Time
	// ExcludeClosing drops lines of CLOSE entries, used by the income statement
	ExcludeClosing bool
}

// PostedLine is a journal line joined with its entry header
type PostedLine struct {
	EntryID      uuid.UUID
	EntryNumber  string
	EntryDate    time.Time
	SourceModule SourceModule
	Description  string
	LineNumber   int
	AccountID    uuid.UUID
	LineMemo     string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// EntryRepository persists journal entries with their lines
type EntryRepository interface {
	Create(ctx context.Context, entry *JournalEntry) error
	// Save updates header fields; lines are immutable after creation
	Save(ctx context.Context, entry *JournalEntry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)
	LockByID(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)
	List(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]*JournalEntry, int64, error)
	CountInRange(ctx context.Context, tenantID uuid.UUID, statuses []EntryStatus, from, to time.Time) (int64, error)
	// PostedInRange returns ids of posted entries dated within [from, to], ordered by date and number
	PostedInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)
	// PostedLines returns lines of posted or reversed entries, ordered by
	// entry_date, entry_number, line_number
	PostedLines(ctx context.Context, tenantID uuid.UUID, filter LineFilter) ([]PostedLine, error)
}

// PeriodRepository persists accounting periods
type PeriodRepository interface {
	Create(ctx context.Context, period *AccountingPeriod) error
	Save(ctx context.Context, period *AccountingPeriod) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*AccountingPeriod, error)
	LockByID(ctx context.Context, tenantID, id uuid.UUID) (*AccountingPeriod, error)
	LockByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*AccountingPeriod, error)
	FindOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]*AccountingPeriod, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*AccountingPeriod, error)
}

// CloseRepository persists close processes and their tasks
type CloseRepository interface {
	Create(ctx context.Context, process *CloseProcess) error
	Save(ctx context.Context, process *CloseProcess) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CloseProcess, error)
	FindByTaskID(ctx context.Context, tenantID, taskID uuid.UUID) (*CloseProcess, error)
	FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*CloseProcess, error)
}

// SequenceGenerator issues monotonically increasing numbers per tenant and prefix.
// Numbers never repeat; gaps are allowed when a transaction rolls back.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, prefix string) (int64, error)
}
