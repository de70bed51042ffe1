package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the chart of accounts
type AccountModel struct {
	TenantAggregateModel
	Code             string                  `gorm:"type:varchar(20);not null;index"`
	Name             string                  `gorm:"type:varchar(200);not null"`
	Type             ledger.AccountType      `gorm:"type:varchar(20);not null;index"`
	SubType          string                  `gorm:"type:varchar(50)"`
	ParentID         *uuid.UUID              `gorm:"type:uuid;index"`
	NormalBalance    ledger.NormalBalance    `gorm:"type:varchar(10);not null"`
	Currency         string                  `gorm:"type:varchar(3);not null"`
	IsActive         bool                    `gorm:"not null;default:true"`
	IsSystem         bool                    `gorm:"not null;default:false"`
	CashFlowCategory ledger.CashFlowCategory `gorm:"type:varchar(20);not null;default:'NONE'"`
	CurrentBalance   decimal.Decimal         `gorm:"type:decimal(24,6);not null;default:0"`
	Description      string                  `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	a := &ledger.Account{
		Code:             m.Code,
		Name:             m.Name,
		Type:             m.Type,
		SubType:          m.SubType,
		ParentID:         m.ParentID,
		NormalBalance:    m.NormalBalance,
		Currency:         m.Currency,
		IsActive:         m.IsActive,
		IsSystem:         m.IsSystem,
		CashFlowCategory: m.CashFlowCategory,
		CurrentBalance:   m.CurrentBalance,
		Description:      m.Description,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain Account
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Type = a.Type
	m.SubType = a.SubType
	m.ParentID = a.ParentID
	m.NormalBalance = a.NormalBalance
	m.Currency = a.Currency
	m.IsActive = a.IsActive
	m.IsSystem = a.IsSystem
	m.CashFlowCategory = a.CashFlowCategory
	m.CurrentBalance = a.CurrentBalance
	m.Description = a.Description
}

// JournalEntryModel is the persistence model for journal entry headers
type JournalEntryModel struct {
	TenantAggregateModel
	EntryNumber    string              `gorm:"type:varchar(30);not null;index"`
	EntryDate      time.Time           `gorm:"type:date;not null;index"`
	Description    string              `gorm:"type:text"`
	Reference      string              `gorm:"type:varchar(100)"`
	Status         ledger.EntryStatus  `gorm:"type:varchar(20);not null;index"`
	SourceModule   ledger.SourceModule `gorm:"type:varchar(20);not null;index"`
	SourceID       *uuid.UUID          `gorm:"type:uuid;index"`
	Currency       string              `gorm:"type:varchar(3);not null"`
	TotalDebit     decimal.Decimal     `gorm:"type:decimal(24,6);not null"`
	TotalCredit    decimal.Decimal     `gorm:"type:decimal(24,6);not null"`
	ReversalOfID   *uuid.UUID          `gorm:"type:uuid;index"`
	ReversedByID   *uuid.UUID          `gorm:"type:uuid"`
	ReversalReason string              `gorm:"type:varchar(500)"`
	VoidReason     string              `gorm:"type:varchar(500)"`
	SubmittedAt    *time.Time
	SubmittedBy    *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt     *time.Time
	ApprovedBy     *uuid.UUID `gorm:"type:uuid"`
	PostedAt       *time.Time
	PostedBy       *uuid.UUID `gorm:"type:uuid"`
	ReversedAt     *time.Time
	ReversedBy     *uuid.UUID `gorm:"type:uuid"`
	VoidedAt       *time.Time
	VoidedBy       *uuid.UUID         `gorm:"type:uuid"`
	Lines          []JournalLineModel `gorm:"foreignKey:EntryID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalLineModel is the persistence model for journal entry lines
type JournalLineModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntryID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNumber     int             `gorm:"not null"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description    string          `gorm:"type:varchar(500)"`
	Debit          decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0"`
	Credit         decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3)"`
	OriginalAmount decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0"`
	FXRate         decimal.Decimal `gorm:"column:fx_rate;type:decimal(24,10);not null;default:0"`
	IsFXRounding   bool            `gorm:"column:is_fx_rounding;not null;default:false"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalEntry with lines
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	e := &ledger.JournalEntry{
		EntryNumber:    m.EntryNumber,
		EntryDate:      ledger.CivilDate(m.EntryDate),
		Description:    m.Description,
		Reference:      m.Reference,
		Status:         m.Status,
		SourceModule:   m.SourceModule,
		SourceID:       m.SourceID,
		Currency:       m.Currency,
		TotalDebit:     m.TotalDebit,
		TotalCredit:    m.TotalCredit,
		ReversalOfID:   m.ReversalOfID,
		ReversedByID:   m.ReversedByID,
		ReversalReason: m.ReversalReason,
		VoidReason:     m.VoidReason,
		SubmittedAt:    m.SubmittedAt,
		SubmittedBy:    m.SubmittedBy,
		ApprovedAt:     m.ApprovedAt,
		ApprovedBy:     m.ApprovedBy,
		PostedAt:       m.PostedAt,
		PostedBy:       m.PostedBy,
		ReversedAt:     m.ReversedAt,
		ReversedBy:     m.ReversedBy,
		VoidedAt:       m.VoidedAt,
		VoidedBy:       m.VoidedBy,
		Lines:          make([]ledger.JournalLine, len(m.Lines)),
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot)
	for i, l := range m.Lines {
		e.Lines[i] = ledger.JournalLine{
			ID:             l.ID,
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID,
			Description:    l.Description,
			Debit:          l.Debit,
			Credit:         l.Credit,
			Currency:       l.Currency,
			OriginalAmount: l.OriginalAmount,
			FXRate:         l.FXRate,
			IsFXRounding:   l.IsFXRounding,
		}
	}
	return e
}

// FromDomain populates the persistence model from a domain JournalEntry.
// Lines are mapped too; repositories omit them on header updates.
func (m *JournalEntryModel) FromDomain(e *ledger.JournalEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.EntryNumber = e.EntryNumber
	m.EntryDate = e.EntryDate
	m.Description = e.Description
	m.Reference = e.Reference
	m.Status = e.Status
	m.SourceModule = e.SourceModule
	m.SourceID = e.SourceID
	m.Currency = e.Currency
	m.TotalDebit = e.TotalDebit
	m.TotalCredit = e.TotalCredit
	m.ReversalOfID = e.ReversalOfID
	m.ReversedByID = e.ReversedByID
	m.ReversalReason = e.ReversalReason
	m.VoidReason = e.VoidReason
	m.SubmittedAt = e.SubmittedAt
	m.SubmittedBy = e.SubmittedBy
	m.ApprovedAt = e.ApprovedAt
	m.ApprovedBy = e.ApprovedBy
	m.PostedAt = e.PostedAt
	m.PostedBy = e.PostedBy
	m.ReversedAt = e.ReversedAt
	m.ReversedBy = e.ReversedBy
	m.VoidedAt = e.VoidedAt
	m.VoidedBy = e.VoidedBy
	m.Lines = make([]JournalLineModel, len(e.Lines))
	for i, l := range e.Lines {
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.Lines[i] = JournalLineModel{
			ID:             id,
			TenantID:       e.TenantID,
			EntryID:        e.ID,
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID,
			Description:    l.Description,
			Debit:          l.Debit,
			Credit:         l.Credit,
			Currency:       l.Currency,
			OriginalAmount: l.OriginalAmount,
			FXRate:         l.FXRate,
			IsFXRounding:   l.IsFXRounding,
		}
	}
}

// PostedLineRow is the scan target of the posted-lines join
type PostedLineRow struct {
	EntryID      uuid.UUID
	EntryNumber  string
	EntryDate    time.Time
	SourceModule ledger.SourceModule
	Description  string
	LineNumber   int
	AccountID    uuid.UUID
	LineMemo     string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// ToDomain converts the row to a ledger.PostedLine
func (r PostedLineRow) ToDomain() ledger.PostedLine {
	return ledger.PostedLine{
		EntryID:      r.EntryID,
		EntryNumber:  r.EntryNumber,
		EntryDate:    ledger.CivilDate(r.EntryDate),
		SourceModule: r.SourceModule,
		Description:  r.Description,
		LineNumber:   r.LineNumber,
		AccountID:    r.AccountID,
		LineMemo:     r.LineMemo,
		Debit:        r.Debit,
		Credit:       r.Credit,
	}
}

// AccountingPeriodModel is the persistence model for accounting periods
type AccountingPeriodModel struct {
	TenantAggregateModel
	Label          string              `gorm:"type:varchar(50);not null"`
	PeriodType     ledger.PeriodType   `gorm:"type:varchar(20);not null"`
	StartDate      time.Time           `gorm:"type:date;not null;index"`
	EndDate        time.Time           `gorm:"type:date;not null;index"`
	Status         ledger.PeriodStatus `gorm:"type:varchar(20);not null;index"`
	ClosedAt       *time.Time
	ClosedBy       *uuid.UUID `gorm:"type:uuid"`
	ClosingEntryID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AccountingPeriodModel) TableName() string {
	return "accounting_periods"
}

// ToDomain converts the persistence model to a domain AccountingPeriod
func (m *AccountingPeriodModel) ToDomain() *ledger.AccountingPeriod {
	p := &ledger.AccountingPeriod{
		Label:          m.Label,
		PeriodType:     m.PeriodType,
		StartDate:      ledger.CivilDate(m.StartDate),
		EndDate:        ledger.CivilDate(m.EndDate),
		Status:         m.Status,
		ClosedAt:       m.ClosedAt,
		ClosedBy:       m.ClosedBy,
		ClosingEntryID: m.ClosingEntryID,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain AccountingPeriod
func (m *AccountingPeriodModel) FromDomain(p *ledger.AccountingPeriod) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Label = p.Label
	m.PeriodType = p.PeriodType
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.Status = p.Status
	m.ClosedAt = p.ClosedAt
	m.ClosedBy = p.ClosedBy
	m.ClosingEntryID = p.ClosingEntryID
}

// CloseProcessModel is the persistence model for period close processes
type CloseProcessModel struct {
	TenantAggregateModel
	PeriodID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	Status         ledger.CloseStatus `gorm:"type:varchar(20);not null"`
	ClosingEntryID *uuid.UUID         `gorm:"type:uuid"`
	CompletedAt    *time.Time
	CompletedBy    *uuid.UUID       `gorm:"type:uuid"`
	Tasks          []CloseTaskModel `gorm:"foreignKey:ProcessID"`
}

// TableName returns the table name for GORM
func (CloseProcessModel) TableName() string {
	return "close_processes"
}

// CloseTaskModel is the persistence model for close checklist tasks
type CloseTaskModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ProcessID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Code        ledger.TaskCode   `gorm:"type:varchar(40);not null"`
	Name        string            `gorm:"type:varchar(100);not null"`
	Sequence    int               `gorm:"not null"`
	Automated   bool              `gorm:"not null"`
	Required    bool              `gorm:"not null"`
	Status      ledger.TaskStatus `gorm:"type:varchar(20);not null"`
	Result      string            `gorm:"type:text"`
	Error       string            `gorm:"type:text"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	CompletedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CloseTaskModel) TableName() string {
	return "close_tasks"
}

// ToDomain converts the persistence model to a domain CloseProcess
func (m *CloseProcessModel) ToDomain() *ledger.CloseProcess {
	cp := &ledger.CloseProcess{
		PeriodID:       m.PeriodID,
		Status:         m.Status,
		ClosingEntryID: m.ClosingEntryID,
		CompletedAt:    m.CompletedAt,
		CompletedBy:    m.CompletedBy,
		Tasks:          make([]ledger.CloseTask, len(m.Tasks)),
	}
	m.PopulateTenantAggregateRoot(&cp.TenantAggregateRoot)
	for i, t := range m.Tasks {
		cp.Tasks[i] = ledger.CloseTask{
			ID:          t.ID,
			ProcessID:   t.ProcessID,
			Code:        t.Code,
			Name:        t.Name,
			Sequence:    t.Sequence,
			Automated:   t.Automated,
			Required:    t.Required,
			Status:      t.Status,
			Result:      t.Result,
			Error:       t.Error,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
			CompletedBy: t.CompletedBy,
		}
	}
	return cp
}

// FromDomain populates the persistence model from a domain CloseProcess
func (m *CloseProcessModel) FromDomain(cp *ledger.CloseProcess) {
	m.FromDomainTenantAggregateRoot(cp.TenantAggregateRoot)
	m.PeriodID = cp.PeriodID
	m.Status = cp.Status
	m.ClosingEntryID = cp.ClosingEntryID
	m.CompletedAt = cp.CompletedAt
	m.CompletedBy = cp.CompletedBy
	m.Tasks = make([]CloseTaskModel, len(cp.Tasks))
	for i, t := range cp.Tasks {
		m.Tasks[i] = CloseTaskModel{
			ID:          t.ID,
			ProcessID:   cp.ID,
			Code:        t.Code,
			Name:        t.Name,
			Sequence:    t.Sequence,
			Automated:   t.Automated,
			Required:    t.Required,
			Status:      t.Status,
			Result:      t.Result,
			Error:       t.Error,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
			CompletedBy: t.CompletedBy,
		}
	}
}

// NumberSequenceModel holds the last issued number per tenant and prefix
type NumberSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix    string    `gorm:"type:varchar(10);primaryKey"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NumberSequenceModel) TableName() string {
	return "number_sequences"
}
