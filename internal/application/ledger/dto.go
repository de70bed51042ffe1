package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Account DTOs ====================

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	Code             string     `json:"code" binding:"required,acctcode"`
	Name             string     `json:"name" binding:"required,min=1,max=200"`
	Type             string     `json:"type" binding:"required"`
	SubType          string     `json:"sub_type"`
	ParentID         *uuid.UUID `json:"parent_id"`
	Currency         string     `json:"currency"`
	CashFlowCategory string     `json:"cash_flow_category"`
	IsSystem         bool       `json:"is_system"`
	Description      string     `json:"description"`
}

// UpdateAccountRequest represents a partial account update. Code and Type
// are refused once any journal line references the account.
type UpdateAccountRequest struct {
	Name             *string    `json:"name"`
	Code             *string    `json:"code"`
	Type             *string    `json:"type"`
	ParentID         *uuid.UUID `json:"parent_id"`
	ClearParent      bool       `json:"clear_parent"`
	IsActive         *bool      `json:"is_active"`
	CashFlowCategory *string    `json:"cash_flow_category"`
	Description      *string    `json:"description"`
}

// AccountListFilter narrows account listings
type AccountListFilter struct {
	Type       string     `form:"type"`
	ActiveOnly bool       `form:"active_only"`
	ParentID   *uuid.UUID `form:"parent_id"`
	Search     string     `form:"search"`
}

// AccountResponse is the read model of an account
type AccountResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	SubType          string          `json:"sub_type,omitempty"`
	ParentID         *uuid.UUID      `json:"parent_id,omitempty"`
	NormalBalance    string          `json:"normal_balance"`
	Currency         string          `json:"currency"`
	IsActive         bool            `json:"is_active"`
	IsSystem         bool            `json:"is_system"`
	CashFlowCategory string          `json:"cash_flow_category"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Description      string          `json:"description,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BalanceResponse is an account balance, cached or computed as of a date
type BalanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	AsOf      *time.Time      `json:"as_of,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Cached    bool            `json:"cached"`
}

// RebuildResponse reports the accounts whose cached balance was corrected
type RebuildResponse struct {
	Checked   int              `json:"checked"`
	Corrected []BalanceCorrect `json:"corrected"`
}

// BalanceCorrect is one corrected cached balance
type BalanceCorrect struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
}

// ToAccountResponse converts a domain account
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:               a.ID,
		Code:             a.Code,
		Name:             a.Name,
		Type:             string(a.Type),
		SubType:          a.SubType,
		ParentID:         a.ParentID,
		NormalBalance:    string(a.NormalBalance),
		Currency:         a.Currency,
		IsActive:         a.IsActive,
		IsSystem:         a.IsSystem,
		CashFlowCategory: string(a.CashFlowCategory),
		CurrentBalance:   a.CurrentBalance,
		Description:      a.Description,
		Version:          a.Version,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// ==================== Journal Entry DTOs ====================

// LineRequest is one line of a draft. Currency and FXRate are set when the
// amounts are in a currency other than the account's.
type LineRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Currency    string          `json:"currency,omitempty"`
	FXRate      decimal.Decimal `json:"fx_rate"`
}

// DraftEntryRequest represents a request to draft a journal entry
type DraftEntryRequest struct {
	EntryDate    time.Time     `json:"entry_date" binding:"required"`
	Description  string        `json:"description" binding:"max=500"`
	Reference    string        `json:"reference" binding:"max=100"`
	SourceModule string        `json:"source_module"`
	SourceID     *uuid.UUID    `json:"source_id"`
	Currency     string        `json:"currency"`
	Lines        []LineRequest `json:"lines" binding:"required,min=2,dive"`
}

// PostOptions tune an internal draft-and-post
type PostOptions struct {
	// Prefix overrides the numbering prefix derived from the source module
	Prefix string
	// CloseScope marks postings made by the close workflow, accepted while the period is closing
	CloseScope bool
}

// ReverseRequest represents a request to reverse a posted entry
type ReverseRequest struct {
	ReversalDate time.Time `json:"reversal_date" binding:"required"`
	Reason       string    `json:"reason" binding:"max=500"`
}

// VoidRequest represents a request to void an entry
type VoidRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// EntryListFilter narrows entry listings
type EntryListFilter struct {
	Status       string     `form:"status"`
	SourceModule string     `form:"source_module"`
	From         *time.Time `form:"from" time_format:"2006-01-02"`
	To           *time.Time `form:"to" time_format:"2006-01-02"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
}

// LineResponse is the read model of a journal line
type LineResponse struct {
	ID             uuid.UUID        `json:"id"`
	LineNumber     int              `json:"line_number"`
	AccountID      uuid.UUID        `json:"account_id"`
	Description    string           `json:"description,omitempty"`
	Debit          decimal.Decimal  `json:"debit"`
	Credit         decimal.Decimal  `json:"credit"`
	Currency       string           `json:"currency,omitempty"`
	OriginalAmount *decimal.Decimal `json:"original_amount,omitempty"`
	FXRate         *decimal.Decimal `json:"fx_rate,omitempty"`
	IsFXRounding   bool             `json:"is_fx_rounding,omitempty"`
}

// EntryResponse is the read model of a journal entry
type EntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	EntryNumber    string          `json:"entry_number"`
	EntryDate      time.Time       `json:"entry_date"`
	Description    string          `json:"description"`
	Reference      string          `json:"reference,omitempty"`
	Status         string          `json:"status"`
	SourceModule   string          `json:"source_module"`
	SourceID       *uuid.UUID      `json:"source_id,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Lines          []LineResponse  `json:"lines,omitempty"`
	ReversalOfID   *uuid.UUID      `json:"reversal_of_id,omitempty"`
	ReversedByID   *uuid.UUID      `json:"reversed_by_id,omitempty"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
	VoidReason     string          `json:"void_reason,omitempty"`
	CreatedBy      *uuid.UUID      `json:"created_by,omitempty"`
	ApprovedBy     *uuid.UUID      `json:"approved_by,omitempty"`
	PostedAt       *time.Time      `json:"posted_at,omitempty"`
	PostedBy       *uuid.UUID      `json:"posted_by,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ToEntryResponse converts a domain entry with its lines
func ToEntryResponse(e *ledger.JournalEntry) EntryResponse {
	resp := toEntryHeader(e)
	resp.Lines = make([]LineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lr := LineResponse{
			ID:           l.ID,
			LineNumber:   l.LineNumber,
			AccountID:    l.AccountID,
			Description:  l.Description,
			Debit:        l.Debit,
			Credit:       l.Credit,
			Currency:     l.Currency,
			IsFXRounding: l.IsFXRounding,
		}
		if l.Currency != "" {
			amount, rate := l.OriginalAmount, l.FXRate
			lr.OriginalAmount, lr.FXRate = &amount, &rate
		}
		resp.Lines[i] = lr
	}
	return resp
}

func toEntryHeader(e *ledger.JournalEntry) EntryResponse {
	resp := EntryResponse{
		ID:             e.ID,
		EntryNumber:    e.EntryNumber,
		EntryDate:      e.EntryDate,
		Description:    e.Description,
		Reference:      e.Reference,
		Status:         string(e.Status),
		SourceModule:   string(e.SourceModule),
		SourceID:       e.SourceID,
		Currency:       e.Currency,
		TotalDebit:     e.TotalDebit,
		TotalCredit:    e.TotalCredit,
		ReversalOfID:   e.ReversalOfID,
		ReversedByID:   e.ReversedByID,
		ReversalReason: e.ReversalReason,
		VoidReason:     e.VoidReason,
		ApprovedBy:     e.ApprovedBy,
		PostedAt:       e.PostedAt,
		PostedBy:       e.PostedBy,
		Version:        e.Version,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
	}
	return resp
}

// ==================== Period DTOs ====================

// CreatePeriodRequest represents a request to open an accounting period
type CreatePeriodRequest struct {
	Label      string    `json:"label" binding:"required,max=50"`
	PeriodType string    `json:"period_type" binding:"required"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
}

// PeriodResponse is the read model of a period
type PeriodResponse struct {
	ID             uuid.UUID  `json:"id"`
	Label          string     `json:"label"`
	PeriodType     string     `json:"period_type"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	Status         string     `json:"status"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosedBy       *uuid.UUID `json:"closed_by,omitempty"`
	ClosingEntryID *uuid.UUID `json:"closing_entry_id,omitempty"`
}

// ToPeriodResponse converts a domain period
func ToPeriodResponse(p *ledger.AccountingPeriod) PeriodResponse {
	return PeriodResponse{
		ID:             p.ID,
		Label:          p.Label,
		PeriodType:     string(p.PeriodType),
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Status:         string(p.Status),
		ClosedAt:       p.ClosedAt,
		ClosedBy:       p.ClosedBy,
		ClosingEntryID: p.ClosingEntryID,
	}
}

// CloseTaskResponse is the read model of a close task
type CloseTaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Sequence    int        `json:"sequence"`
	Automated   bool       `json:"automated"`
	Required    bool       `json:"required"`
	Status      string     `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *uuid.UUID `json:"completed_by,omitempty"`
}

// CloseProcessResponse is the read model of a close process
type CloseProcessResponse struct {
	ID             uuid.UUID           `json:"id"`
	PeriodID       uuid.UUID           `json:"period_id"`
	Status         string              `json:"status"`
	Tasks          []CloseTaskResponse `json:"tasks"`
	ClosingEntryID *uuid.UUID          `json:"closing_entry_id,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	CompletedBy    *uuid.UUID          `json:"completed_by,omitempty"`
}

// ToCloseProcessResponse converts a domain close process
func ToCloseProcessResponse(cp *ledger.CloseProcess) CloseProcessResponse {
	resp := CloseProcessResponse{
		ID:             cp.ID,
		PeriodID:       cp.PeriodID,
		Status:         string(cp.Status),
		Tasks:          make([]CloseTaskResponse, len(cp.Tasks)),
		ClosingEntryID: cp.ClosingEntryID,
		CompletedAt:    cp.CompletedAt,
		CompletedBy:    cp.CompletedBy,
	}
	for i, t := range cp.Tasks {
		resp.Tasks[i] = CloseTaskResponse{
			ID:          t.ID,
			Code:        string(t.Code),
			Name:        t.Name,
			Sequence:    t.Sequence,
			Automated:   t.Automated,
			Required:    t.Required,
			Status:      string(t.Status),
			Result:      t.Result,
			Error:       t.Error,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
			CompletedBy: t.CompletedBy,
		}
	}
	return resp
}

// CompleteCloseResponse reports the outcome of a completed close
type CompleteCloseResponse struct {
	Period       PeriodResponse  `json:"period"`
	ClosingEntry *EntryResponse  `json:"closing_entry,omitempty"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// ==================== Report DTOs ====================

// ReportQuery carries report date parameters
type ReportQuery struct {
	AsOf  *time.Time `form:"as_of" time_format:"2006-01-02"`
	Start time.Time  `form:"start" time_format:"2006-01-02"`
	End   time.Time  `form:"end" time_format:"2006-01-02"`
}

// GLDetailQuery narrows the GL detail listing
type GLDetailQuery struct {
	AccountIDs []uuid.UUID `form:"-"`
	From       *time.Time  `form:"from" time_format:"2006-01-02"`
	To         *time.Time  `form:"to" time_format:"2006-01-02"`
}
