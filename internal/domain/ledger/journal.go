package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a journal entry
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPending  EntryStatus = "PENDING"
	EntryStatusApproved EntryStatus = "APPROVED"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
	EntryStatusVoid     EntryStatus = "VOID"
)

var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryStatusDraft:    {EntryStatusPending, EntryStatusVoid},
	EntryStatusPending:  {EntryStatusApproved, EntryStatusVoid},
	EntryStatusApproved: {EntryStatusPosted},
	EntryStatusPosted:   {EntryStatusReversed},
}

// IsValid checks if the status is known
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPending, EntryStatusApproved,
		EntryStatusPosted, EntryStatusReversed, EntryStatusVoid:
		return true
	}
	return false
}

// IsTerminal returns true for reversed and void
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusReversed || s == EntryStatusVoid
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	for _, allowed := range entryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AffectsBalances reports whether lines of an entry in this status count as posted
func (s EntryStatus) AffectsBalances() bool {
	return s == EntryStatusPosted || s == EntryStatusReversed
}

// UnpostedStatuses are the non-terminal statuses that block a period close
var UnpostedStatuses = []EntryStatus{EntryStatusDraft, EntryStatusPending, EntryStatusApproved}

// CloseBlockingStatuses cannot be posted or voided once their period is closing
var CloseBlockingStatuses = []EntryStatus{EntryStatusApproved}

// SourceModule tags the subledger that produced an entry
type SourceModule string

const (
	SourceGL         SourceModule = "GL"
	SourceAP         SourceModule = "AP"
	SourceAR         SourceModule = "AR"
	SourceCash       SourceModule = "CASH"
	SourcePayroll    SourceModule = "PAYROLL"
	SourceAsset      SourceModule = "ASSET"
	SourceAllocation SourceModule = "ALLOCATION"
	SourceClose      SourceModule = "CLOSE"
)

// IsValid checks if the source module is known
func (m SourceModule) IsValid() bool {
	switch m {
	case SourceGL, SourceAP, SourceAR, SourceCash, SourcePayroll, SourceAsset, SourceAllocation, SourceClose:
		return true
	}
	return false
}

// Entry number prefixes. Each prefix has its own per-company counter.
const (
	PrefixJournal        = "JE"
	PrefixBill           = "BILL"
	PrefixInvoice        = "INV"
	PrefixPayment        = "PAY"
	PrefixPurchaseOrder  = "PO"
	PrefixAllocation     = "ALLOC"
	PrefixReconciliation = "RECON"
	PrefixClose          = "CLOSE"
)

// DefaultPrefix returns the numbering prefix used when the caller gives none
func (m SourceModule) DefaultPrefix() string {
	switch m {
	case SourceAP:
		return PrefixBill
	case SourceAR:
		return PrefixInvoice
	case SourceAllocation:
		return PrefixAllocation
	case SourceClose:
		return PrefixClose
	default:
		return PrefixJournal
	}
}

// FormatEntryNumber renders PREFIX-NNNNNN
func FormatEntryNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// JournalLine is one debit or credit of an entry
type JournalLine struct {
	ID          uuid.UUID
	LineNumber  int
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal

	// Currency and OriginalAmount record the foreign-currency amount when the
	// line was converted at FXRate into the account currency.
	Currency       string
	OriginalAmount decimal.Decimal
	FXRate         decimal.Decimal
	IsFXRounding   bool
}

// NewDebitLine builds a debit line
func NewDebitLine(accountID uuid.UUID, amount decimal.Decimal, description string) JournalLine {
	return JournalLine{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Description: description}
}

// NewCreditLine builds a credit line
func NewCreditLine(accountID uuid.UUID, amount decimal.Decimal, description string) JournalLine {
	return JournalLine{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Description: description}
}

// IsValid checks that exactly one side is strictly positive and neither is negative
func (l JournalLine) IsValid() bool {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return false
	}
	return l.Debit.IsPositive() != l.Credit.IsPositive()
}

// Net returns debit minus credit
func (l JournalLine) Net() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// Swapped returns the line with debit and credit exchanged
func (l JournalLine) Swapped() JournalLine {
	out := l
	out.ID = uuid.New()
	out.Debit, out.Credit = l.Credit, l.Debit
	return out
}

// ValidateLines checks line count, per-line XOR and exact balance
func ValidateLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	var bad []int
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for i, l := range lines {
		if !l.IsValid() {
			bad = append(bad, lineNumberOf(l, i))
			continue
		}
		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
	}
	if len(bad) > 0 {
		return ErrInvalidLine.WithLines(bad...)
	}
	if !totalDebit.Equal(totalCredit) {
		return ErrUnbalancedEntry.
			WithDetail("total_debit", totalDebit.String()).
			WithDetail("total_credit", totalCredit.String())
	}
	return nil
}

func lineNumberOf(l JournalLine, idx int) int {
	if l.LineNumber > 0 {
		return l.LineNumber
	}
	return idx + 1
}

// EntryHeader carries the header fields supplied when drafting
type EntryHeader struct {
	EntryDate    time.Time
	Description  string
	Reference    string
	SourceModule SourceModule
	SourceID     *uuid.UUID
	Currency     string
}

// JournalEntry is the aggregate whose lines move account balances once posted
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber    string
	EntryDate      time.Time
	Description    string
	Reference      string
	Status         EntryStatus
	SourceModule   SourceModule
	SourceID       *uuid.UUID
	Currency       string
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	Lines          []JournalLine
	ReversalOfID   *uuid.UUID
	ReversedByID   *uuid.UUID
	ReversalReason string
	VoidReason     string
	SubmittedAt    *time.Time
	SubmittedBy    *uuid.UUID
	ApprovedAt     *time.Time
	ApprovedBy     *uuid.UUID
	PostedAt       *time.Time
	PostedBy       *uuid.UUID
	ReversedAt     *time.Time
	ReversedBy     *uuid.UUID
	VoidedAt       *time.Time
	VoidedBy       *uuid.UUID
}

// NewJournalEntry validates lines and creates a draft entry
func NewJournalEntry(tenantID, createdBy uuid.UUID, header EntryHeader, lines []JournalLine) (*JournalEntry, error) {
	source := header.SourceModule
	if source == "" {
		source = SourceGL
	}
	if !source.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unknown source module %q", source)
	}
	if header.EntryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Entry date is required")
	}

	numbered := make([]JournalLine, len(lines))
	for i, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.LineNumber = i + 1
		numbered[i] = l
	}
	if err := ValidateLines(numbered); err != nil {
		return nil, err
	}

	e := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		EntryDate:           CivilDate(header.EntryDate),
		Description:         strings.TrimSpace(header.Description),
		Reference:           header.Reference,
		Status:              EntryStatusDraft,
		SourceModule:        source,
		SourceID:            header.SourceID,
		Currency:            strings.ToUpper(header.Currency),
		Lines:               numbered,
	}
	e.recomputeTotals()
	return e, nil
}

func (e *JournalEntry) recomputeTotals() {
	e.TotalDebit, e.TotalCredit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		e.TotalDebit = e.TotalDebit.Add(l.Debit)
		e.TotalCredit = e.TotalCredit.Add(l.Credit)
	}
}

// AssignNumber sets the entry number once
func (e *JournalEntry) AssignNumber(number string) error {
	if e.EntryNumber != "" {
		return shared.NewDomainError("INVALID_STATE", "Entry number already assigned")
	}
	e.EntryNumber = number
	return nil
}

// IsBalanced re-checks totals against the lines
func (e *JournalEntry) IsBalanced() bool {
	return ValidateLines(e.Lines) == nil
}

func (e *JournalEntry) transition(next EntryStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return ErrWrongStatus.
			WithDetail("entry_id", e.ID.String()).
			WithDetail("status", string(e.Status)).
			WithDetail("target", string(next))
	}
	e.Status = next
	e.Touch()
	return nil
}

// Submit moves a draft to pending. Returns false without error if already pending.
func (e *JournalEntry) Submit(actor uuid.UUID) (bool, error) {
	if e.Status == EntryStatusPending {
		return false, nil
	}
	if err := e.transition(EntryStatusPending); err != nil {
		return false, err
	}
	now := time.Now().UTC()
	e.SubmittedAt = &now
	e.SubmittedBy = actorPtr(actor)
	return true, nil
}

// Approve moves pending to approved
func (e *JournalEntry) Approve(actor uuid.UUID) error {
	if err := e.transition(EntryStatusApproved); err != nil {
		return err
	}
	now := time.Now().UTC()
	e.ApprovedAt = &now
	e.ApprovedBy = actorPtr(actor)
	return nil
}

// MarkPosted moves approved to posted and raises EntryPosted. Balance
// updates are applied by the caller inside the same transaction.
func (e *JournalEntry) MarkPosted(actor uuid.UUID) error {
	if !e.IsBalanced() {
		return ErrUnbalancedEntry.WithDetail("entry_id", e.ID.String())
	}
	if err := e.transition(EntryStatusPosted); err != nil {
		return err
	}
	now := time.Now().UTC()
	e.PostedAt = &now
	e.PostedBy = actorPtr(actor)
	e.AddDomainEvent(NewEntryPostedEvent(e))
	return nil
}

// MarkReversed moves posted to reversed and links the reversal entry
func (e *JournalEntry) MarkReversed(actor, reversalID uuid.UUID, reason string) error {
	if err := e.transition(EntryStatusReversed); err != nil {
		return err
	}
	now := time.Now().UTC()
	e.ReversedAt = &now
	e.ReversedBy = actorPtr(actor)
	e.ReversedByID = &reversalID
	e.ReversalReason = reason
	e.AddDomainEvent(NewEntryReversedEvent(e, reversalID))
	return nil
}

// Void cancels a draft or pending entry
func (e *JournalEntry) Void(actor uuid.UUID, reason string) error {
	if err := e.transition(EntryStatusVoid); err != nil {
		return err
	}
	now := time.Now().UTC()
	e.VoidedAt = &now
	e.VoidedBy = actorPtr(actor)
	e.VoidReason = reason
	return nil
}

// NewReversal builds the opposite draft of a posted entry dated reversalDate
func NewReversal(original *JournalEntry, actor uuid.UUID, reversalDate time.Time, reason string) (*JournalEntry, error) {
	if original.Status != EntryStatusPosted {
		return nil, ErrWrongStatus.
			WithDetail("entry_id", original.ID.String()).
			WithDetail("status", string(original.Status))
	}
	lines := make([]JournalLine, len(original.Lines))
	for i, l := range original.Lines {
		lines[i] = l.Swapped()
	}
	desc := fmt.Sprintf("Reversal of %s", original.EntryNumber)
	if reason != "" {
		desc = fmt.Sprintf("%s: %s", desc, reason)
	}
	rev, err := NewJournalEntry(original.TenantID, actor, EntryHeader{
		EntryDate:    reversalDate,
		Description:  desc,
		Reference:    original.EntryNumber,
		SourceModule: original.SourceModule,
		SourceID:     original.SourceID,
		Currency:     original.Currency,
	}, lines)
	if err != nil {
		return nil, err
	}
	rev.ReversalOfID = &original.ID
	return rev, nil
}

// AccountIDs returns the distinct accounts referenced, in ascending id order.
// This is the lock acquisition order during posting.
func (e *JournalEntry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(e.Lines))
	ids := make([]uuid.UUID, 0, len(e.Lines))
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	SortIDs(ids)
	return ids
}

// DebitsByAccount sums debit amounts per account
func (e *JournalEntry) DebitsByAccount() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal)
	for _, l := range e.Lines {
		if l.Debit.IsPositive() {
			out[l.AccountID] = out[l.AccountID].Add(l.Debit)
		}
	}
	return out
}

// DebitAccountIDs returns debit-side accounts in line order
func (e *JournalEntry) DebitAccountIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, l := range e.Lines {
		if l.Debit.IsPositive() {
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}

// SortIDs orders ids ascending by their byte representation, which matches
// uuid ordering in Postgres.
func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

func actorPtr(actor uuid.UUID) *uuid.UUID {
	if actor == uuid.Nil {
		return nil
	}
	return &actor
}
