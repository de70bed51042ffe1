package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const entryResource = "journal_entry"

// JournalService drafts, approves, posts, reverses and voids journal
// entries. It is the only writer of account balances.
type JournalService struct {
	uow      unitofwork.UnitOfWork
	audit    *auditapp.Recorder
	settings Settings
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(uow unitofwork.UnitOfWork, recorder *auditapp.Recorder, settings Settings, logger *zap.Logger) *JournalService {
	return &JournalService{
		uow:      uow,
		audit:    recorder,
		settings: settings,
		logger:   logger,
	}
}

// SetMetrics attaches ledger metrics
func (s *JournalService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// Draft validates and persists a new draft entry with its number assigned
func (s *JournalService) Draft(ctx context.Context, tenantID, actorID uuid.UUID, req DraftEntryRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "journal", "draft")
	var entry *ledger.JournalEntry
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		entry, err = s.draftIn(ctx, repos, tenantID, actorID, req, PostOptions{})
		return err
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logRejected("draft rejected", tenantID, uuid.Nil, err)
		return nil, err
	}
	resp := ToEntryResponse(entry)
	return &resp, nil
}

// Submit moves a draft to pending. Submitting a pending entry is a no-op.
func (s *JournalService) Submit(ctx context.Context, tenantID, actorID, entryID uuid.UUID) (*EntryResponse, error) {
	return s.transition(ctx, tenantID, actorID, entryID, audit.ActionSubmit, func(ctx context.Context, repos unitofwork.Repositories, e *ledger.JournalEntry) (bool, error) {
		return e.Submit(actorID)
	})
}

// Approve moves a pending entry to approved after re-checking that its
// accounts are still active and its date still falls in an open period.
func (s *JournalService) Approve(ctx context.Context, tenantID, actorID, entryID uuid.UUID) (*EntryResponse, error) {
	return s.transition(ctx, tenantID, actorID, entryID, audit.ActionApprove, func(ctx context.Context, repos unitofwork.Repositories, e *ledger.JournalEntry) (bool, error) {
		if e.Status != ledger.EntryStatusPending {
			return false, ledger.ErrWrongStatus.
				WithDetail("entry_id", e.ID.String()).
				WithDetail("status", string(e.Status))
		}
		if err := s.checkPeriod(ctx, repos, e.TenantID, e.EntryDate, false); err != nil {
			return false, err
		}
		accounts, err := repos.Accounts().FindByIDs(ctx, e.TenantID, e.AccountIDs())
		if err != nil {
			return false, err
		}
		if err := checkLineAccounts(e.Lines, accounts, false); err != nil {
			return false, err
		}
		return true, e.Approve(actorID)
	})
}

// Void cancels a draft or pending entry
func (s *JournalService) Void(ctx context.Context, tenantID, actorID, entryID uuid.UUID, req VoidRequest) (*EntryResponse, error) {
	return s.transition(ctx, tenantID, actorID, entryID, audit.ActionVoid, func(_ context.Context, _ unitofwork.Repositories, e *ledger.JournalEntry) (bool, error) {
		return true, e.Void(actorID, req.Reason)
	})
}

// Post moves an approved entry to posted and applies its balance deltas
func (s *JournalService) Post(ctx context.Context, tenantID, actorID, entryID uuid.UUID) (*EntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "journal", "post", attribute.String("entry_id", entryID.String()))
	var entry *ledger.JournalEntry
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		entry, err = repos.Entries().LockByID(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		return s.post(ctx, repos, entry, actorID, false)
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		source := ""
		if entry != nil {
			source = string(entry.SourceModule)
		}
		s.metrics.PostingFailed(ctx, source, errorCode(err))
		s.logRejected("post rejected", tenantID, entryID, err)
		return nil, err
	}
	resp := ToEntryResponse(entry)
	return &resp, nil
}

// Reverse posts an opposite entry dated req.ReversalDate and marks the
// original reversed, in one transaction. The reversal date must fall in an
// open period even when the original's period is closed.
func (s *JournalService) Reverse(ctx context.Context, tenantID, actorID, entryID uuid.UUID, req ReverseRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "journal", "reverse", attribute.String("entry_id", entryID.String()))
	var reversal *ledger.JournalEntry
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		reversal, err = s.ReverseIn(ctx, repos, tenantID, actorID, entryID, req)
		return err
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logRejected("reversal rejected", tenantID, entryID, err)
		return nil, err
	}
	resp := ToEntryResponse(reversal)
	return &resp, nil
}

// ReverseIn reverses a posted entry inside the caller's transaction and
// returns the posted reversal
func (s *JournalService) ReverseIn(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID, entryID uuid.UUID, req ReverseRequest) (*ledger.JournalEntry, error) {
	original, err := repos.Entries().LockByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	before := summarize(original)

	reversal, err := ledger.NewReversal(original, actorID, req.ReversalDate, req.Reason)
	if err != nil {
		return nil, err
	}
	if err := s.checkPeriod(ctx, repos, tenantID, reversal.EntryDate, false); err != nil {
		return nil, err
	}
	if err := s.assignNumber(ctx, repos, reversal, prefixOf(original.EntryNumber, original.SourceModule)); err != nil {
		return nil, err
	}
	if err := repos.Entries().Create(ctx, reversal); err != nil {
		return nil, err
	}
	if err := s.record(ctx, repos, actorID, reversal, audit.ActionCreate, nil, summarize(reversal)); err != nil {
		return nil, err
	}
	if _, err := reversal.Submit(actorID); err != nil {
		return nil, err
	}
	if err := reversal.Approve(actorID); err != nil {
		return nil, err
	}
	if err := s.post(ctx, repos, reversal, actorID, false); err != nil {
		return nil, err
	}

	if err := original.MarkReversed(actorID, reversal.ID, req.Reason); err != nil {
		return nil, err
	}
	if err := repos.Entries().Save(ctx, original); err != nil {
		return nil, err
	}
	if err := repos.Events().Record(ctx, original.GetDomainEvents()...); err != nil {
		return nil, err
	}
	original.ClearDomainEvents()
	if err := s.record(ctx, repos, actorID, original, audit.ActionReverse, before, summarize(original)); err != nil {
		return nil, err
	}

	s.logger.Info("journal entry reversed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entry_number", original.EntryNumber),
		zap.String("reversal_number", reversal.EntryNumber),
	)
	return reversal, nil
}

// Get returns an entry with its lines
func (s *JournalService) Get(ctx context.Context, tenantID, entryID uuid.UUID) (*EntryResponse, error) {
	entry, err := s.uow.Repos().Entries().FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	resp := ToEntryResponse(entry)
	return &resp, nil
}

// List returns a page of entry headers, newest first
func (s *JournalService) List(ctx context.Context, tenantID uuid.UUID, filter EntryListFilter) (shared.Paginated[EntryResponse], error) {
	page := shared.Page{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	entries, total, err := s.uow.Repos().Entries().List(ctx, tenantID, ledger.EntryFilter{
		Status:       ledger.EntryStatus(strings.ToUpper(filter.Status)),
		SourceModule: ledger.SourceModule(strings.ToUpper(filter.SourceModule)),
		From:         filter.From,
		To:           filter.To,
		OrderBy:      filter.OrderBy,
		OrderDir:     filter.OrderDir,
		Page:         page,
	})
	if err != nil {
		return shared.Paginated[EntryResponse]{}, err
	}
	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = toEntryHeader(e)
	}
	return shared.NewPaginated(items, total, page), nil
}

// PostDraft drafts, approves and posts an entry inside the caller's
// transaction. Subledger adapters, the allocation engine and the close
// workflow post through here.
func (s *JournalService) PostDraft(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID uuid.UUID, req DraftEntryRequest, opts PostOptions) (*ledger.JournalEntry, error) {
	entry, err := s.draftIn(ctx, repos, tenantID, actorID, req, opts)
	if err != nil {
		return nil, err
	}
	if _, err := entry.Submit(actorID); err != nil {
		return nil, err
	}
	if err := entry.Approve(actorID); err != nil {
		return nil, err
	}
	if err := s.post(ctx, repos, entry, actorID, opts.CloseScope); err != nil {
		s.metrics.PostingFailed(ctx, string(entry.SourceModule), errorCode(err))
		return nil, err
	}
	return entry, nil
}

// transition runs a header-only status change under the entry's row lock.
// apply returns false when nothing changed, in which case no write happens.
func (s *JournalService) transition(
	ctx context.Context,
	tenantID, actorID, entryID uuid.UUID,
	action string,
	apply func(ctx context.Context, repos unitofwork.Repositories, e *ledger.JournalEntry) (bool, error),
) (*EntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "journal", strings.ToLower(action), attribute.String("entry_id", entryID.String()))
	var entry *ledger.JournalEntry
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		entry, err = repos.Entries().LockByID(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		before := summarize(entry)
		changed, err := apply(ctx, repos, entry)
		if err != nil || !changed {
			return err
		}
		if err := repos.Entries().Save(ctx, entry); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, entry, action, before, summarize(entry))
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logRejected(strings.ToLower(action)+" rejected", tenantID, entryID, err)
		return nil, err
	}
	resp := ToEntryResponse(entry)
	return &resp, nil
}

// draftIn validates lines against the chart, converts foreign amounts,
// checks the period, assigns the number and persists the draft.
func (s *JournalService) draftIn(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID uuid.UUID, req DraftEntryRequest, opts PostOptions) (*ledger.JournalEntry, error) {
	source := ledger.SourceModule(strings.ToUpper(req.SourceModule))
	if source == "" {
		source = ledger.SourceGL
	}

	ids := make([]uuid.UUID, 0, len(req.Lines))
	for _, l := range req.Lines {
		ids = append(ids, l.AccountID)
	}
	accounts, err := repos.Accounts().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]ledger.JournalLine, len(req.Lines))
	currencies := make(map[uuid.UUID]string, len(accounts))
	foreign := false
	for i, l := range req.Lines {
		lines[i] = ledger.JournalLine{
			LineNumber:  i + 1,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Currency:    strings.ToUpper(l.Currency),
			FXRate:      l.FXRate,
		}
		if acct, ok := accounts[l.AccountID]; ok {
			currencies[acct.ID] = acct.Currency
			if l.Currency != "" && !strings.EqualFold(l.Currency, acct.Currency) {
				foreign = true
			}
		}
	}
	if err := checkLineAccounts(lines, accounts, source == ledger.SourceClose); err != nil {
		return nil, err
	}

	policy := ledger.FXPolicy{Precision: s.settings.Precision}
	if foreign {
		rounding, err := repos.Accounts().FindByCode(ctx, tenantID, s.settings.Controls.FXRounding)
		switch {
		case err == nil && rounding.IsActive:
			policy.RoundingAccountID = rounding.ID
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}
	lines, err = policy.Convert(lines, currencies)
	if err != nil {
		return nil, err
	}

	entry, err := ledger.NewJournalEntry(tenantID, actorID, ledger.EntryHeader{
		EntryDate:    req.EntryDate,
		Description:  req.Description,
		Reference:    req.Reference,
		SourceModule: source,
		SourceID:     req.SourceID,
		Currency:     req.Currency,
	}, lines)
	if err != nil {
		return nil, err
	}
	if err := s.checkPeriod(ctx, repos, tenantID, entry.EntryDate, opts.CloseScope); err != nil {
		return nil, err
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = entry.SourceModule.DefaultPrefix()
	}
	if err := s.assignNumber(ctx, repos, entry, prefix); err != nil {
		return nil, err
	}
	if err := repos.Entries().Create(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.record(ctx, repos, actorID, entry, audit.ActionCreate, nil, summarize(entry)); err != nil {
		return nil, err
	}
	return entry, nil
}

// post applies an approved entry. Affected accounts are locked in ascending
// id order, each receives one summed delta, and the header, outbox events
// and audit record are written in the same transaction.
func (s *JournalService) post(ctx context.Context, repos unitofwork.Repositories, entry *ledger.JournalEntry, actorID uuid.UUID, closeScope bool) error {
	start := time.Now()
	before := summarize(entry)

	if err := s.checkPeriod(ctx, repos, entry.TenantID, entry.EntryDate, closeScope); err != nil {
		return err
	}
	locked, err := repos.Accounts().LockForUpdate(ctx, entry.TenantID, entry.AccountIDs())
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(locked))
	for _, a := range locked {
		byID[a.ID] = a
	}
	allowInactive := entry.SourceModule == ledger.SourceClose || entry.ReversalOfID != nil
	if err := checkLineAccounts(entry.Lines, byID, allowInactive); err != nil {
		return err
	}

	if err := entry.MarkPosted(actorID); err != nil {
		return err
	}

	deltas := make(map[uuid.UUID]decimal.Decimal, len(locked))
	for _, l := range entry.Lines {
		deltas[l.AccountID] = deltas[l.AccountID].Add(byID[l.AccountID].Delta(l.Debit, l.Credit))
	}
	for _, acct := range locked {
		delta := deltas[acct.ID]
		if delta.IsZero() {
			continue
		}
		acct.ApplyDelta(delta)
		if err := repos.Accounts().UpdateBalance(ctx, entry.TenantID, acct.ID, acct.CurrentBalance); err != nil {
			return err
		}
	}

	if err := repos.Entries().Save(ctx, entry); err != nil {
		return err
	}
	if err := repos.Events().Record(ctx, entry.GetDomainEvents()...); err != nil {
		return err
	}
	entry.ClearDomainEvents()
	if err := s.record(ctx, repos, actorID, entry, audit.ActionPost, before, summarize(entry)); err != nil {
		return err
	}

	s.metrics.EntryPosted(ctx, string(entry.SourceModule), time.Since(start))
	s.logger.Debug("journal entry posted",
		zap.String("tenant_id", entry.TenantID.String()),
		zap.String("entry_number", entry.EntryNumber),
		zap.String("source_module", string(entry.SourceModule)),
		zap.String("total", entry.TotalDebit.String()),
	)
	return nil
}

// checkPeriod rejects dates outside any period or in a period that does not accept postings
func (s *JournalService) checkPeriod(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, date time.Time, closeScope bool) error {
	period, err := repos.Periods().LockByDate(ctx, tenantID, date)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ledger.ErrClosedPeriod.WithDetail("entry_date", date.Format(time.DateOnly))
		}
		return err
	}
	return period.CheckPostable(closeScope)
}

func (s *JournalService) assignNumber(ctx context.Context, repos unitofwork.Repositories, entry *ledger.JournalEntry, prefix string) error {
	n, err := repos.Sequences().Next(ctx, entry.TenantID, prefix)
	if err != nil {
		return err
	}
	return entry.AssignNumber(ledger.FormatEntryNumber(prefix, n))
}

func (s *JournalService) record(ctx context.Context, repos unitofwork.Repositories, actorID uuid.UUID, e *ledger.JournalEntry, action string, before, after any) error {
	return s.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     e.TenantID,
		ActorID:      actorID,
		Module:       string(e.SourceModule),
		Action:       action,
		ResourceType: entryResource,
		ResourceID:   e.ID,
		Before:       before,
		After:        after,
	})
}

func (s *JournalService) logRejected(msg string, tenantID, entryID uuid.UUID, err error) {
	fields := []zap.Field{
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", errorCode(err)),
		zap.Error(err),
	}
	if entryID != uuid.Nil {
		fields = append(fields, zap.String("entry_id", entryID.String()))
	}
	if ledger.KindOfError(err) == ledger.KindInfrastructure || ledger.KindOfError(err) == ledger.KindUnknown {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}

// checkLineAccounts reports every line whose account is missing or inactive
func checkLineAccounts(lines []ledger.JournalLine, accounts map[uuid.UUID]*ledger.Account, allowInactive bool) error {
	var unknown, inactive []int
	for i, l := range lines {
		num := l.LineNumber
		if num == 0 {
			num = i + 1
		}
		acct, ok := accounts[l.AccountID]
		switch {
		case !ok:
			unknown = append(unknown, num)
		case !acct.IsActive && !allowInactive:
			inactive = append(inactive, num)
		}
	}
	if len(unknown) > 0 {
		return ledger.ErrUnknownAccount.WithLines(unknown...)
	}
	if len(inactive) > 0 {
		return ledger.ErrInactiveAccount.WithLines(inactive...)
	}
	return nil
}

// entrySummary is the audit snapshot of an entry header
type entrySummary struct {
	EntryNumber string          `json:"entry_number"`
	Status      string          `json:"status"`
	EntryDate   string          `json:"entry_date"`
	Total       decimal.Decimal `json:"total"`
	Version     int             `json:"version"`
}

func summarize(e *ledger.JournalEntry) entrySummary {
	return entrySummary{
		EntryNumber: e.EntryNumber,
		Status:      string(e.Status),
		EntryDate:   e.EntryDate.Format(time.DateOnly),
		Total:       e.TotalDebit,
		Version:     e.Version,
	}
}

// prefixOf returns the numbering prefix of an entry number
func prefixOf(number string, source ledger.SourceModule) string {
	if prefix, _, ok := strings.Cut(number, "-"); ok && prefix != "" {
		return prefix
	}
	return source.DefaultPrefix()
}

// errorCode extracts the domain error code, or UNKNOWN
func errorCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN"
}
