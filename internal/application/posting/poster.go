package posting

import (
	"context"
	"errors"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// poster carries what every subledger service needs to post
type poster struct {
	uow      unitofwork.UnitOfWork
	journal  *ledgerapp.JournalService
	audit    *auditapp.Recorder
	settings ledgerapp.Settings
	logger   *zap.Logger
	now      func() time.Time
}

func newPoster(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) poster {
	return poster{
		uow:      uow,
		journal:  journal,
		audit:    recorder,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *poster) scale() int32 {
	return p.settings.Precision.Scale(p.settings.BaseCurrency)
}

func (p *poster) today() time.Time {
	return ledger.CivilDate(p.now())
}

// orToday defaults a missing date to today
func (p *poster) orToday(t time.Time) time.Time {
	if t.IsZero() {
		return p.today()
	}
	return t
}

// control resolves a configured control account to its id
func (p *poster) control(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, role, code string) (uuid.UUID, error) {
	acct, err := ledgerapp.ResolveControlAccount(ctx, repos.Accounts(), tenantID, role, code)
	if err != nil {
		return uuid.Nil, err
	}
	return acct.ID, nil
}

// orControl returns *id when given, the control account otherwise
func (p *poster) orControl(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, id *uuid.UUID, role, code string) (uuid.UUID, error) {
	if id != nil && *id != uuid.Nil {
		return *id, nil
	}
	return p.control(ctx, repos, tenantID, role, code)
}

// activeAccount checks that id names an active account of the tenant
func (p *poster) activeAccount(ctx context.Context, repos unitofwork.Repositories, tenantID, id uuid.UUID) (*ledger.Account, error) {
	acct, err := repos.Accounts().FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.ErrUnknownAccount.WithDetail("account_id", id.String())
		}
		return nil, err
	}
	if !acct.IsActive {
		return nil, ledger.ErrInactiveAccount.WithDetail("account_id", id.String())
	}
	return acct, nil
}

// bank loads an active bank account
func (p *poster) bank(ctx context.Context, repos unitofwork.Repositories, tenantID, id uuid.UUID) (*finance.BankAccount, error) {
	b, err := repos.BankAccounts().FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, shared.NewDomainError("INVALID_STATE", "Bank account is inactive")
	}
	return b, nil
}

func (p *poster) post(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID uuid.UUID, req ledgerapp.DraftEntryRequest, prefix string) (*ledger.JournalEntry, error) {
	return p.journal.PostDraft(ctx, repos, tenantID, actorID, req, ledgerapp.PostOptions{Prefix: prefix})
}

func (p *poster) record(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID uuid.UUID, module ledger.SourceModule, action, resource string, id uuid.UUID, before, after any) error {
	return p.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     tenantID,
		ActorID:      actorID,
		Module:       string(module),
		Action:       action,
		ResourceType: resource,
		ResourceID:   id,
		Before:       before,
		After:        after,
	})
}
