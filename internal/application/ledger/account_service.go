package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/reporting"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	accountResource = "account"
	ledgerResource  = "ledger"
	registryModule  = "GL"
)

// AccountService manages the chart of accounts
type AccountService struct {
	uow      unitofwork.UnitOfWork
	audit    *auditapp.Recorder
	settings Settings
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(uow unitofwork.UnitOfWork, recorder *auditapp.Recorder, settings Settings, logger *zap.Logger) *AccountService {
	return &AccountService{
		uow:      uow,
		audit:    recorder,
		settings: settings,
		logger:   logger,
	}
}

// Create adds an account to the chart. The normal balance is derived from the type.
func (s *AccountService) Create(ctx context.Context, tenantID, actorID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.settings.BaseCurrency
	}
	account, err := ledger.NewAccount(tenantID, req.Code, req.Name, ledger.AccountType(strings.ToUpper(req.Type)), currency)
	if err != nil {
		return nil, err
	}
	account.SubType = req.SubType
	account.IsSystem = req.IsSystem
	account.Description = req.Description
	if req.CashFlowCategory != "" {
		if err := account.SetCashFlowCategory(ledger.CashFlowCategory(strings.ToUpper(req.CashFlowCategory))); err != nil {
			return nil, err
		}
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		if req.ParentID != nil {
			if err := s.checkParent(ctx, repos, account, *req.ParentID); err != nil {
				return err
			}
			if err := account.SetParent(req.ParentID); err != nil {
				return err
			}
		}
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, account, audit.ActionCreate, nil, ToAccountResponse(account))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", account.Code),
		zap.String("type", string(account.Type)),
	)
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Update changes name, parent, activity, cash-flow category or description.
// Code and type may change only while no journal line references the account.
func (s *AccountService) Update(ctx context.Context, tenantID, actorID, accountID uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	var account *ledger.Account
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		account, err = s.lockAccount(ctx, repos, tenantID, accountID)
		if err != nil {
			return err
		}
		before := ToAccountResponse(account)

		codeChange := req.Code != nil && *req.Code != account.Code
		typeChange := req.Type != nil && !strings.EqualFold(*req.Type, string(account.Type))
		if codeChange || typeChange {
			used, err := repos.Accounts().HasLines(ctx, tenantID, accountID)
			if err != nil {
				return err
			}
			if used {
				return ledger.ErrWrongStatus.
					WithDetail("account_id", accountID.String()).
					WithDetail("reason", "code and type are immutable once journal lines reference the account")
			}
			if codeChange {
				if err := account.ChangeCode(*req.Code); err != nil {
					return err
				}
			}
			if typeChange {
				if err := account.ChangeType(ledger.AccountType(strings.ToUpper(*req.Type))); err != nil {
					return err
				}
			}
		}
		if req.Name != nil {
			if err := account.Rename(*req.Name); err != nil {
				return err
			}
		}
		switch {
		case req.ClearParent:
			if err := account.SetParent(nil); err != nil {
				return err
			}
		case req.ParentID != nil:
			if err := s.checkParent(ctx, repos, account, *req.ParentID); err != nil {
				return err
			}
			if err := account.SetParent(req.ParentID); err != nil {
				return err
			}
		}
		if req.CashFlowCategory != nil {
			if err := account.SetCashFlowCategory(ledger.CashFlowCategory(strings.ToUpper(*req.CashFlowCategory))); err != nil {
				return err
			}
		}
		if req.Description != nil {
			account.Description = *req.Description
		}
		if req.IsActive != nil {
			if *req.IsActive {
				account.Activate()
			} else if err := account.Deactivate(s.settings.ClosingCurrency); err != nil {
				return err
			}
		}

		if err := repos.Accounts().Save(ctx, account); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, account, audit.ActionUpdate, before, ToAccountResponse(account))
	})
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Deactivate marks an account inactive. The account row is locked so that
// no posting can change its balance between the check and the write.
func (s *AccountService) Deactivate(ctx context.Context, tenantID, actorID, accountID uuid.UUID) (*AccountResponse, error) {
	var account *ledger.Account
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		account, err = s.lockAccount(ctx, repos, tenantID, accountID)
		if err != nil {
			return err
		}
		before := ToAccountResponse(account)
		if err := account.Deactivate(s.settings.ClosingCurrency); err != nil {
			return err
		}
		if err := repos.Accounts().Save(ctx, account); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, account, audit.ActionDeactivate, before, ToAccountResponse(account))
	})
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Delete removes a non-system account that no journal line references
func (s *AccountService) Delete(ctx context.Context, tenantID, actorID, accountID uuid.UUID) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		account, err := repos.Accounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if account.IsSystem {
			return ledger.ErrWrongStatus.
				WithDetail("account_id", accountID.String()).
				WithDetail("reason", "system accounts cannot be deleted")
		}
		used, err := repos.Accounts().HasLines(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if used {
			return ledger.ErrWrongStatus.
				WithDetail("account_id", accountID.String()).
				WithDetail("reason", "account has journal lines; deactivate it instead")
		}
		children, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{ParentID: &accountID})
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return ledger.ErrWrongStatus.
				WithDetail("account_id", accountID.String()).
				WithDetail("reason", "account has child accounts")
		}
		if err := repos.Accounts().Delete(ctx, tenantID, accountID); err != nil {
			return err
		}
		return s.record(ctx, repos, actorID, account, audit.ActionDelete, ToAccountResponse(account), nil)
	})
}

// Get returns an account by id
func (s *AccountService) Get(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.uow.Repos().Accounts().FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// GetByCode returns an account by its code
func (s *AccountService) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*AccountResponse, error) {
	account, err := s.uow.Repos().Accounts().FindByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// List returns accounts ordered by code
func (s *AccountService) List(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) ([]AccountResponse, error) {
	accounts, err := s.uow.Repos().Accounts().List(ctx, tenantID, ledger.AccountFilter{
		Type:       ledger.AccountType(strings.ToUpper(filter.Type)),
		ActiveOnly: filter.ActiveOnly,
		ParentID:   filter.ParentID,
		Search:     filter.Search,
	})
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToAccountResponse(a)
	}
	return out, nil
}

// GetBalance returns the cached balance, or when asOf is set, the balance
// summed from posted lines dated on or before asOf.
func (s *AccountService) GetBalance(ctx context.Context, tenantID, accountID uuid.UUID, asOf *time.Time) (*BalanceResponse, error) {
	repos := s.uow.Repos()
	account, err := repos.Accounts().FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if asOf == nil {
		return &BalanceResponse{AccountID: account.ID, Code: account.Code, Balance: account.CurrentBalance, Cached: true}, nil
	}

	day := ledger.CivilDate(*asOf)
	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{
		AccountIDs: []uuid.UUID{accountID},
		To:         &day,
	})
	if err != nil {
		return nil, err
	}
	totals := reporting.SumByAccount(lines)
	return &BalanceResponse{
		AccountID: account.ID,
		Code:      account.Code,
		AsOf:      &day,
		Balance:   reporting.NetBalance(account, totals[account.ID]),
	}, nil
}

// RebuildBalances recomputes every cached balance from posted lines
func (s *AccountService) RebuildBalances(ctx context.Context, tenantID, actorID uuid.UUID) (*RebuildResponse, error) {
	var resp *RebuildResponse
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		resp, err = s.RebuildIn(ctx, repos, tenantID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RebuildIn recomputes cached balances inside the caller's transaction. All
// accounts are locked in ascending id order before lines are read.
func (s *AccountService) RebuildIn(ctx context.Context, repos unitofwork.Repositories, tenantID, actorID uuid.UUID) (*RebuildResponse, error) {
	all, err := repos.Accounts().List(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(all))
	for i, a := range all {
		ids[i] = a.ID
	}
	locked, err := repos.Accounts().LockForUpdate(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	lines, err := repos.Entries().PostedLines(ctx, tenantID, ledger.LineFilter{})
	if err != nil {
		return nil, err
	}
	totals := reporting.SumByAccount(lines)

	resp := &RebuildResponse{Checked: len(locked), Corrected: []BalanceCorrect{}}
	for _, acct := range locked {
		computed := reporting.NetBalance(acct, totals[acct.ID])
		if computed.Equal(acct.CurrentBalance) {
			continue
		}
		if err := repos.Accounts().UpdateBalance(ctx, tenantID, acct.ID, computed); err != nil {
			return nil, err
		}
		resp.Corrected = append(resp.Corrected, BalanceCorrect{
			AccountID: acct.ID,
			Code:      acct.Code,
			Before:    acct.CurrentBalance,
			After:     computed,
		})
	}
	if len(resp.Corrected) == 0 {
		return resp, nil
	}

	if err := s.audit.Record(ctx, repos.Audit(), auditapp.Entry{
		TenantID:     tenantID,
		ActorID:      actorID,
		Module:       registryModule,
		Action:       audit.ActionRebuild,
		ResourceType: ledgerResource,
		ResourceID:   tenantID,
		After:        resp,
	}); err != nil {
		return nil, err
	}
	s.logger.Warn("cached balances rebuilt",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("corrected", len(resp.Corrected)),
	)
	return resp, nil
}

// lockAccount loads one account under the same row lock postings take
func (s *AccountService) lockAccount(ctx context.Context, repos unitofwork.Repositories, tenantID, accountID uuid.UUID) (*ledger.Account, error) {
	locked, err := repos.Accounts().LockForUpdate(ctx, tenantID, []uuid.UUID{accountID})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, shared.ErrNotFound.WithDetail("account_id", accountID.String())
	}
	return locked[0], nil
}

// checkParent verifies the parent exists and is not a descendant of account
func (s *AccountService) checkParent(ctx context.Context, repos unitofwork.Repositories, account *ledger.Account, parentID uuid.UUID) error {
	if _, err := repos.Accounts().FindByID(ctx, account.TenantID, parentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ledger.ErrUnknownAccount.WithDetail("parent_id", parentID.String())
		}
		return err
	}
	return ledger.CheckHierarchy(account.ID, parentID, func(id uuid.UUID) (*uuid.UUID, error) {
		a, err := repos.Accounts().FindByID(ctx, account.TenantID, id)
		if err != nil {
			return nil, err
		}
		return a.ParentID, nil
	})
}

func (s *AccountService) record(ctx context.Context, repos unitofwork.Repositories, actorID uuid.UUID, a *ledger.Account, action string, before, after any) error {
	entry := auditapp.Entry{
		TenantID:     a.TenantID,
		ActorID:      actorID,
		Module:       registryModule,
		Action:       action,
		ResourceType: accountResource,
		ResourceID:   a.ID,
		Before:       before,
		After:        after,
	}
	return s.audit.Record(ctx, repos.Audit(), entry)
}
