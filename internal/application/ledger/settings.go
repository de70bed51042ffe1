// Package ledger holds the application services of the accounting core:
// the account registry, the journal service, the period manager and the
// reporting view.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
)

// Settings is the accounting behaviour shared by the ledger services
type Settings struct {
	Precision       ledger.Precision
	BaseCurrency    string
	ClosingCurrency string
	AuditTimeout    time.Duration
	Controls        config.ControlAccounts
}

// NewSettings derives Settings from configuration
func NewSettings(cfg config.LedgerConfig) Settings {
	base := strings.ToUpper(cfg.BaseCurrency)
	if base == "" {
		base = "USD"
	}
	closing := strings.ToUpper(cfg.ClosingCurrency)
	if closing == "" {
		closing = base
	}
	return Settings{
		Precision:       ledger.NewPrecision(cfg.DefaultScale, cfg.CurrencyScales),
		BaseCurrency:    base,
		ClosingCurrency: closing,
		AuditTimeout:    cfg.AuditTimeout,
		Controls:        cfg.ControlAccounts,
	}
}

// ResolveControlAccount looks up a configured control account by code.
// A missing or inactive account is reported with the posting role it was
// needed for.
func ResolveControlAccount(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID, role, code string) (*ledger.Account, error) {
	if code == "" {
		return nil, ledger.ErrUnknownAccount.WithDetail("control_account", role)
	}
	acct, err := accounts.FindByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.ErrUnknownAccount.
				WithDetail("control_account", role).
				WithDetail("code", code)
		}
		return nil, err
	}
	if !acct.IsActive {
		return nil, ledger.ErrInactiveAccount.
			WithDetail("control_account", role).
			WithDetail("code", code)
	}
	return acct, nil
}
