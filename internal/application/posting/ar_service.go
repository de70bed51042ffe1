package posting

import (
	"context"
	"errors"
	"strings"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	invoiceResource = "invoice"
	taxRuleResource = "tax_rule"
)

// ARService records customer invoices and posts them and their receipts
type ARService struct {
	poster
	tax finance.TaxCalculator
}

// NewARService creates a new ARService using the rate tax calculator
func NewARService(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) *ARService {
	return &ARService{
		poster: newPoster(uow, journal, recorder, settings, logger),
		tax:    finance.RateTaxCalculator{},
	}
}

// SetTaxCalculator replaces the tax calculator
func (s *ARService) SetTaxCalculator(c finance.TaxCalculator) {
	s.tax = c
}

// CreateTaxRule defines a tax code. The payable account must be an active liability.
func (s *ARService) CreateTaxRule(ctx context.Context, tenantID, actorID uuid.UUID, req CreateTaxRuleRequest) (*TaxRuleResponse, error) {
	var rule *finance.TaxRule
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		acct, err := s.activeAccount(ctx, repos, tenantID, req.PayableAccountID)
		if err != nil {
			return err
		}
		if acct.Type != ledger.AccountTypeLiability {
			return ledger.ErrInvalidType.WithDetail("payable_account", acct.Code)
		}
		rule, err = finance.NewTaxRule(tenantID, req.Code, req.Name, req.Rate, acct.ID)
		if err != nil {
			return err
		}
		if _, err := repos.TaxRules().FindByCode(ctx, tenantID, rule.Code); err == nil {
			return shared.NewDomainErrorf("ALREADY_EXISTS", "Tax code %s already exists", rule.Code)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if err := repos.TaxRules().Create(ctx, rule); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAR, audit.ActionCreate, taxRuleResource, rule.ID, nil, ToTaxRuleResponse(rule))
	})
	if err != nil {
		return nil, err
	}
	resp := ToTaxRuleResponse(rule)
	return &resp, nil
}

// ListTaxRules returns the tenant's tax rules
func (s *ARService) ListTaxRules(ctx context.Context, tenantID uuid.UUID) ([]TaxRuleResponse, error) {
	rules, err := s.uow.Repos().TaxRules().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]TaxRuleResponse, len(rules))
	for i, r := range rules {
		out[i] = ToTaxRuleResponse(r)
	}
	return out, nil
}

// CreateInvoice records a draft invoice with tax computed per line
func (s *ARService) CreateInvoice(ctx context.Context, tenantID, actorID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	var inv *finance.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		arID, err := s.orControl(ctx, repos, tenantID, req.ARAccountID, "accounts_receivable", s.settings.Controls.AccountsReceivable)
		if err != nil {
			return err
		}
		lines := toDocumentLines(req.Lines)
		for i := range lines {
			lines[i].TaxCode = strings.ToUpper(strings.TrimSpace(lines[i].TaxCode))
		}
		inv, err = finance.NewInvoice(tenantID, req.CustomerRef, req.CustomerName, req.InvoiceDate, req.DueDate, arID, lines)
		if err != nil {
			return err
		}
		rules, err := s.taxRules(ctx, repos, tenantID, inv)
		if err != nil {
			return err
		}
		for i, l := range inv.Lines {
			if l.TaxCode == "" {
				continue
			}
			inv.ApplyTax(i, s.tax.Calculate(rules[l.TaxCode], l.Amount, s.scale()))
		}
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAR, audit.ActionCreate, invoiceResource, inv.ID, nil, ToInvoiceResponse(inv))
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// SendInvoice posts the invoice entry and numbers the invoice after it
func (s *ARService) SendInvoice(ctx context.Context, tenantID, actorID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	var inv *finance.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		inv, err = repos.Invoices().FindByID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != finance.InvoiceStatusDraft {
			return ledger.ErrWrongStatus.WithDetail("invoice_id", inv.ID.String()).WithDetail("status", string(inv.Status))
		}
		before := ToInvoiceResponse(inv)

		rules, err := s.taxRules(ctx, repos, tenantID, inv)
		if err != nil {
			return err
		}
		req, err := InvoiceEntry(inv, rules)
		if err != nil {
			return err
		}
		entry, err := s.post(ctx, repos, tenantID, actorID, req, ledger.PrefixInvoice)
		if err != nil {
			return err
		}
		if err := inv.MarkSent(entry.EntryNumber, entry.ID); err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAR, audit.ActionSend, invoiceResource, inv.ID, before, ToInvoiceResponse(inv))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice sent",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.Total.String()),
	)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// ReceivePayment posts a PAY- entry into the bank's cash account and then
// applies the receipt. The receipt is kept as a deposit on the bank account.
func (s *ARService) ReceivePayment(ctx context.Context, tenantID, actorID, invoiceID uuid.UUID, req PaymentRequest) (*InvoiceResponse, error) {
	var inv *finance.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		inv, err = repos.Invoices().FindByID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.CheckPayment(req.Amount); err != nil {
			return err
		}
		bank, err := s.bank(ctx, repos, tenantID, req.BankAccountID)
		if err != nil {
			return err
		}
		before := ToInvoiceResponse(inv)
		paidOn := s.orToday(req.PaidOn)

		entry, err := s.post(ctx, repos, tenantID, actorID, InvoicePaymentEntry(inv, req.Amount, bank.GLAccountID, paidOn), ledger.PrefixPayment)
		if err != nil {
			return err
		}
		tx, err := finance.NewCashTransaction(bank, finance.CashDeposit, req.Amount, inv.ARAccountID, paidOn, "Receipt for "+inv.InvoiceNumber)
		if err != nil {
			return err
		}
		tx.Reference = entry.EntryNumber
		tx.MarkPosted(entry.ID)
		if err := repos.CashTransactions().Create(ctx, tx); err != nil {
			return err
		}

		if err := inv.ApplyPayment(req.Amount, bank.ID, entry.ID, paidOn); err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAR, audit.ActionPay, invoiceResource, inv.ID, before, ToInvoiceResponse(inv))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice payment received",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(inv.Status)),
	)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// VoidInvoice cancels an invoice that has not been sent
func (s *ARService) VoidInvoice(ctx context.Context, tenantID, actorID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	var inv *finance.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		inv, err = repos.Invoices().FindByID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		before := ToInvoiceResponse(inv)
		if err := inv.Void(); err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAR, audit.ActionVoid, invoiceResource, inv.ID, before, ToInvoiceResponse(inv))
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// GetInvoice returns an invoice by id
func (s *ARService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.uow.Repos().Invoices().FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// taxRules loads the active rules for every tax code on the invoice
func (s *ARService) taxRules(ctx context.Context, repos unitofwork.Repositories, tenantID uuid.UUID, inv *finance.Invoice) (map[string]*finance.TaxRule, error) {
	rules := make(map[string]*finance.TaxRule)
	for i, l := range inv.Lines {
		if l.TaxCode == "" {
			continue
		}
		if _, ok := rules[l.TaxCode]; ok {
			continue
		}
		rule, err := repos.TaxRules().FindByCode(ctx, tenantID, l.TaxCode)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainErrorf("INVALID_INPUT", "Unknown tax code %s", l.TaxCode).WithLines(i + 1)
			}
			return nil, err
		}
		if !rule.IsActive {
			return nil, shared.NewDomainErrorf("INVALID_INPUT", "Tax code %s is inactive", l.TaxCode).WithLines(i + 1)
		}
		rules[l.TaxCode] = rule
	}
	return rules, nil
}
