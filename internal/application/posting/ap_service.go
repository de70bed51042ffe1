package posting

import (
	"context"

	auditapp "github.com/erp/ledger/internal/application/audit"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const billResource = "bill"

// APService records vendor bills and posts them and their payments
type APService struct {
	poster
}

// NewAPService creates a new APService
func NewAPService(uow unitofwork.UnitOfWork, journal *ledgerapp.JournalService, recorder *auditapp.Recorder, settings ledgerapp.Settings, logger *zap.Logger) *APService {
	return &APService{poster: newPoster(uow, journal, recorder, settings, logger)}
}

// CreateBill records a draft bill. Without an explicit AP account the
// configured accounts payable control account is used.
func (s *APService) CreateBill(ctx context.Context, tenantID, actorID uuid.UUID, req CreateBillRequest) (*BillResponse, error) {
	var bill *finance.Bill
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		apID, err := s.orControl(ctx, repos, tenantID, req.APAccountID, "accounts_payable", s.settings.Controls.AccountsPayable)
		if err != nil {
			return err
		}
		bill, err = finance.NewBill(tenantID, req.VendorRef, req.VendorName, req.BillDate, req.DueDate, apID, toDocumentLines(req.Lines))
		if err != nil {
			return err
		}
		if err := repos.Bills().Create(ctx, bill); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAP, audit.ActionCreate, billResource, bill.ID, nil, ToBillResponse(bill))
	})
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}

// ApproveBill posts the bill entry and numbers the bill after it
func (s *APService) ApproveBill(ctx context.Context, tenantID, actorID, billID uuid.UUID) (*BillResponse, error) {
	var bill *finance.Bill
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		bill, err = repos.Bills().FindByID(ctx, tenantID, billID)
		if err != nil {
			return err
		}
		if bill.Status != finance.BillStatusDraft {
			return ledger.ErrWrongStatus.WithDetail("bill_id", bill.ID.String()).WithDetail("status", string(bill.Status))
		}
		before := ToBillResponse(bill)

		entry, err := s.post(ctx, repos, tenantID, actorID, BillEntry(bill), ledger.PrefixBill)
		if err != nil {
			return err
		}
		if err := bill.Approve(entry.EntryNumber, entry.ID); err != nil {
			return err
		}
		if err := repos.Bills().Save(ctx, bill); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAP, audit.ActionApprove, billResource, bill.ID, before, ToBillResponse(bill))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bill approved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("total", bill.Total.String()),
	)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// PayBill posts a PAY- entry from the bank's cash account and only then
// applies the payment to the bill. The payment is also kept as a
// disbursement on the bank account so that it can be reconciled.
func (s *APService) PayBill(ctx context.Context, tenantID, actorID, billID uuid.UUID, req PaymentRequest) (*BillResponse, error) {
	var bill *finance.Bill
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		bill, err = repos.Bills().FindByID(ctx, tenantID, billID)
		if err != nil {
			return err
		}
		if err := bill.CheckPayment(req.Amount); err != nil {
			return err
		}
		bank, err := s.bank(ctx, repos, tenantID, req.BankAccountID)
		if err != nil {
			return err
		}
		before := ToBillResponse(bill)
		paidOn := s.orToday(req.PaidOn)

		entry, err := s.post(ctx, repos, tenantID, actorID, BillPaymentEntry(bill, req.Amount, bank.GLAccountID, paidOn), ledger.PrefixPayment)
		if err != nil {
			return err
		}
		tx, err := finance.NewCashTransaction(bank, finance.CashDisbursement, req.Amount, bill.APAccountID, paidOn, "Payment of "+bill.BillNumber)
		if err != nil {
			return err
		}
		tx.Reference = entry.EntryNumber
		tx.MarkPosted(entry.ID)
		if err := repos.CashTransactions().Create(ctx, tx); err != nil {
			return err
		}

		if err := bill.ApplyPayment(req.Amount, bank.ID, entry.ID, paidOn); err != nil {
			return err
		}
		if err := repos.Bills().Save(ctx, bill); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAP, audit.ActionPay, billResource, bill.ID, before, ToBillResponse(bill))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bill paid",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(bill.Status)),
	)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// VoidBill cancels a bill that has not been approved
func (s *APService) VoidBill(ctx context.Context, tenantID, actorID, billID uuid.UUID) (*BillResponse, error) {
	var bill *finance.Bill
	err := s.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		var err error
		bill, err = repos.Bills().FindByID(ctx, tenantID, billID)
		if err != nil {
			return err
		}
		before := ToBillResponse(bill)
		if err := bill.Void(); err != nil {
			return err
		}
		if err := repos.Bills().Save(ctx, bill); err != nil {
			return err
		}
		return s.record(ctx, repos, tenantID, actorID, ledger.SourceAP, audit.ActionVoid, billResource, bill.ID, before, ToBillResponse(bill))
	})
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}

// GetBill returns a bill by id
func (s *APService) GetBill(ctx context.Context, tenantID, billID uuid.UUID) (*BillResponse, error) {
	bill, err := s.uow.Repos().Bills().FindByID(ctx, tenantID, billID)
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}
