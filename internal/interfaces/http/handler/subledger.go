package handler

import (
	"time"

	"github.com/erp/ledger/internal/application/posting"
	"github.com/gin-gonic/gin"
)

// SubledgerHandler serves the AP, AR, cash, payroll and fixed asset
// adapters. Each operation posts its journal entry in the same transaction
// as the document change.
type SubledgerHandler struct {
	BaseHandler
	ap      *posting.APService
	ar      *posting.ARService
	cash    *posting.CashService
	payroll *posting.PayrollService
	assets  *posting.AssetService
}

// NewSubledgerHandler creates a new SubledgerHandler
func NewSubledgerHandler(ap *posting.APService, ar *posting.ARService, cash *posting.CashService, payroll *posting.PayrollService, assets *posting.AssetService) *SubledgerHandler {
	return &SubledgerHandler{ap: ap, ar: ar, cash: cash, payroll: payroll, assets: assets}
}

// ==================== Payables ====================

// CreateBill records a draft bill. POST /bills
func (h *SubledgerHandler) CreateBill(c *gin.Context) {
	var req posting.CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.ap.CreateBill(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetBill returns one bill. GET /bills/:id
func (h *SubledgerHandler) GetBill(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ap.GetBill(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApproveBill posts the bill to AP. POST /bills/:id/approve
func (h *SubledgerHandler) ApproveBill(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ap.ApproveBill(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PayBill applies a payment. POST /bills/:id/payments
func (h *SubledgerHandler) PayBill(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req posting.PaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.ap.PayBill(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VoidBill voids a bill, reversing its posting. POST /bills/:id/void
func (h *SubledgerHandler) VoidBill(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ap.VoidBill(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ==================== Receivables ====================

// CreateTaxRule adds a sales tax rule. POST /tax-rules
func (h *SubledgerHandler) CreateTaxRule(c *gin.Context) {
	var req posting.CreateTaxRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.ar.CreateTaxRule(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListTaxRules returns the tax rules. GET /tax-rules
func (h *SubledgerHandler) ListTaxRules(c *gin.Context) {
	resp, err := h.ar.ListTaxRules(c.Request.Context(), tenant(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateInvoice records a draft invoice. POST /invoices
func (h *SubledgerHandler) CreateInvoice(c *gin.Context) {
	var req posting.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.ar.CreateInvoice(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetInvoice returns one invoice. GET /invoices/:id
func (h *SubledgerHandler) GetInvoice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ar.GetInvoice(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SendInvoice posts the invoice to AR. POST /invoices/:id/send
func (h *SubledgerHandler) SendInvoice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ar.SendInvoice(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReceivePayment applies a customer payment. POST /invoices/:id/payments
func (h *SubledgerHandler) ReceivePayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req posting.PaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.ar.ReceivePayment(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VoidInvoice voids an invoice, reversing its posting. POST /invoices/:id/void
func (h *SubledgerHandler) VoidInvoice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ar.VoidInvoice(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ==================== Cash ====================

// CreateBankAccount links a bank account to a GL cash account.
// POST /bank-accounts
func (h *SubledgerHandler) CreateBankAccount(c *gin.Context) {
	var req posting.CreateBankAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.cash.CreateBankAccount(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListBankAccounts returns bank accounts. GET /bank-accounts
func (h *SubledgerHandler) ListBankAccounts(c *gin.Context) {
	resp, err := h.cash.ListBankAccounts(c.Request.Context(), tenant(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RelinkBankAccount points a bank account at another GL account.
// PUT /bank-accounts/:id/gl-account
func (h *SubledgerHandler) RelinkBankAccount(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req posting.RelinkBankAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.cash.RelinkBankAccount(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListUnreconciled returns open transactions up to a date.
// GET /bank-accounts/:id/unreconciled?up_to=2026-01-31
func (h *SubledgerHandler) ListUnreconciled(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	upTo, ok := h.queryDate(c, "up_to")
	if !ok {
		return
	}
	limit := time.Now().UTC()
	if upTo != nil {
		limit = *upTo
	}
	resp, err := h.cash.ListUnreconciled(c.Request.Context(), tenant(c), id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordTransaction posts a deposit or disbursement. POST /cash-transactions
func (h *SubledgerHandler) RecordTransaction(c *gin.Context) {
	var req posting.CashTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.cash.RecordTransaction(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Reconcile matches transactions to a bank statement. POST /reconciliations
func (h *SubledgerHandler) Reconcile(c *gin.Context) {
	var req posting.ReconcileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.cash.Reconcile(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetReconciliation returns one reconciliation. GET /reconciliations/:id
func (h *SubledgerHandler) GetReconciliation(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.cash.GetReconciliation(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ==================== Payroll ====================

// CreatePayrollRun records a draft payroll run. POST /payroll-runs
func (h *SubledgerHandler) CreatePayrollRun(c *gin.Context) {
	var req posting.CreatePayrollRunRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.payroll.CreatePayrollRun(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetPayrollRun returns one payroll run. GET /payroll-runs/:id
func (h *SubledgerHandler) GetPayrollRun(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.payroll.GetPayrollRun(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApprovePayrollRun accrues the payroll. POST /payroll-runs/:id/approve
func (h *SubledgerHandler) ApprovePayrollRun(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.payroll.ApprovePayrollRun(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DisbursePayrollRun pays net pay. POST /payroll-runs/:id/disburse
func (h *SubledgerHandler) DisbursePayrollRun(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req posting.DisbursePayrollRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.payroll.DisbursePayrollRun(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ==================== Fixed assets ====================

// AcquireAsset capitalizes an asset. POST /assets
func (h *SubledgerHandler) AcquireAsset(c *gin.Context) {
	var req posting.AcquireAssetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.assets.AcquireAsset(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetAsset returns one asset with its depreciation history. GET /assets/:id
func (h *SubledgerHandler) GetAsset(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.assets.GetAsset(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DisposeAsset retires an asset. POST /assets/:id/dispose
func (h *SubledgerHandler) DisposeAsset(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req posting.DisposeAssetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.assets.DisposeAsset(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RunDepreciation depreciates every active asset for a period.
// POST /assets/depreciation/:period_id
func (h *SubledgerHandler) RunDepreciation(c *gin.Context) {
	id, ok := h.pathID(c, "period_id")
	if !ok {
		return
	}
	resp, err := h.assets.RunDepreciation(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the subledger routes on rg
func (h *SubledgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/bills")
	bills.POST("", h.CreateBill)
	bills.GET("/:id", h.GetBill)
	bills.POST("/:id/approve", h.ApproveBill)
	bills.POST("/:id/payments", h.PayBill)
	bills.POST("/:id/void", h.VoidBill)

	rg.POST("/tax-rules", h.CreateTaxRule)
	rg.GET("/tax-rules", h.ListTaxRules)

	invoices := rg.Group("/invoices")
	invoices.POST("", h.CreateInvoice)
	invoices.GET("/:id", h.GetInvoice)
	invoices.POST("/:id/send", h.SendInvoice)
	invoices.POST("/:id/payments", h.ReceivePayment)
	invoices.POST("/:id/void", h.VoidInvoice)

	banks := rg.Group("/bank-accounts")
	banks.POST("", h.CreateBankAccount)
	banks.GET("", h.ListBankAccounts)
	banks.PUT("/:id/gl-account", h.RelinkBankAccount)
	banks.GET("/:id/unreconciled", h.ListUnreconciled)

	rg.POST("/cash-transactions", h.RecordTransaction)
	rg.POST("/reconciliations", h.Reconcile)
	rg.GET("/reconciliations/:id", h.GetReconciliation)

	payroll := rg.Group("/payroll-runs")
	payroll.POST("", h.CreatePayrollRun)
	payroll.GET("/:id", h.GetPayrollRun)
	payroll.POST("/:id/approve", h.ApprovePayrollRun)
	payroll.POST("/:id/disburse", h.DisbursePayrollRun)

	assets := rg.Group("/assets")
	assets.POST("", h.AcquireAsset)
	assets.GET("/:id", h.GetAsset)
	assets.POST("/:id/dispose", h.DisposeAsset)
	assets.POST("/depreciation/:period_id", h.RunDepreciation)
}
