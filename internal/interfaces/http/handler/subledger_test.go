package handler

import (
	"net/http"
	"testing"

	allocationapp "github.com/erp/ledger/internal/application/allocation"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/posting"
	"github.com/erp/ledger/internal/domain/allocation"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubledgerHandler_BillApproveAndPay(t *testing.T) {
	h := newHarness(t)
	h.period("2026-03", testutil.Date(2026, 3, 1), testutil.Date(2026, 3, 31))
	cashID := h.account("1000", "ASSET")
	h.account("2000", "LIABILITY")
	rentID := h.account("6000", "EXPENSE")

	var bank posting.BankAccountResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/bank-accounts", gin.H{
		"name":          "Operating",
		"gl_account_id": cashID,
	}, &bank)

	var bill posting.BillResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/bills", gin.H{
		"vendor_ref": "ACME-1",
		"bill_date":  testutil.Date(2026, 3, 2),
		"due_date":   testutil.Date(2026, 3, 30),
		"lines":      []gin.H{{"account_id": rentID, "amount": "500.00"}},
	}, &bill)
	assert.Equal(t, string(finance.BillStatusDraft), bill.Status)

	h.mustDo(http.StatusOK, http.MethodPost, "/bills/"+bill.ID.String()+"/approve", nil, &bill)
	assert.NotEmpty(t, bill.BillNumber)

	w, env := h.do(http.MethodPost, "/bills/"+bill.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ledger.CodeWrongStatus, env.Error.Code)

	h.mustDo(http.StatusOK, http.MethodPost, "/bills/"+bill.ID.String()+"/payments", gin.H{
		"amount":          "500.00",
		"bank_account_id": bank.ID,
		"paid_on":         testutil.Date(2026, 3, 10),
	}, &bill)
	assert.Equal(t, string(finance.BillStatusPaid), bill.Status)

	var open []posting.CashTransactionResponse
	h.mustDo(http.StatusOK, http.MethodGet, "/bank-accounts/"+bank.ID.String()+"/unreconciled?up_to=2026-03-31", nil, &open)
	assert.Len(t, open, 1)

	var aging struct {
		Rows []map[string]any `json:"rows"`
	}
	h.mustDo(http.StatusOK, http.MethodGet, "/reports/aging?kind=ap&as_of=2026-03-31", nil, &aging)
	assert.Empty(t, aging.Rows, "a paid bill is not aged")
}

func TestSubledgerHandler_BadIDs(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{
		"/bills/x/approve",
		"/invoices/x/send",
		"/payroll-runs/x/approve",
		"/assets/x/dispose",
		"/assets/depreciation/x",
	} {
		w, env := h.do(http.MethodPost, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code, path)
	}
}

func TestSubledgerHandler_UnknownBill(t *testing.T) {
	h := newHarness(t)

	w, env := h.do(http.MethodGet, "/bills/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAllocationHandler_RuleAndProcess(t *testing.T) {
	h := newHarness(t)
	h.period("2026-01", testutil.Date(2026, 1, 1), testutil.Date(2026, 1, 31))
	cashID := h.account("1000", "ASSET")
	sharedCostID := h.account("6000", "EXPENSE")
	salesID := h.account("6010", "EXPENSE")
	opsID := h.account("6020", "EXPENSE")

	var rule allocationapp.RuleResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/allocation-rules", gin.H{
		"code":              "RENT",
		"name":              "Rent split",
		"method":            string(allocation.MethodPercentage),
		"source_account_id": sharedCostID,
		"effective_from":    testutil.Date(2026, 1, 1),
		"targets": []gin.H{
			{"account_id": salesID, "percentage": "60"},
			{"account_id": opsID, "percentage": "40"},
		},
	}, &rule)

	var rules []allocationapp.RuleResponse
	h.mustDo(http.StatusOK, http.MethodGet, "/allocation-rules", nil, &rules)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)

	entry := h.post(testutil.Date(2026, 1, 5), sharedCostID, cashID, "1000.00")

	h.mustDo(http.StatusOK, http.MethodPost, "/allocations/entries/"+entry.ID.String(), nil, nil)

	var sales ledgerapp.AccountResponse
	h.mustDo(http.StatusOK, http.MethodGet, "/accounts/"+salesID.String(), nil, &sales)
	assert.True(t, sales.CurrentBalance.Equal(decimal.RequireFromString("600.00")), sales.CurrentBalance.String())

	w, _ := h.do(http.MethodGet, "/allocations/entries/"+entry.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAllocationHandler_InvalidRule(t *testing.T) {
	h := newHarness(t)
	sharedCostID := h.account("6000", "EXPENSE")
	salesID := h.account("6010", "EXPENSE")

	w, env := h.do(http.MethodPost, "/allocation-rules", gin.H{
		"code":              "BAD",
		"name":              "Does not sum",
		"method":            string(allocation.MethodPercentage),
		"source_account_id": sharedCostID,
		"effective_from":    testutil.Date(2026, 1, 1),
		"targets":           []gin.H{{"account_id": salesID, "percentage": "70"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(ledger.KindAllocation), env.Error.Kind)
}
