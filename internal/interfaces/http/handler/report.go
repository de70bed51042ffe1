package handler

import (
	"strings"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/reporting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportHandler serves the financial statements
type ReportHandler struct {
	BaseHandler
	reports *ledgerapp.ReportingService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *ledgerapp.ReportingService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// TrialBalance GET /reports/trial-balance?as_of=2026-01-31
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	asOf, ok := h.queryDate(c, "as_of")
	if !ok {
		return
	}
	resp, err := h.reports.TrialBalance(c.Request.Context(), tenant(c), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// BalanceSheet GET /reports/balance-sheet?as_of=2026-01-31
func (h *ReportHandler) BalanceSheet(c *gin.Context) {
	asOf, ok := h.queryDate(c, "as_of")
	if !ok {
		return
	}
	resp, err := h.reports.BalanceSheet(c.Request.Context(), tenant(c), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// IncomeStatement GET /reports/income-statement?start=2026-01-01&end=2026-01-31
func (h *ReportHandler) IncomeStatement(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	resp, err := h.reports.IncomeStatement(c.Request.Context(), tenant(c), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CashFlow GET /reports/cash-flow?start=2026-01-01&end=2026-01-31
func (h *ReportHandler) CashFlow(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	resp, err := h.reports.CashFlow(c.Request.Context(), tenant(c), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GLDetail lists posted lines with running balances. account_id repeats.
// GET /reports/gl-detail?account_id=...&account_id=...&from=...&to=...
func (h *ReportHandler) GLDetail(c *gin.Context) {
	var query ledgerapp.GLDetailQuery
	for _, raw := range c.QueryArray("account_id") {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid account_id: must be a UUID")
			return
		}
		query.AccountIDs = append(query.AccountIDs, id)
	}
	var ok bool
	if query.From, ok = h.queryDate(c, "from"); !ok {
		return
	}
	if query.To, ok = h.queryDate(c, "to"); !ok {
		return
	}
	resp, err := h.reports.GLDetail(c.Request.Context(), tenant(c), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Aging buckets open documents by days past due.
// GET /reports/aging?kind=AR&as_of=2026-01-31
func (h *ReportHandler) Aging(c *gin.Context) {
	kind := reporting.AgingKind(strings.ToUpper(c.DefaultQuery("kind", string(reporting.AgingReceivables))))
	if kind != reporting.AgingPayables && kind != reporting.AgingReceivables {
		h.BadRequest(c, "kind must be AP or AR")
		return
	}
	asOf, ok := h.queryDate(c, "as_of")
	if !ok {
		return
	}
	resp, err := h.reports.Aging(c.Request.Context(), tenant(c), kind, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *ReportHandler) dateRange(c *gin.Context) (start, end time.Time, ok bool) {
	if start, ok = h.requiredDate(c, "start"); !ok {
		return
	}
	end, ok = h.requiredDate(c, "end")
	return
}

// RegisterRoutes mounts the report routes on rg
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reports")
	g.GET("/trial-balance", h.TrialBalance)
	g.GET("/balance-sheet", h.BalanceSheet)
	g.GET("/income-statement", h.IncomeStatement)
	g.GET("/cash-flow", h.CashFlow)
	g.GET("/gl-detail", h.GLDetail)
	g.GET("/aging", h.Aging)
}
