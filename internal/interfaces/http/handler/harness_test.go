package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	allocationapp "github.com/erp/ledger/internal/application/allocation"
	auditapp "github.com/erp/ledger/internal/application/audit"
	eventapp "github.com/erp/ledger/internal/application/event"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/posting"
	retentionapp "github.com/erp/ledger/internal/application/retention"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/erp/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

// harness serves the full API against an in-memory database
type harness struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	tenantID uuid.UUID
	actorID  uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	uow := persistence.NewGormUnitOfWork(db, nil)
	settings := ledgerapp.NewSettings(config.LedgerConfig{
		BaseCurrency: "USD",
		DefaultScale: 2,
		ControlAccounts: config.ControlAccounts{
			RetainedEarnings:         "3100",
			FXRounding:               "7990",
			AccountsReceivable:       "1200",
			AccountsPayable:          "2000",
			TaxPayable:               "2200",
			NetPayClearing:           "2100",
			GrossPayExpense:          "6100",
			EmployerTaxExpense:       "6110",
			TaxWithholding:           "2300",
			BenefitWithholding:       "2310",
			DepreciationExpense:      "6200",
			AccumulatedDepreciation:  "1590",
			DisposalGainLoss:         "7900",
			ReconciliationAdjustment: "7950",
		},
	})
	logger := zap.NewNop()
	recorder := auditapp.NewRecorder(time.Second, logger)

	accounts := ledgerapp.NewAccountService(uow, recorder, settings, logger)
	journal := ledgerapp.NewJournalService(uow, recorder, settings, logger)
	periods := ledgerapp.NewPeriodService(uow, journal, recorder, settings, logger)
	reports := ledgerapp.NewReportingService(uow, accounts, logger)
	engine := allocationapp.NewEngine(uow, journal, recorder, settings, logger)
	executor := retentionapp.NewExecutor(uow, persistence.NewGormRecordStore(db), persistence.NewGormArchiveSink(db), 100, logger)

	api := gin.New()
	r := router.NewRouter(api).Use(middleware.Identity(middleware.DefaultIdentityConfig()))
	r.Register(
		NewAccountHandler(accounts),
		NewJournalHandler(journal),
		NewPeriodHandler(periods),
		NewReportHandler(reports),
		NewAllocationHandler(allocationapp.NewRuleService(uow, recorder, logger), engine),
		NewSubledgerHandler(
			posting.NewAPService(uow, journal, recorder, settings, logger),
			posting.NewARService(uow, journal, recorder, settings, logger),
			posting.NewCashService(uow, journal, recorder, settings, logger),
			posting.NewPayrollService(uow, journal, recorder, settings, logger),
			posting.NewAssetService(uow, journal, recorder, settings, logger),
		),
		NewAuditHandler(auditapp.NewService(persistence.NewGormAuditRepository(db))),
		NewRetentionHandler(retentionapp.NewService(uow, executor, recorder, logger)),
		NewOutboxHandler(eventapp.NewOutboxService(event.NewGormOutboxRepository(db), logger)),
	)
	r.Setup()

	return &harness{
		t:        t,
		db:       db,
		engine:   api,
		tenantID: testutil.TestTenantID(),
		actorID:  testutil.TestUserID(),
	}
}

// do sends a request carrying the harness identity headers
func (h *harness) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	return h.doAs(h.tenantID, method, path, body)
}

func (h *harness) doAs(tenantID uuid.UUID, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, tenantID.String())
	req.Header.Set(middleware.ActorHeaderKey, h.actorID.String())
	req.Header.Set(middleware.RequestIDHeader, "req-"+h.t.Name())

	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// mustDo fails the test unless the request answers want
func (h *harness) mustDo(want int, method, path string, body any, out any) {
	h.t.Helper()
	w, env := h.do(method, path, body)
	require.Equal(h.t, want, w.Code, w.Body.String())
	if out != nil {
		require.NoError(h.t, json.Unmarshal(env.Data, out))
	}
}

func (h *harness) account(code, typ string) uuid.UUID {
	h.t.Helper()
	var resp ledgerapp.AccountResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/accounts", gin.H{
		"code": code,
		"name": "Account " + code,
		"type": typ,
	}, &resp)
	return resp.ID
}

func (h *harness) period(label string, start, end time.Time) uuid.UUID {
	h.t.Helper()
	var resp ledgerapp.PeriodResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/periods", gin.H{
		"label":       label,
		"period_type": "MONTH",
		"start_date":  start,
		"end_date":    end,
	}, &resp)
	return resp.ID
}

func (h *harness) draft(date time.Time, debitID, creditID uuid.UUID, amount string) ledgerapp.EntryResponse {
	h.t.Helper()
	var resp ledgerapp.EntryResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/journal-entries", gin.H{
		"entry_date":  date,
		"description": "handler test",
		"lines": []gin.H{
			{"account_id": debitID, "debit": amount},
			{"account_id": creditID, "credit": amount},
		},
	}, &resp)
	return resp
}

// post drafts an entry and walks it to POSTED over HTTP
func (h *harness) post(date time.Time, debitID, creditID uuid.UUID, amount string) ledgerapp.EntryResponse {
	h.t.Helper()
	entry := h.draft(date, debitID, creditID, amount)
	for _, step := range []string{"submit", "approve", "post"} {
		h.mustDo(http.StatusOK, http.MethodPost, "/journal-entries/"+entry.ID.String()+"/"+step, nil, &entry)
	}
	return entry
}
