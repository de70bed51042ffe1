package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	auditapp "github.com/erp/ledger/internal/application/audit"
	eventapp "github.com/erp/ledger/internal/application/event"
	retentionapp "github.com/erp/ledger/internal/application/retention"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditHandler_ListFilters(t *testing.T) {
	h := newHarness(t)
	cashID := h.account("1000", "ASSET")
	h.account("4000", "REVENUE")

	var logs []auditapp.LogResponse
	h.mustDo(http.StatusOK, http.MethodGet, "/audit-logs", nil, &logs)
	assert.Len(t, logs, 2)

	h.mustDo(http.StatusOK, http.MethodGet, "/audit-logs?resource_id="+cashID.String()+"&action=create", nil, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, cashID, logs[0].ResourceID)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, h.actorID, *logs[0].ActorID)
	assert.Equal(t, "req-"+t.Name(), logs[0].CorrelationID)

	h.mustDo(http.StatusOK, http.MethodGet, "/audit-logs?limit=1", nil, &logs)
	assert.Len(t, logs, 1)

	h.mustDo(http.StatusOK, http.MethodGet, "/audit-logs?to=2000-01-01", nil, &logs)
	assert.Empty(t, logs)
}

func TestAuditHandler_BadQuery(t *testing.T) {
	h := newHarness(t)

	for _, q := range []string{"resource_id=nope", "limit=0", "limit=501", "from=yesterday"} {
		w, env := h.do(http.MethodGet, "/audit-logs?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code, q)
	}
}

func TestRetentionHandler_CreateRunList(t *testing.T) {
	h := newHarness(t)

	w, env := h.do(http.MethodPost, "/retention-policies", gin.H{
		"name":           "ledger tables",
		"target_table":   "journal_entries",
		"retention_days": 30,
		"action":         "DELETE",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "the posted ledger is never a retention target")
	require.NotNil(t, env.Error)

	w, env = h.do(http.MethodPost, "/retention-policies", gin.H{
		"name":           "bad action",
		"target_table":   "audit_logs",
		"retention_days": 30,
		"action":         "SHRED",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)

	var policy retentionapp.PolicyResponse
	h.mustDo(http.StatusCreated, http.MethodPost, "/retention-policies", gin.H{
		"name":           "outbox cleanup",
		"target_table":   "outbox_events",
		"retention_days": 30,
		"action":         "delete",
		"conditions":     gin.H{"status": "SENT"},
	}, &policy)
	assert.Equal(t, "DELETE", policy.Action)

	var policies []retentionapp.PolicyResponse
	h.mustDo(http.StatusOK, http.MethodGet, "/retention-policies", nil, &policies)
	assert.Len(t, policies, 1)

	var exec retentionapp.ExecutionResponse
	h.mustDo(http.StatusOK, http.MethodPost, "/retention-policies/"+policy.ID.String()+"/run", nil, &exec)
	assert.Equal(t, policy.ID, exec.PolicyID)
	assert.Zero(t, exec.Deleted)

	var execs []retentionapp.ExecutionResponse
	h.mustDo(http.StatusOK, http.MethodGet, "/retention-policies/"+policy.ID.String()+"/executions?limit=5", nil, &execs)
	require.Len(t, execs, 1)
	assert.Equal(t, exec.ID, execs[0].ID)

	w, _ = h.do(http.MethodGet, "/retention-policies/"+policy.ID.String()+"/executions?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/retention-policies/"+uuid.NewString()+"/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func deadLetter(t *testing.T, h *harness, tenantID uuid.UUID) *shared.OutboxEntry {
	t.Helper()
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventID:       uuid.New(),
		EventType:     "EntryPosted",
		AggregateID:   uuid.New(),
		AggregateType: "JournalEntry",
		Payload:       []byte(`{}`),
		Status:        shared.OutboxStatusPending,
		MaxRetries:    1,
	}
	entry.MarkFailed("no matching allocation rule")
	require.True(t, entry.IsDead())
	require.NoError(t, event.NewGormOutboxRepository(h.db).Save(context.Background(), entry))
	return entry
}

func TestOutboxHandler_DeadLetters(t *testing.T) {
	h := newHarness(t)
	dead := deadLetter(t, h, h.tenantID)
	deadLetter(t, h, uuid.New())

	var stats eventapp.OutboxStatsDTO
	h.mustDo(http.StatusOK, http.MethodGet, "/outbox/stats", nil, &stats)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(1), stats.Total)

	w, env := h.do(http.MethodGet, "/outbox/dead", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), env.Meta.Total)

	var entry eventapp.OutboxEntryDTO
	h.mustDo(http.StatusOK, http.MethodPost, "/outbox/"+dead.ID.String()+"/retry", nil, &entry)
	assert.Equal(t, string(shared.OutboxStatusPending), entry.Status)

	w, env = h.do(http.MethodPost, "/outbox/"+dead.ID.String()+"/retry", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "only dead letters can be retried")
	assert.Equal(t, "WRONG_STATUS", env.Error.Code)
}

func TestOutboxHandler_RetryAll(t *testing.T) {
	h := newHarness(t)
	deadLetter(t, h, h.tenantID)
	deadLetter(t, h, h.tenantID)

	var resp struct {
		Retried int64 `json:"retried"`
	}
	h.mustDo(http.StatusOK, http.MethodPost, "/outbox/dead/retry", nil, &resp)
	assert.Equal(t, int64(2), resp.Retried)
}

type fakeDatabase struct {
	pingErr error
}

func (f fakeDatabase) Ping() error { return f.pingErr }

func (f fakeDatabase) Stats() (persistence.ConnectionStats, error) {
	return persistence.ConnectionStats{MaxOpenConnections: 10, OpenConnections: 2}, nil
}

func TestSystemHandler_Probes(t *testing.T) {
	tests := []struct {
		name       string
		db         fakeDatabase
		extra      HealthCheck
		wantStatus int
		wantState  string
	}{
		{"healthy", fakeDatabase{}, nil, http.StatusOK, "ok"},
		{"database down", fakeDatabase{pingErr: errors.New("connection refused")}, nil, http.StatusServiceUnavailable, "unavailable"},
		{"cache down", fakeDatabase{}, func(context.Context) error { return errors.New("redis timeout") }, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := NewSystemHandler("ledger", "test", tt.db)
			if tt.extra != nil {
				sys.AddCheck("redis", tt.extra)
			}
			engine := gin.New()
			sys.RegisterProbes(engine)

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.Status)
			assert.Contains(t, resp.Checks, "database")

			w = httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, w.Code, "liveness ignores dependencies")
		})
	}
}

func TestSystemHandler_Info(t *testing.T) {
	sys := NewSystemHandler("ledger", "1.2.3", fakeDatabase{})
	engine := gin.New()
	sys.RegisterRoutes(engine.Group("/api/v1"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var info SystemInfoResponse
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	require.NotNil(t, info.Database)
	assert.Equal(t, 2, info.Database.OpenConnections)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentity_TenantRequired(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, dto.ErrCodeNoTenant, env.Error.Code)
}
