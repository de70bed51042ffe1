package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.Equal(t, "postgres", mockDB.DB.Dialector.Name())
	mockDB.ExpectationsWereMet(t)
}

func TestNewSQLiteDB_MigratesLedgerTables(t *testing.T) {
	db := NewSQLiteDB(t)

	for _, table := range []string{"accounts", "journal_entries", "journal_lines", "accounting_periods", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasTable(&models.OutboxEntryModel{}))
}

func TestNewSQLiteDB_IsolatedPerCall(t *testing.T) {
	a := NewSQLiteDB(t)
	b := NewSQLiteDB(t)

	require.NoError(t, a.Exec("INSERT INTO number_sequences (tenant_id, prefix, last_value) VALUES (?, ?, ?)",
		TestTenantID(), "JE", 7).Error)

	var count int64
	require.NoError(t, b.Table("number_sequences").Count(&count).Error)
	assert.Zero(t, count)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("seed"), NewTestUUID("seed"))
	assert.NotEqual(t, NewTestUUID("seed"), NewTestUUID("other"))
	assert.NotEqual(t, TestTenantID(), TestUserID())
}

func TestDate(t *testing.T) {
	d := Date(2024, time.March, 31)
	assert.Equal(t, time.UTC, d.Location())
	assert.Zero(t, d.Hour())
}

func TestContextWithTimeout(t *testing.T) {
	ctx, cancel := ContextWithTimeout(t, 100*time.Millisecond)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}

func TestRequireEventually(t *testing.T) {
	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}()

	RequireEventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	AssertNever(t, func() bool { return false }, 30*time.Millisecond, 10*time.Millisecond)
}

func TestRunHTTPTestCase(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": "posted"})
	}

	RunHTTPTestCase(t, handler, HTTPTestCase{
		Name:           "simple",
		Method:         http.MethodPost,
		Path:           "/entries",
		Body:           map[string]string{"description": "x"},
		ExpectedStatus: http.StatusOK,
		ExpectedBody:   map[string]any{"success": true, "data": "posted"},
	})
}

func TestJSONResponseAs(t *testing.T) {
	type response struct {
		Key string `json:"key"`
	}

	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	assert.Equal(t, "value", JSONResponseAs[response](t, tc).Key)
	assert.Equal(t, http.StatusOK, tc.ResponseCode())
}
