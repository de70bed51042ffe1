package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{ledger.CodeUnbalancedEntry, http.StatusBadRequest},
		{ledger.CodeInvalidLine, http.StatusBadRequest},
		{ledger.CodeWrongStatus, http.StatusConflict},
		{ledger.CodeClosedPeriod, http.StatusConflict},
		{ledger.CodeNoMatchingRule, http.StatusUnprocessableEntity},
		{ledger.CodeLockTimeout, http.StatusServiceUnavailable},
		{ledger.CodeLedgerInconsistency, http.StatusInternalServerError},
		{"NOT_FOUND", http.StatusNotFound},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestErrorInfoFrom_DomainError(t *testing.T) {
	err := shared.NewDomainError(ledger.CodeUnbalancedEntry, "debits 100.00 credits 90.00").
		WithLines(2, 3).
		WithDetail("account", "1000")

	status, info := ErrorInfoFrom(fmt.Errorf("post: %w", err), "req-1")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ledger.CodeUnbalancedEntry, info.Code)
	assert.Equal(t, "validation", info.Kind)
	assert.Equal(t, []int{2, 3}, info.Lines)
	assert.Equal(t, "1000", info.Details["account"])
	assert.Equal(t, "req-1", info.RequestID)
}

func TestErrorInfoFrom_PlainErrorHidesMessage(t *testing.T) {
	status, info := ErrorInfoFrom(errors.New("pq: connection refused"), "")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternal, info.Code)
	assert.NotContains(t, info.Message, "pq")
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "abc", []ValidationDetail{
		{Field: "code", Message: "code is required"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errObj["code"])
	assert.Equal(t, "abc", errObj["request_id"])
	assert.Len(t, errObj["fields"], 1)
	assert.NotContains(t, errObj, "lines")
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 101, 2, 50)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.True(t, resp.Success)
}

func TestPageRequest(t *testing.T) {
	p := PageRequest{}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 50, p.PageSize)
	p.Page = 3
	assert.Equal(t, 100, p.Offset())
}
