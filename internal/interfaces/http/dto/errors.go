package dto

import (
	"errors"
	"net/http"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
)

// Transport level error codes. Domain failures keep their own codes
// (UNBALANCED_ENTRY, WRONG_STATUS, ...).
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeInvalidJSON = "INVALID_JSON"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeNoTenant    = "TENANT_REQUIRED"
)

// transportStatus maps transport codes to HTTP status codes
var transportStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
	ErrCodeNotFound:    http.StatusNotFound,
	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeNoTenant:    http.StatusBadRequest,
}

// kindStatus maps ledger error categories to HTTP status codes
var kindStatus = map[ledger.Kind]int{
	ledger.KindValidation:     http.StatusBadRequest,
	ledger.KindNotFound:       http.StatusNotFound,
	ledger.KindState:          http.StatusConflict,
	ledger.KindAllocation:     http.StatusUnprocessableEntity,
	ledger.KindInfrastructure: http.StatusServiceUnavailable,
	ledger.KindConsistency:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code.
// Unknown codes are internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := transportStatus[code]; ok {
		return status
	}
	if status, ok := kindStatus[ledger.KindOf(code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorInfoFrom converts err into an ErrorInfo and its HTTP status. Errors
// that are not domain errors are reported as internal without their message.
func ErrorInfoFrom(err error, requestID string) (int, *ErrorInfo) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return GetHTTPStatus(domainErr.Code), &ErrorInfo{
			Code:      domainErr.Code,
			Message:   domainErr.Message,
			Kind:      string(ledger.KindOf(domainErr.Code)),
			Lines:     domainErr.Lines,
			Details:   domainErr.Details,
			RequestID: requestID,
		}
	}
	return http.StatusInternalServerError, &ErrorInfo{
		Code:      ErrCodeInternal,
		Message:   "An unexpected error occurred",
		RequestID: requestID,
	}
}
