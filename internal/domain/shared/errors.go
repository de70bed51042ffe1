package shared

import (
	"fmt"
	"sort"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Lines   []int             `json:"lines,omitempty"`   // 1-based line numbers at fault
	Details map[string]string `json:"details,omitempty"` // offending identifiers
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Lines) > 0 {
		return fmt.Sprintf("%s (lines %v)", e.Message, e.Lines)
	}
	return e.Message
}

// Is matches another DomainError by code so that errors.Is works against the
// package-level sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithLines returns a copy of the error tagged with the given line numbers
func (e *DomainError) WithLines(lines ...int) *DomainError {
	cp := e.clone()
	cp.Lines = append(cp.Lines, lines...)
	sort.Ints(cp.Lines)
	return cp
}

// WithDetail returns a copy of the error carrying an extra key/value detail
func (e *DomainError) WithDetail(key, value string) *DomainError {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]string)
	}
	cp.Details[key] = value
	return cp
}

func (e *DomainError) clone() *DomainError {
	cp := &DomainError{Code: e.Code, Message: e.Message}
	if len(e.Lines) > 0 {
		cp.Lines = append([]int(nil), e.Lines...)
	}
	if len(e.Details) > 0 {
		cp.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
