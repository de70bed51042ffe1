package ledger

import (
	"errors"

	"github.com/erp/ledger/internal/domain/shared"
)

// Error codes surfaced by the accounting core
const (
	CodeUnbalancedEntry       = "UNBALANCED_ENTRY"
	CodeInvalidLine           = "INVALID_LINE"
	CodeUnknownAccount        = "UNKNOWN_ACCOUNT"
	CodeInactiveAccount       = "INACTIVE_ACCOUNT"
	CodeInvalidHierarchy      = "INVALID_HIERARCHY"
	CodeDuplicateCode         = "DUPLICATE_CODE"
	CodeInvalidType           = "INVALID_TYPE"
	CodeInvalidAccountCode    = "INVALID_ACCOUNT_CODE"
	CodeInvalidCurrency       = "INVALID_CURRENCY"
	CodeInvalidPeriod         = "INVALID_PERIOD"
	CodeWrongStatus           = "WRONG_STATUS"
	CodeClosedPeriod          = "CLOSED_PERIOD"
	CodePeriodClosing         = "PERIOD_CLOSING"
	CodeOverlappingPeriod     = "OVERLAPPING_PERIOD"
	CodeHasOpenBalance        = "HAS_OPEN_BALANCE"
	CodeUnpostedEntries       = "UNPOSTED_ENTRIES"
	CodeOutOfBalance          = "OUT_OF_BALANCE"
	CodeTasksIncomplete       = "TASKS_INCOMPLETE"
	CodeNoMatchingRule        = "NO_MATCHING_RULE"
	CodeInvalidAllocationRule = "INVALID_ALLOCATION_RULE"
	CodeAllocationSumMismatch = "ALLOCATION_SUM_MISMATCH"
	CodePersistenceFailure    = "PERSISTENCE_FAILURE"
	CodeLockTimeout           = "LOCK_TIMEOUT"
	CodeAuditWriteFailed      = "AUDIT_WRITE_FAILED"
	CodeLedgerInconsistency   = "LEDGER_INCONSISTENCY"
)

// Kind groups error codes by how callers are expected to react
type Kind string

const (
	KindValidation     Kind = "validation"
	KindState          Kind = "state"
	KindAllocation     Kind = "allocation"
	KindInfrastructure Kind = "infrastructure"
	KindConsistency    Kind = "consistency"
	KindNotFound       Kind = "not_found"
	KindUnknown        Kind = "unknown"
)

var codeKinds = map[string]Kind{
	CodeUnbalancedEntry:       KindValidation,
	CodeInvalidLine:           KindValidation,
	CodeUnknownAccount:        KindValidation,
	CodeInactiveAccount:       KindValidation,
	CodeInvalidHierarchy:      KindValidation,
	CodeDuplicateCode:         KindValidation,
	CodeInvalidType:           KindValidation,
	CodeInvalidAccountCode:    KindValidation,
	CodeInvalidCurrency:       KindValidation,
	CodeInvalidPeriod:         KindValidation,
	"INVALID_INPUT":           KindValidation,
	CodeWrongStatus:           KindState,
	CodeClosedPeriod:          KindState,
	CodePeriodClosing:         KindState,
	CodeOverlappingPeriod:     KindState,
	CodeHasOpenBalance:        KindState,
	CodeUnpostedEntries:       KindState,
	CodeOutOfBalance:          KindState,
	CodeTasksIncomplete:       KindState,
	"INVALID_STATE":           KindState,
	"ALREADY_EXISTS":          KindState,
	CodeNoMatchingRule:        KindAllocation,
	CodeInvalidAllocationRule: KindAllocation,
	CodeAllocationSumMismatch: KindAllocation,
	CodePersistenceFailure:    KindInfrastructure,
	CodeLockTimeout:           KindInfrastructure,
	CodeAuditWriteFailed:      KindInfrastructure,
	"CONCURRENCY_CONFLICT":    KindInfrastructure,
	CodeLedgerInconsistency:   KindConsistency,
	"NOT_FOUND":               KindNotFound,
}

// KindOf returns the category of an error code
func KindOf(code string) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindUnknown
}

// KindOfError unwraps err to a DomainError and returns its category
func KindOfError(err error) Kind {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return KindOf(domainErr.Code)
	}
	return KindUnknown
}

// IsRetriable reports whether the failure is transient and the transition may be retried
func IsRetriable(err error) bool {
	return KindOfError(err) == KindInfrastructure
}

var (
	ErrUnbalancedEntry     = shared.NewDomainError(CodeUnbalancedEntry, "Total debits must equal total credits")
	ErrInvalidLine         = shared.NewDomainError(CodeInvalidLine, "Each line must carry exactly one positive debit or credit amount")
	ErrTooFewLines         = shared.NewDomainError(CodeInvalidLine, "A journal entry needs at least two lines")
	ErrUnknownAccount      = shared.NewDomainError(CodeUnknownAccount, "Account does not exist")
	ErrInactiveAccount     = shared.NewDomainError(CodeInactiveAccount, "Account is inactive")
	ErrInvalidHierarchy    = shared.NewDomainError(CodeInvalidHierarchy, "Parent assignment would create a cycle")
	ErrDuplicateCode       = shared.NewDomainError(CodeDuplicateCode, "Account code already exists")
	ErrInvalidType         = shared.NewDomainError(CodeInvalidType, "Account type is not valid")
	ErrInvalidAccountCode  = shared.NewDomainError(CodeInvalidAccountCode, "Account code must be 1-20 characters of [A-Za-z0-9._-]")
	ErrInvalidCurrency     = shared.NewDomainError(CodeInvalidCurrency, "Currency is not a valid ISO 4217 code")
	ErrInvalidPeriod       = shared.NewDomainError(CodeInvalidPeriod, "Period end date must not be before its start date")
	ErrWrongStatus         = shared.NewDomainError(CodeWrongStatus, "Operation not allowed in current status")
	ErrClosedPeriod        = shared.NewDomainError(CodeClosedPeriod, "Entry date does not fall in an open period")
	ErrPeriodClosing       = shared.NewDomainError(CodePeriodClosing, "Period is being closed")
	ErrOverlappingPeriod   = shared.NewDomainError(CodeOverlappingPeriod, "Period overlaps an existing period")
	ErrHasOpenBalance      = shared.NewDomainError(CodeHasOpenBalance, "Account carries a balance in a non-closing currency")
	ErrUnpostedEntries     = shared.NewDomainError(CodeUnpostedEntries, "Period contains entries that are not posted")
	ErrOutOfBalance        = shared.NewDomainError(CodeOutOfBalance, "Trial balance debits do not equal credits")
	ErrTasksIncomplete     = shared.NewDomainError(CodeTasksIncomplete, "Required close tasks are not completed")
	ErrPersistenceFailure  = shared.NewDomainError(CodePersistenceFailure, "Persistence failure")
	ErrLockTimeout         = shared.NewDomainError(CodeLockTimeout, "Timed out waiting for a lock")
	ErrAuditWriteFailed    = shared.NewDomainError(CodeAuditWriteFailed, "Audit record could not be written")
	ErrLedgerInconsistency = shared.NewDomainError(CodeLedgerInconsistency, "Ledger is inconsistent")
)
