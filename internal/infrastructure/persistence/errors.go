package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger reacts to
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgLockNotAvailable   = "55P03"
	pgSerializationFail  = "40001"
	pgDeadlockDetected   = "40P01"
)

// sqlState extracts the SQLSTATE from pgx or lib/pq errors
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint failure on any supported driver
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || sqlState(err) == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsLockTimeout reports whether err means a row lock could not be acquired in time
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	switch sqlState(err) {
	case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFail:
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "lock timeout")
}

// TranslateError maps driver failures to ledger error kinds. Domain errors
// pass through unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), IsLockTimeout(err):
		return ledger.ErrLockTimeout.WithDetail("cause", err.Error())
	case sqlState(err) == pgExclusionViolation:
		return ledger.ErrOverlappingPeriod.WithDetail("cause", err.Error())
	case IsUniqueViolation(err):
		return shared.ErrAlreadyExists.WithDetail("cause", err.Error())
	}
	return ledger.ErrPersistenceFailure.WithDetail("cause", err.Error())
}
