package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/unitofwork"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestDatabase_Ping(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	// GORM may ping during Open
	mock.ExpectPing()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)
	db := &Database{DB: gormDB}

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "accounts" SET "current_balance"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Exec(`UPDATE "accounts" SET "current_balance" = 0`).Error
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// lockQuery is the statement LockForUpdate issues for two accounts
const lockQuery = `SELECT \* FROM "accounts" WHERE tenant_id = \$1 AND id IN \(\$2,\$3\) ORDER BY id ASC FOR UPDATE`

func lockTwo(tenantID uuid.UUID, ids ...uuid.UUID) func(context.Context, unitofwork.Repositories) error {
	return func(ctx context.Context, repos unitofwork.Repositories) error {
		_, err := repos.Accounts().LockForUpdate(ctx, tenantID, ids)
		return err
	}
}

func TestUnitOfWork_LockTimeoutAndOrder(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout = '250ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WithArgs(tenantID.String(), low.String(), high.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	uow := NewGormUnitOfWork(db.DB, nil, WithLockTimeout(250*time.Millisecond))
	err := uow.Do(context.Background(), lockTwo(tenantID, high, low))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "locks are taken in ascending id order whatever the input order")
}

func TestUnitOfWork_NoLockTimeoutByDefault(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	uow := NewGormUnitOfWork(db.DB, nil)
	require.NoError(t, uow.Do(context.Background(), lockTwo(uuid.New(), uuid.New(), uuid.New())))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_LockNotAvailableIsRetriable(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	uow := NewGormUnitOfWork(db.DB, nil, WithLockTimeout(time.Second))
	err := uow.Do(context.Background(), lockTwo(uuid.New(), uuid.New(), uuid.New()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrLockTimeout)
	assert.True(t, ledger.IsRetriable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_DomainErrorRollsBack(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	uow := NewGormUnitOfWork(db.DB, nil)
	err := uow.Do(context.Background(), func(context.Context, unitofwork.Repositories) error {
		return ledger.ErrUnbalancedEntry
	})
	assert.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	assert.Equal(t, ledger.KindValidation, ledger.KindOfError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, shared.ErrAlreadyExists},
		{"pq exclusion", &pq.Error{Code: "23P01"}, ledger.ErrOverlappingPeriod},
		{"sqlite unique", errors.New("UNIQUE constraint failed: accounts.code"), shared.ErrAlreadyExists},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ledger.ErrLockTimeout},
		{"sqlite busy", errors.New("database is locked"), ledger.ErrLockTimeout},
		{"deadline", context.DeadlineExceeded, ledger.ErrLockTimeout},
		{"anything else", errors.New("connection reset"), ledger.ErrPersistenceFailure},
		{"domain error passes through", ledger.ErrClosedPeriod, ledger.ErrClosedPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, TranslateError(tt.err), tt.want)
		})
	}
	assert.NoError(t, TranslateError(nil))
}

func TestPeriodRepository_LockByDateTakesShareLock(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "accounting_periods" WHERE tenant_id = \$1 AND start_date <= \$2 AND end_date >= \$3 ORDER BY .+ FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "label", "period_type", "start_date", "end_date", "status"}).
			AddRow(uuid.NewString(), tenantID.String(), "2026-01", "MONTH", start, end, "OPEN"))

	repo := NewGormPeriodRepository(db.DB)
	period, err := repo.LockByDate(context.Background(), tenantID, time.Date(2026, 1, 15, 13, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, ledger.PeriodStatusOpen, period.Status)
	assert.Equal(t, "2026-01", period.Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepository_CreateOverlapRejectedByConstraint(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectExec(`INSERT INTO "accounting_periods"`).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "excl_periods_tenant_range"})

	period, err := ledger.NewAccountingPeriod(uuid.New(), "2026-Q1", ledger.PeriodTypeQuarter,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	err = NewGormPeriodRepository(db.DB).Create(context.Background(), period)
	require.ErrorIs(t, err, ledger.ErrOverlappingPeriod)
	assert.Equal(t, ledger.KindState, ledger.KindOfError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
