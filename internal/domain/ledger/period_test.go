package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNewAccountingPeriod(t *testing.T) {
	_, err := NewAccountingPeriod(uuid.New(), "bad", PeriodTypeMonth, date(2024, 2, 1), date(2024, 1, 31))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	p, err := NewAccountingPeriod(uuid.New(), "Single day", PeriodTypeCustom, date(2024, 1, 31), date(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, p.Contains(date(2024, 1, 31)))
}

func TestAccountingPeriod_ContainsAndOverlaps(t *testing.T) {
	p, err := NewAccountingPeriod(uuid.New(), "Jan", PeriodTypeMonth, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	assert.True(t, p.Contains(date(2024, 1, 1)))
	assert.True(t, p.Contains(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(date(2024, 2, 1)))

	assert.True(t, p.Overlaps(date(2024, 1, 31), date(2024, 2, 28)))
	assert.True(t, p.Overlaps(date(2023, 12, 1), date(2024, 1, 1)))
	assert.False(t, p.Overlaps(date(2024, 2, 1), date(2024, 2, 29)))
}

func TestAccountingPeriod_CloseLifecycle(t *testing.T) {
	p, _ := NewAccountingPeriod(uuid.New(), "Jan", PeriodTypeMonth, date(2024, 1, 1), date(2024, 1, 31))

	assert.NoError(t, p.CheckPostable(false))
	assert.ErrorIs(t, p.Close(uuid.New(), nil), ErrWrongStatus)

	require.NoError(t, p.BeginClose())
	assert.ErrorIs(t, p.CheckPostable(false), ErrPeriodClosing)
	assert.NoError(t, p.CheckPostable(true))
	assert.ErrorIs(t, p.BeginClose(), ErrWrongStatus)

	entryID := uuid.New()
	require.NoError(t, p.Close(uuid.New(), &entryID))
	assert.Equal(t, PeriodStatusClosed, p.Status)
	assert.ErrorIs(t, p.CheckPostable(false), ErrClosedPeriod)
	assert.ErrorIs(t, p.CheckPostable(true), ErrClosedPeriod)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	closed, ok := events[0].(*PeriodClosedEvent)
	require.True(t, ok)
	assert.Equal(t, entryID, *closed.ClosingEntryID)
}

func TestCloseProcess(t *testing.T) {
	cp := NewCloseProcess(uuid.New(), uuid.New(), uuid.New())
	require.Len(t, cp.Tasks, 7)
	assert.Equal(t, TaskReviewEntries, cp.Tasks[0].Code)
	assert.Equal(t, TaskFinalReview, cp.Tasks[6].Code)
	assert.True(t, cp.Tasks[2].Automated)
	assert.False(t, cp.Tasks[0].Automated)

	assert.ErrorIs(t, cp.Finish(uuid.New(), nil), ErrTasksIncomplete)

	task, err := cp.Task(cp.Tasks[2].ID)
	require.NoError(t, err)
	require.NoError(t, task.Start())
	require.NoError(t, task.Fail("boom"))
	assert.Equal(t, TaskStatusFailed, cp.Tasks[2].Status)
	require.NoError(t, task.Start(), "failed tasks can be re-run")

	for i := range cp.Tasks {
		tk := &cp.Tasks[i]
		if tk.Status == TaskStatusPending {
			require.NoError(t, tk.Start())
		}
		require.NoError(t, tk.Complete(uuid.New(), "ok"))
	}
	require.NoError(t, cp.Finish(uuid.New(), nil))
	assert.Equal(t, CloseStatusClosed, cp.Status)
}
