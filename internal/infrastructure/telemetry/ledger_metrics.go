package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records posting, allocation, close and retention activity.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	entriesPosted   metric.Int64Counter
	postingDuration metric.Float64Histogram
	postingFailures metric.Int64Counter
	allocations     metric.Int64Counter
	periodsClosed   metric.Int64Counter
	retentionRows   metric.Int64Counter
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error
	if m.entriesPosted, err = meter.Int64Counter("ledger.entries.posted",
		metric.WithDescription("Journal entries posted"), metric.WithUnit("{entry}")); err != nil {
		return nil, err
	}
	if m.postingDuration, err = meter.Float64Histogram("ledger.posting.duration",
		metric.WithDescription("Time to post one journal entry"), metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000)); err != nil {
		return nil, err
	}
	if m.postingFailures, err = meter.Int64Counter("ledger.posting.failures",
		metric.WithDescription("Posting attempts rejected, by error code"), metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if m.allocations, err = meter.Int64Counter("ledger.allocations",
		metric.WithDescription("Allocation runs, by outcome"), metric.WithUnit("{run}")); err != nil {
		return nil, err
	}
	if m.periodsClosed, err = meter.Int64Counter("ledger.periods.closed",
		metric.WithDescription("Accounting periods closed"), metric.WithUnit("{period}")); err != nil {
		return nil, err
	}
	if m.retentionRows, err = meter.Int64Counter("ledger.retention.rows",
		metric.WithDescription("Rows touched by retention, by table and action"), metric.WithUnit("{row}")); err != nil {
		return nil, err
	}
	return m, nil
}

// EntryPosted records a successful post
func (m *LedgerMetrics) EntryPosted(ctx context.Context, source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.entriesPosted.Add(ctx, 1, attrs)
	m.postingDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// PostingFailed records a rejected post
func (m *LedgerMetrics) PostingFailed(ctx context.Context, source, code string) {
	if m == nil {
		return
	}
	m.postingFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("code", code),
	))
}

// AllocationRun records an allocation outcome: allocated, skipped or failed
func (m *LedgerMetrics) AllocationRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.allocations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// PeriodClosed records a completed close
func (m *LedgerMetrics) PeriodClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.periodsClosed.Add(ctx, 1)
}

// RetentionRows records rows removed or rewritten by a policy
func (m *LedgerMetrics) RetentionRows(ctx context.Context, table, action string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.retentionRows.Add(ctx, n, metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("action", action),
	))
}
