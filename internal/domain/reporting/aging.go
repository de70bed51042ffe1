package reporting

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgingKind selects payables or receivables
type AgingKind string

const (
	AgingPayables    AgingKind = "AP"
	AgingReceivables AgingKind = "AR"
)

// Bucket is a days-past-due band
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket1To30   Bucket = "1-30"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	BucketOver90  Bucket = "90+"
)

// Buckets in display order
var Buckets = []Bucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// BucketFor places days past due in a band
func BucketFor(daysPastDue int) Bucket {
	switch {
	case daysPastDue <= 0:
		return BucketCurrent
	case daysPastDue <= 30:
		return Bucket1To30
	case daysPastDue <= 60:
		return Bucket31To60
	case daysPastDue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// AgingItem is an open document
type AgingItem struct {
	DocumentID  uuid.UUID       `json:"document_id"`
	Number      string          `json:"number"`
	Party       string          `json:"party"`
	DueDate     time.Time       `json:"due_date"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// AgingRow is an item placed in a bucket
type AgingRow struct {
	AgingItem
	DaysPastDue int    `json:"days_past_due"`
	Bucket      Bucket `json:"bucket"`
}

// AgingReport groups open payables or receivables by days past due
type AgingReport struct {
	Header
	Kind   AgingKind                  `json:"kind"`
	Rows   []AgingRow                 `json:"rows"`
	Totals map[Bucket]decimal.Decimal `json:"totals"`
	Total  decimal.Decimal            `json:"total"`
}

// BuildAging buckets open items as of a date
func BuildAging(tenantID uuid.UUID, kind AgingKind, asOf time.Time, items []AgingItem) *AgingReport {
	day := ledger.CivilDate(asOf)
	r := &AgingReport{
		Header: Header{TenantID: tenantID, AsOf: &day, GeneratedAt: time.Now().UTC()},
		Kind:   kind,
		Totals: make(map[Bucket]decimal.Decimal, len(Buckets)),
		Total:  decimal.Zero,
	}
	for _, b := range Buckets {
		r.Totals[b] = decimal.Zero
	}
	for _, it := range items {
		if !it.Outstanding.IsPositive() {
			continue
		}
		days := int(day.Sub(ledger.CivilDate(it.DueDate)).Hours() / 24)
		b := BucketFor(days)
		r.Rows = append(r.Rows, AgingRow{AgingItem: it, DaysPastDue: days, Bucket: b})
		r.Totals[b] = r.Totals[b].Add(it.Outstanding)
		r.Total = r.Total.Add(it.Outstanding)
	}
	return r
}
