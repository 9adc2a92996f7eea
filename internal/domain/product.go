package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the calendar-day layout used for observation dates, both in
// the store file and on chart axis labels.
const DateFormat = "2006-01-02"

// Observation is a single (date, price) data point for a product. Once
// appended to a record's history it is never removed or reordered.
type Observation struct {
	Date  time.Time
	Price decimal.Decimal
}

// ProductRecord holds everything the store knows about one tracked product:
// the alert target resolved at registration time and the full price history,
// ordered by append time.
type ProductRecord struct {
	ID      string
	Target  decimal.Decimal
	History []Observation
}

// Quote is the result of a marketplace lookup for a single product.
type Quote struct {
	Title    string
	Price    decimal.Decimal
	Currency string
}

// PriceUpdate carries one freshly fetched observation into a store merge.
type PriceUpdate struct {
	ProductID   string
	Observation Observation
}

// UpdateStatus reports what a merge did with one PriceUpdate.
type UpdateStatus int

const (
	// UpdateApplied means the observation was appended to an existing record.
	UpdateApplied UpdateStatus = iota
	// UpdateSkippedUnregistered means the product has no record in the store.
	// Only registration creates records; daily updates never do.
	UpdateSkippedUnregistered
)

// UpdateResult is the per-observation outcome of a store merge.
type UpdateResult struct {
	ProductID string
	Status    UpdateStatus
}
