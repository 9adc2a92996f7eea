package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScanProduct is the per-product outcome of a single scan run.
type ScanProduct struct {
	ProductID string
	Title     string
	Price     decimal.Decimal
	Alerted   bool
	Skipped   bool
}

// ScanRun is the audit record of one scan invocation.
type ScanRun struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Products   []ScanProduct
}

// Alerts counts the products that triggered a notification in this run.
func (r ScanRun) Alerts() int {
	n := 0
	for _, p := range r.Products {
		if p.Alerted {
			n++
		}
	}
	return n
}
