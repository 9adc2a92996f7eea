package ports

import (
	"context"

	"github.com/bjoelf/price-alert/internal/domain"
)

// ScanJournal records an audit trail of scan runs. Journal failures must
// never fail a scan; callers log and continue.
type ScanJournal interface {
	// RecordRun persists one completed scan run with its per-product outcomes.
	RecordRun(ctx context.Context, run domain.ScanRun) error

	// RecentRuns returns up to limit runs, most recent first.
	RecentRuns(ctx context.Context, limit int) ([]domain.ScanRun, error)

	// Close releases the underlying storage.
	Close() error
}
