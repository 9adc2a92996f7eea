package ports

import (
	"github.com/bjoelf/price-alert/internal/domain"
)

// HistoryStore handles persistence of product targets and price history.
// The full record set is held in memory while a scan runs and flushed back
// in a single write; only one scan may run at a time.
type HistoryStore interface {
	// Read parses the persisted store into its in-memory representation.
	// A store that does not exist yet reads as empty.
	Read() (map[string]*domain.ProductRecord, error)

	// Write serializes the complete record set back to storage, replacing
	// prior contents entirely. Callers pass the fully merged state.
	Write(records map[string]*domain.ProductRecord) error

	// Append adds a single newly registered record without rewriting the
	// rest of the store.
	Append(record domain.ProductRecord) error

	// Update merges fetched observations into records in place and reports,
	// per observation, whether it was applied or skipped because the product
	// was never registered. A skip is a reported condition, not an error.
	Update(batch []domain.PriceUpdate, records map[string]*domain.ProductRecord) []domain.UpdateResult
}
