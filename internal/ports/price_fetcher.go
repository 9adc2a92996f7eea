package ports

import (
	"context"

	"github.com/bjoelf/price-alert/internal/domain"
)

// PriceFetcher wraps the marketplace item lookup. One synchronous call per
// product; failures propagate to the caller, there is no retry policy here.
type PriceFetcher interface {
	// Lookup returns the product's display title and current price.
	Lookup(ctx context.Context, productID string) (domain.Quote, error)
}
