package services

import (
	"context"
	"fmt"
	"log"

	"github.com/bjoelf/price-alert/internal/domain"
	"github.com/bjoelf/price-alert/internal/ports"
)

// RegisterService adds products to the tracked set. Registration is the only
// operation that creates a store record; daily scans never do.
type RegisterService struct {
	store   ports.HistoryStore
	fetcher ports.PriceFetcher
	logger  *log.Logger
}

// NewRegisterService wires registration over the store and marketplace lookup.
func NewRegisterService(store ports.HistoryStore, fetcher ports.PriceFetcher, logger *log.Logger) *RegisterService {
	return &RegisterService{store: store, fetcher: fetcher, logger: logger}
}

// Add looks up the product's current price, resolves the criterion to an
// absolute target and appends the new record to the store. The target is
// fixed from here on; scans only compare against it.
func (s *RegisterService) Add(ctx context.Context, productID string, criterion domain.AlertCriterion) (domain.ProductRecord, error) {
	quote, err := s.fetcher.Lookup(ctx, productID)
	if err != nil {
		return domain.ProductRecord{}, fmt.Errorf("failed to look up %s: %w", productID, err)
	}

	target, err := criterion.ResolveTarget(quote.Price)
	if err != nil {
		return domain.ProductRecord{}, err
	}

	record := domain.ProductRecord{ID: productID, Target: target}
	if err := s.store.Append(record); err != nil {
		return domain.ProductRecord{}, fmt.Errorf("failed to register %s: %w", productID, err)
	}

	s.logger.Printf("Registered %s (%s) with target %s (current price %s)",
		productID, quote.Title, target.StringFixed(2), quote.Price.StringFixed(2))
	return record, nil
}
