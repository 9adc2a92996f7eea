package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bjoelf/price-alert/internal/domain"
	"github.com/bjoelf/price-alert/internal/ports"
)

// ScanService drives one daily scan: read the store, fetch current prices
// for the configured products, append observations, persist the merged
// state, then render a chart and send an email for every product whose
// price fell to or below its target.
type ScanService struct {
	store    ports.HistoryStore
	fetcher  ports.PriceFetcher
	renderer ports.ChartRenderer
	notifier ports.Notifier
	journal  ports.ScanJournal
	products []string
	logger   *log.Logger
	now      func() time.Time
}

// NewScanService wires a scan over the given adapters. journal may be nil
// when run auditing is disabled.
func NewScanService(
	store ports.HistoryStore,
	fetcher ports.PriceFetcher,
	renderer ports.ChartRenderer,
	notifier ports.Notifier,
	journal ports.ScanJournal,
	products []string,
	logger *log.Logger,
) *ScanService {
	return &ScanService{
		store:    store,
		fetcher:  fetcher,
		renderer: renderer,
		notifier: notifier,
		journal:  journal,
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one full scan pass. Any lookup, store or delivery failure
// aborts the scan; observations fetched before a failing step but not yet
// written are discarded with it.
func (s *ScanService) Run(ctx context.Context) error {
	startedAt := s.now()
	s.logger.Printf("Starting scan of %d products", len(s.products))

	records, err := s.store.Read()
	if err != nil {
		return fmt.Errorf("failed to read price history: %w", err)
	}

	var batch []domain.PriceUpdate
	var alerts []string
	titles := make(map[string]string, len(s.products))
	run := domain.ScanRun{RunID: uuid.NewString(), StartedAt: startedAt}

	for _, productID := range s.products {
		quote, err := s.fetcher.Lookup(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", productID, err)
		}

		titles[productID] = quote.Title
		obs := domain.Observation{Date: s.now(), Price: quote.Price}
		batch = append(batch, domain.PriceUpdate{ProductID: productID, Observation: obs})

		alerted := false
		if record, ok := records[productID]; ok {
			// Boundary included: a price equal to the target triggers.
			alerted = quote.Price.LessThanOrEqual(record.Target)
		}
		if alerted {
			alerts = append(alerts, productID)
			s.logger.Printf("Alert condition met for %s (%s at %s)", productID, quote.Title, quote.Price.StringFixed(2))
		}

		run.Products = append(run.Products, domain.ScanProduct{
			ProductID: productID,
			Title:     quote.Title,
			Price:     quote.Price,
			Alerted:   alerted,
		})
	}

	results := s.store.Update(batch, records)
	skipped := make(map[string]bool)
	for _, result := range results {
		if result.Status == domain.UpdateSkippedUnregistered {
			skipped[result.ProductID] = true
			s.logger.Printf("Product %s was skipped: it has not been registered with an alert price", result.ProductID)
		}
	}
	for i := range run.Products {
		run.Products[i].Skipped = skipped[run.Products[i].ProductID]
	}

	if err := s.store.Write(records); err != nil {
		return fmt.Errorf("failed to write price history: %w", err)
	}

	for _, productID := range alerts {
		chartPath, err := s.renderer.Render(productID, titles[productID], records[productID].History)
		if err != nil {
			return fmt.Errorf("failed to render chart for %s: %w", productID, err)
		}
		if err := s.notifier.Send(ctx, titles[productID], chartPath); err != nil {
			return fmt.Errorf("failed to notify for %s: %w", productID, err)
		}
		s.logger.Printf("Alert sent for %s (%s)", productID, titles[productID])
	}

	run.FinishedAt = s.now()
	if s.journal != nil {
		if err := s.journal.RecordRun(ctx, run); err != nil {
			s.logger.Printf("Journal error (scan unaffected): %v", err)
		}
	}

	s.logger.Printf("Scan complete: %d products, %d alerts", len(s.products), len(alerts))
	return nil
}
