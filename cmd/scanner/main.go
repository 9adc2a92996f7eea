package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/bjoelf/price-alert/internal/adapters/chart"
	"github.com/bjoelf/price-alert/internal/adapters/email"
	"github.com/bjoelf/price-alert/internal/adapters/market"
	"github.com/bjoelf/price-alert/internal/adapters/storage"
	"github.com/bjoelf/price-alert/internal/config"
	"github.com/bjoelf/price-alert/internal/ports"
	"github.com/bjoelf/price-alert/internal/services"
)

// scanner runs one daily scan and exits. It is designed to be invoked by an
// external scheduler (cron); only one scan may run at a time since the store
// file has no locking.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	logger := log.New(os.Stdout, "[PRICE-ALERT] ", log.LstdFlags|log.Lmsgprefix)
	logger.Println("=== Price Alert Scanner Starting ===")

	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateMarket(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ValidateMail(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	products, err := loadProducts(cfg.ProductsPath)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	logger.Printf("Loaded %d products from %s", len(products), cfg.ProductsPath)

	var journal ports.ScanJournal
	if cfg.JournalPath != "" {
		sqlJournal, err := storage.NewSQLiteScanJournal(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open scan journal: %w", err)
		}
		defer sqlJournal.Close()
		journal = sqlJournal
	}

	scanService := services.NewScanService(
		storage.NewCSVHistoryStore(cfg.StorePath),
		market.NewClient(market.Config{
			Endpoint:    cfg.MarketEndpoint,
			Region:      cfg.MarketRegion,
			AccessKey:   cfg.MarketAccessKey,
			SecretKey:   cfg.MarketSecretKey,
			PartnerTag:  cfg.MarketPartnerTag,
			Marketplace: cfg.Marketplace,
		}),
		chart.NewLineRenderer(cfg.ChartDir),
		email.NewSMTPNotifier(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			To:       cfg.MailTo,
		}),
		journal,
		products,
		logger,
	)

	if err := scanService.Run(context.Background()); err != nil {
		return err
	}

	logger.Println("=== Price Alert Scanner Done ===")
	return nil
}

// product is a tracked product entry from the products JSON file.
type product struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// loadProducts loads the tracked product identifiers from a JSON file.
func loadProducts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed struct {
		Products []product `json:"products"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if len(parsed.Products) == 0 {
		return nil, fmt.Errorf("no products found")
	}

	ids := make([]string, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("product entry with empty id")
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}
