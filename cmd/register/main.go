package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bjoelf/price-alert/internal/adapters/market"
	"github.com/bjoelf/price-alert/internal/adapters/storage"
	"github.com/bjoelf/price-alert/internal/config"
	"github.com/bjoelf/price-alert/internal/domain"
	"github.com/bjoelf/price-alert/internal/services"
)

// register adds a product to the tracked set, resolving its alert criterion
// against the current marketplace price. It can also show recent scan runs
// from the journal.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	productID := flag.String("id", "", "marketplace product identifier to register")
	percent := flag.String("percent", "", "alert when the price changes by this percentage of the current price")
	price := flag.String("price", "", "alert when the price falls to or below this absolute value")
	history := flag.Int("history", 0, "show the last N scan runs from the journal and exit")
	flag.Parse()

	logger := log.New(os.Stdout, "[PRICE-ALERT] ", log.LstdFlags|log.Lmsgprefix)

	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *history > 0 {
		return showHistory(cfg, *history)
	}

	if *productID == "" {
		flag.Usage()
		return fmt.Errorf("-id is required")
	}
	criterion, err := buildCriterion(*percent, *price)
	if err != nil {
		return err
	}
	if err := cfg.ValidateMarket(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registerService := services.NewRegisterService(
		storage.NewCSVHistoryStore(cfg.StorePath),
		market.NewClient(market.Config{
			Endpoint:    cfg.MarketEndpoint,
			Region:      cfg.MarketRegion,
			AccessKey:   cfg.MarketAccessKey,
			SecretKey:   cfg.MarketSecretKey,
			PartnerTag:  cfg.MarketPartnerTag,
			Marketplace: cfg.Marketplace,
		}),
		logger,
	)

	record, err := registerService.Add(context.Background(), *productID, criterion)
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s with target price %s\n", record.ID, record.Target.StringFixed(2))
	return nil
}

// buildCriterion maps the mutually exclusive -percent / -price flags onto an
// alert criterion.
func buildCriterion(percent, price string) (domain.AlertCriterion, error) {
	switch {
	case percent != "" && price != "":
		return domain.AlertCriterion{}, fmt.Errorf("-percent and -price are mutually exclusive")
	case percent != "":
		value, err := decimal.NewFromString(percent)
		if err != nil {
			return domain.AlertCriterion{}, fmt.Errorf("invalid -percent value %q: %w", percent, err)
		}
		return domain.AlertCriterion{Kind: domain.CriterionPercentChange, Value: value}, nil
	case price != "":
		value, err := decimal.NewFromString(price)
		if err != nil {
			return domain.AlertCriterion{}, fmt.Errorf("invalid -price value %q: %w", price, err)
		}
		return domain.AlertCriterion{Kind: domain.CriterionDesiredPrice, Value: value}, nil
	default:
		return domain.AlertCriterion{}, fmt.Errorf("one of -percent or -price is required")
	}
}

func showHistory(cfg config.Config, limit int) error {
	if cfg.JournalPath == "" {
		return fmt.Errorf("JOURNAL_PATH is not configured")
	}

	journal, err := storage.NewSQLiteScanJournal(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open scan journal: %w", err)
	}
	defer journal.Close()

	runs, err := journal.RecentRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No scan runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %d products, %d alerts (took %s)\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			len(run.Products), run.Alerts(), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
		for _, p := range run.Products {
			status := "ok"
			if p.Skipped {
				status = "skipped (unregistered)"
			} else if p.Alerted {
				status = "ALERT"
			}
			fmt.Printf("    %-12s %-10s %s  %s\n", p.ProductID, p.Price.StringFixed(2), status, p.Title)
		}
	}
	return nil
}
