package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/bjoelf/price-alert/internal/domain"
)

// SQLiteScanJournal implements ScanJournal on a local sqlite database.
// One row per run in scans, one row per scanned product in scan_products.
type SQLiteScanJournal struct {
	db *sqlx.DB
}

// NewSQLiteScanJournal opens (or creates) the journal database at path.
func NewSQLiteScanJournal(path string) (*SQLiteScanJournal, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal %s: %w", path, err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS scans(
  run_id      TEXT PRIMARY KEY,
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  products    INTEGER NOT NULL,
  alerts      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_products(
  run_id     TEXT NOT NULL REFERENCES scans(run_id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  title      TEXT NOT NULL,
  price      TEXT NOT NULL,
  alerted    INTEGER NOT NULL,
  skipped    INTEGER NOT NULL,
  PRIMARY KEY (run_id, product_id)
);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &SQLiteScanJournal{db: db}, nil
}

type scanRow struct {
	RunID      string `db:"run_id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Products   int    `db:"products"`
	Alerts     int    `db:"alerts"`
}

type scanProductRow struct {
	RunID     string `db:"run_id"`
	ProductID string `db:"product_id"`
	Title     string `db:"title"`
	Price     string `db:"price"`
	Alerted   bool   `db:"alerted"`
	Skipped   bool   `db:"skipped"`
}

// RecordRun persists one scan run and its per-product outcomes in a single
// transaction.
func (j *SQLiteScanJournal) RecordRun(ctx context.Context, run domain.ScanRun) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (run_id, started_at, finished_at, products, alerts)
		 VALUES (?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		len(run.Products),
		run.Alerts(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", run.RunID, err)
	}

	for _, p := range run.Products {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scan_products (run_id, product_id, title, price, alerted, skipped)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, p.ProductID, p.Title, p.Price.StringFixed(2), p.Alerted, p.Skipped,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scan product %s: %w", p.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal tx: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first, with their
// per-product outcomes attached.
func (j *SQLiteScanJournal) RecentRuns(ctx context.Context, limit int) ([]domain.ScanRun, error) {
	var rows []scanRow
	err := j.db.SelectContext(ctx, &rows,
		`SELECT run_id, started_at, finished_at, products, alerts
		 FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}

	runs := make([]domain.ScanRun, 0, len(rows))
	for _, row := range rows {
		run, err := j.loadRun(ctx, row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (j *SQLiteScanJournal) loadRun(ctx context.Context, row scanRow) (domain.ScanRun, error) {
	startedAt, err := time.Parse(time.RFC3339, row.StartedAt)
	if err != nil {
		return domain.ScanRun{}, fmt.Errorf("failed to parse started_at for %s: %w", row.RunID, err)
	}
	finishedAt, err := time.Parse(time.RFC3339, row.FinishedAt)
	if err != nil {
		return domain.ScanRun{}, fmt.Errorf("failed to parse finished_at for %s: %w", row.RunID, err)
	}

	var productRows []scanProductRow
	err = j.db.SelectContext(ctx, &productRows,
		`SELECT run_id, product_id, title, price, alerted, skipped
		 FROM scan_products WHERE run_id = ? ORDER BY product_id`, row.RunID)
	if err != nil {
		return domain.ScanRun{}, fmt.Errorf("failed to query scan products for %s: %w", row.RunID, err)
	}

	run := domain.ScanRun{RunID: row.RunID, StartedAt: startedAt, FinishedAt: finishedAt}
	for _, pr := range productRows {
		price, err := decimal.NewFromString(pr.Price)
		if err != nil {
			return domain.ScanRun{}, fmt.Errorf("failed to parse journaled price %q: %w", pr.Price, err)
		}
		run.Products = append(run.Products, domain.ScanProduct{
			ProductID: pr.ProductID,
			Title:     pr.Title,
			Price:     price,
			Alerted:   pr.Alerted,
			Skipped:   pr.Skipped,
		})
	}
	return run, nil
}

// Close releases the underlying database handle.
func (j *SQLiteScanJournal) Close() error {
	return j.db.Close()
}
