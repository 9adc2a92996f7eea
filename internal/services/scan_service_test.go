package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bjoelf/price-alert/internal/adapters/storage"
	"github.com/bjoelf/price-alert/internal/domain"
)

type fakeFetcher struct {
	quotes map[string]domain.Quote
	err    error
}

func (f *fakeFetcher) Lookup(ctx context.Context, productID string) (domain.Quote, error) {
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	quote, ok := f.quotes[productID]
	if !ok {
		return domain.Quote{}, fmt.Errorf("no quote for %s", productID)
	}
	return quote, nil
}

type renderCall struct {
	productID string
	title     string
	points    int
}

type fakeRenderer struct {
	dir   string
	calls []renderCall
}

func (f *fakeRenderer) Render(productID, title string, history []domain.Observation) (string, error) {
	f.calls = append(f.calls, renderCall{productID: productID, title: title, points: len(history)})
	path := filepath.Join(f.dir, productID+".png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type sentMail struct {
	title     string
	imagePath string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, productTitle, imagePath string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{title: productTitle, imagePath: imagePath})
	return nil
}

func quote(t *testing.T, title, price string) domain.Quote {
	t.Helper()
	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("bad price %q: %v", price, err)
	}
	return domain.Quote{Title: title, Price: p, Currency: "USD"}
}

func fixedDay(t *testing.T, date string) func() time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	return func() time.Time { return d }
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "[TEST] ", log.LstdFlags)
}

func newScanFixture(t *testing.T, storeContent string, products []string, fetcher *fakeFetcher) (*ScanService, string, *fakeRenderer, *fakeNotifier) {
	t.Helper()
	tmpDir := t.TempDir()
	storePath := filepath.Join(tmpDir, "priceHistory.csv")
	if storeContent != "" {
		if err := os.WriteFile(storePath, []byte(storeContent), 0644); err != nil {
			t.Fatalf("Failed to seed store: %v", err)
		}
	}

	renderer := &fakeRenderer{dir: tmpDir}
	notifier := &fakeNotifier{}
	svc := NewScanService(
		storage.NewCSVHistoryStore(storePath),
		fetcher,
		renderer,
		notifier,
		nil,
		products,
		testLogger(),
	)
	return svc, storePath, renderer, notifier
}

func TestScanService_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{quotes: map[string]domain.Quote{
		"B001": quote(t, "Widget Deluxe", "89.50"),
	}}
	svc, storePath, renderer, notifier := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00\n", []string{"B001"}, fetcher)
	svc.now = fixedDay(t, "2024-01-02")

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	content, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	want := "B001|90.00,2024-01-01|95.00,2024-01-02|89.50\n"
	if string(content) != want {
		t.Errorf("Store = %q, want %q", string(content), want)
	}

	if len(renderer.calls) != 1 {
		t.Fatalf("Expected 1 chart render, got %d", len(renderer.calls))
	}
	if renderer.calls[0].productID != "B001" || renderer.calls[0].points != 2 {
		t.Errorf("Render call = %+v, want B001 with 2 points", renderer.calls[0])
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("Expected 1 email, got %d", len(notifier.sent))
	}
	if notifier.sent[0].title != "Widget Deluxe" {
		t.Errorf("Email title = %q, want %q", notifier.sent[0].title, "Widget Deluxe")
	}
}

func TestScanService_AlertAtBoundary(t *testing.T) {
	fetcher := &fakeFetcher{quotes: map[string]domain.Quote{
		"B001": quote(t, "Widget", "90.00"),
	}}
	svc, _, _, notifier := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00\n", []string{"B001"}, fetcher)
	svc.now = fixedDay(t, "2024-01-02")

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("Price equal to target must trigger an alert, got %d emails", len(notifier.sent))
	}
}

func TestScanService_NoAlertAboveTarget(t *testing.T) {
	fetcher := &fakeFetcher{quotes: map[string]domain.Quote{
		"B001": quote(t, "Widget", "90.01"),
	}}
	svc, storePath, renderer, notifier := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00\n", []string{"B001"}, fetcher)
	svc.now = fixedDay(t, "2024-01-02")

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(renderer.calls) != 0 {
		t.Errorf("Expected no chart render, got %d", len(renderer.calls))
	}
	if len(notifier.sent) != 0 {
		t.Errorf("Expected no email, got %d", len(notifier.sent))
	}

	// The observation is still appended even without an alert.
	records, err := storage.NewCSVHistoryStore(storePath).Read()
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	if len(records["B001"].History) != 2 {
		t.Errorf("B001 history length = %d, want 2", len(records["B001"].History))
	}
}

func TestScanService_UnregisteredProductSkipped(t *testing.T) {
	fetcher := &fakeFetcher{quotes: map[string]domain.Quote{
		"B001": quote(t, "Widget", "95.50"),
		"B999": quote(t, "Gadget", "5.00"),
	}}
	svc, storePath, _, notifier := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00\n", []string{"B001", "B999"}, fetcher)
	svc.now = fixedDay(t, "2024-01-02")

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Scan must not fail on an unregistered product: %v", err)
	}

	if len(notifier.sent) != 0 {
		t.Errorf("Unregistered product must never alert, got %d emails", len(notifier.sent))
	}

	records, err := storage.NewCSVHistoryStore(storePath).Read()
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	if _, ok := records["B999"]; ok {
		t.Error("Scan must not create a record for an unregistered product")
	}
	if len(records["B001"].History) != 2 {
		t.Errorf("B001 history length = %d, want 2", len(records["B001"].History))
	}
}

func TestScanService_AppendOnly(t *testing.T) {
	fetcher := &fakeFetcher{quotes: map[string]domain.Quote{
		"B001": quote(t, "Widget", "94.00"),
	}}
	svc, storePath, _, _ := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00,2024-01-02|93.00\n", []string{"B001"}, fetcher)
	svc.now = fixedDay(t, "2024-01-03")

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	records, err := storage.NewCSVHistoryStore(storePath).Read()
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	history := records["B001"].History
	if len(history) != 3 {
		t.Fatalf("History length = %d, want 3 (exactly one appended)", len(history))
	}
	// Earlier observations keep their order and values.
	if !history[0].Price.Equal(decimal.RequireFromString("95.00")) ||
		!history[1].Price.Equal(decimal.RequireFromString("93.00")) ||
		!history[2].Price.Equal(decimal.RequireFromString("94.00")) {
		t.Errorf("History reordered or mutated: %+v", history)
	}
}

func TestScanService_LookupFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("marketplace unavailable")}
	svc, storePath, _, _ := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00\n", []string{"B001"}, fetcher)
	svc.now = fixedDay(t, "2024-01-02")

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("Expected scan to fail on lookup error")
	}

	// Nothing was persisted for the aborted run.
	content, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	if string(content) != "B001|90.00,2024-01-01|95.00\n" {
		t.Errorf("Store must be untouched after an aborted scan, got %q", string(content))
	}
}

func TestScanService_JournalRecordsRun(t *testing.T) {
	fetcher := &fakeFetcher{quotes: map[string]domain.Quote{
		"B001": quote(t, "Widget", "89.50"),
		"B999": quote(t, "Gadget", "5.00"),
	}}
	svc, _, _, _ := newScanFixture(t,
		"B001|90.00,2024-01-01|95.00\n", []string{"B001", "B999"}, fetcher)
	svc.now = fixedDay(t, "2024-01-02")

	journal, err := storage.NewSQLiteScanJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	defer journal.Close()
	svc.journal = journal

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	runs, err := journal.RecentRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 journaled run, got %d", len(runs))
	}
	run := runs[0]
	if len(run.Products) != 2 {
		t.Fatalf("Expected 2 journaled products, got %d", len(run.Products))
	}
	if run.Alerts() != 1 {
		t.Errorf("Journaled alerts = %d, want 1", run.Alerts())
	}
	for _, p := range run.Products {
		switch p.ProductID {
		case "B001":
			if !p.Alerted || p.Skipped {
				t.Errorf("B001 journal row = %+v, want alerted and not skipped", p)
			}
		case "B999":
			if p.Alerted || !p.Skipped {
				t.Errorf("B999 journal row = %+v, want skipped and not alerted", p)
			}
		default:
			t.Errorf("Unexpected journaled product %s", p.ProductID)
		}
	}
}
