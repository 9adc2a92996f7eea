package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bjoelf/price-alert/internal/domain"
)

// ErrMalformedRecord is returned when a store line does not match the
// expected productID|target,date|price,... layout. Malformed input is
// rejected outright rather than coerced.
var ErrMalformedRecord = errors.New("malformed store record")

// CSVHistoryStore implements HistoryStore on a flat line-oriented file.
// Line format: productID|target,date1|price1,date2|price2,...
// Observations are comma separated; '|' splits each field pair.
//
// The store has no locking discipline: concurrent scans would race on the
// read-modify-write cycle. Only one scan may run at a time.
type CSVHistoryStore struct {
	path string
}

// NewCSVHistoryStore creates a store backed by the file at path. The file
// does not need to exist yet; a missing file reads as an empty store.
func NewCSVHistoryStore(path string) *CSVHistoryStore {
	return &CSVHistoryStore{path: path}
}

// Read parses the whole store file. Lines with a wrong field count or an
// unparseable date or price fail the read with a line-numbered error
// wrapping ErrMalformedRecord.
func (s *CSVHistoryStore) Read() (map[string]*domain.ProductRecord, error) {
	records := make(map[string]*domain.ProductRecord)

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to open store %s: %w", s.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		record, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records[record.ID] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", s.path, err)
	}

	return records, nil
}

// Write serializes the full record set, one line per product, replacing the
// file contents entirely. The rewrite goes through a temp file and rename so
// a crash mid-write cannot leave a half-written store. Lines are ordered by
// product ID to keep the output stable across runs.
func (s *CSVHistoryStore) Write(records map[string]*domain.ProductRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	buf := bufio.NewWriter(tmp)
	for _, id := range ids {
		if _, err := buf.WriteString(formatRecord(records[id]) + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write record for %s: %w", id, err)
		}
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp store file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store %s: %w", s.path, err)
	}
	return nil
}

// Append adds one record line to the store without touching the rest of the
// file. This is the registration path; the record usually has no history yet.
func (s *CSVHistoryStore) Append(record domain.ProductRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open store %s: %w", s.path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(formatRecord(&record) + "\n"); err != nil {
		return fmt.Errorf("failed to append record for %s: %w", record.ID, err)
	}
	return nil
}

// Update merges fetched observations into records in place. An observation
// for a product without a record is skipped, never inserted: registration is
// the only way a record comes into existence.
func (s *CSVHistoryStore) Update(batch []domain.PriceUpdate, records map[string]*domain.ProductRecord) []domain.UpdateResult {
	results := make([]domain.UpdateResult, 0, len(batch))
	for _, update := range batch {
		record, ok := records[update.ProductID]
		if !ok {
			results = append(results, domain.UpdateResult{
				ProductID: update.ProductID,
				Status:    domain.UpdateSkippedUnregistered,
			})
			continue
		}
		record.History = append(record.History, update.Observation)
		results = append(results, domain.UpdateResult{
			ProductID: update.ProductID,
			Status:    domain.UpdateApplied,
		})
	}
	return results
}

func parseRecord(line string) (*domain.ProductRecord, error) {
	fields := strings.Split(line, ",")

	head := strings.Split(fields[0], "|")
	if len(head) != 2 || head[0] == "" {
		return nil, fmt.Errorf("%w: bad header field %q", ErrMalformedRecord, fields[0])
	}
	target, err := decimal.NewFromString(head[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad target price %q", ErrMalformedRecord, head[1])
	}

	record := &domain.ProductRecord{ID: head[0], Target: target}
	for _, field := range fields[1:] {
		pair := strings.Split(field, "|")
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: bad observation field %q", ErrMalformedRecord, field)
		}
		date, err := time.Parse(domain.DateFormat, pair[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad observation date %q", ErrMalformedRecord, pair[0])
		}
		price, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad observation price %q", ErrMalformedRecord, pair[1])
		}
		record.History = append(record.History, domain.Observation{Date: date, Price: price})
	}

	return record, nil
}

// Prices are serialized with two decimal places. Marketplace prices are
// currency amounts, and a fixed rendering keeps lines byte-stable across a
// read-write cycle regardless of how a target was computed.
func formatRecord(record *domain.ProductRecord) string {
	parts := make([]string, 0, len(record.History)+1)
	parts = append(parts, record.ID+"|"+record.Target.StringFixed(2))
	for _, obs := range record.History {
		parts = append(parts, obs.Date.Format(domain.DateFormat)+"|"+obs.Price.StringFixed(2))
	}
	return strings.Join(parts, ",")
}
