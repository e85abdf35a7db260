// Package ingest appends manually supplied transaction batches to the
// transaction store after cleaning and normalization.
package ingest

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/canastalabs/canasta/internal/common"
)

const fieldSeparator = "|"

// Result reports the row accounting of one ingestion batch.
// CleanedRows + RejectedRows == InitialRows always holds.
type Result struct {
	File         string `json:"file"`
	InitialRows  int    `json:"initial_rows"`
	CleanedRows  int    `json:"cleaned_rows"`
	RejectedRows int    `json:"rejected_rows"`
}

// Pipeline cleans raw delimited transaction text and persists it as a new
// file in the transaction store.
type Pipeline struct {
	now             func() time.Time
	transactionsDir string
}

// New creates a pipeline writing into the given Transactions directory.
func New(transactionsDir string) *Pipeline {
	return &Pipeline{
		transactionsDir: transactionsDir,
		now:             time.Now,
	}
}

// Process cleans the raw batch and writes the surviving rows to a new
// uniquely named transaction file. Input is pipe-delimited and header-less
// with 3 or 4 fields; the column count is auto-detected from the first
// non-empty line. Three-field input lacks the store column and takes
// defaultStore instead. Malformed rows are dropped and counted, never fatal.
func (p *Pipeline) Process(raw string, defaultStore int) (*Result, error) {
	columns := detectColumns(raw)
	if columns == 0 {
		return nil, fmt.Errorf("%w: empty batch", common.ErrDataValidation)
	}
	if columns != 3 && columns != 4 {
		return nil, fmt.Errorf("%w: expected 3 or 4 columns, detected %d", common.ErrDataValidation, columns)
	}

	result := &Result{}
	var cleaned []string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.InitialRows++

		normalized, ok := normalizeRow(line, columns, defaultStore)
		if !ok {
			result.RejectedRows++
			continue
		}
		cleaned = append(cleaned, normalized)
		result.CleanedRows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}

	if len(cleaned) > 0 {
		path, err := p.persist(cleaned, defaultStore)
		if err != nil {
			return nil, err
		}
		result.File = path
	}

	slog.Info("Transaction batch processed",
		"initial_rows", result.InitialRows,
		"cleaned_rows", result.CleanedRows,
		"rejected_rows", result.RejectedRows,
		"file", result.File)

	return result, nil
}

// detectColumns counts the fields of the first non-empty line.
func detectColumns(raw string) int {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return len(strings.Split(line, fieldSeparator))
	}
	return 0
}

// normalizeRow validates and rewrites one row into the canonical
// date|store|customer|products order with trimmed fields.
func normalizeRow(line string, columns, defaultStore int) (string, bool) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != columns {
		return "", false
	}

	var rawDate, rawStore, rawCustomer, rawProducts string
	if columns == 4 {
		rawDate, rawStore, rawCustomer, rawProducts = fields[0], fields[1], fields[2], fields[3]
	} else {
		rawDate, rawCustomer, rawProducts = fields[0], fields[1], fields[2]
		rawStore = strconv.Itoa(defaultStore)
	}

	date, ok := common.ParseDate(rawDate)
	if !ok {
		return "", false
	}

	store, err := strconv.Atoi(strings.TrimSpace(rawStore))
	if err != nil {
		return "", false
	}

	customer := strings.TrimSpace(rawCustomer)
	if customer == "" {
		return "", false
	}

	products := strings.Join(strings.Fields(rawProducts), " ")
	if products == "" {
		return "", false
	}

	return strings.Join([]string{
		date.Format(common.DateLayout),
		strconv.Itoa(store),
		customer,
		products,
	}, fieldSeparator), true
}

// persist writes the cleaned rows as a new transaction file, uniquely named
// per store and timestamp.
func (p *Pipeline) persist(rows []string, store int) (string, error) {
	if err := os.MkdirAll(p.transactionsDir, 0o750); err != nil {
		return "", fmt.Errorf("creating transaction store: %w", err)
	}

	name := fmt.Sprintf("manual_%d_%s.csv", store, p.now().Format("20060102T150405"))
	path := filepath.Join(p.transactionsDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("creating transaction file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range rows {
		if _, err := w.WriteString(row + "\n"); err != nil {
			return "", fmt.Errorf("writing transaction file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flushing transaction file: %w", err)
	}
	return path, nil
}
