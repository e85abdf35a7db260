// Package repository loads the transaction dataset and serves cached derived
// views (exploded product lines, frequency counts, customer features) to the
// analytical engines.
package repository

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/canastalabs/canasta/internal/common"
	"github.com/canastalabs/canasta/internal/model"
)

const (
	categoriesFile      = "Categories.csv"
	productCategoryFile = "ProductCategory.csv"
	productsSubdir      = "Products"
	transactionsSubdir  = "Transactions"

	fieldSeparator = "|"
)

// Snapshot is one fully loaded, immutable view of the dataset. The
// repository swaps whole snapshots on refresh; engines key their caches on
// the snapshot identity so a reader never mixes old and new state.
type Snapshot struct {
	LoadedAt        time.Time
	Categories      map[string]string
	ProductCategory map[string]string
	Transactions    []model.Transaction
	Exploded        []model.ExplodedLine
	DroppedRows     int
}

// CategoryID returns the category for a product code, or the UNKNOWN
// sentinel when the code is not in the product-category map.
func (s *Snapshot) CategoryID(productCode string) string {
	if id, ok := s.ProductCategory[productCode]; ok {
		return id
	}
	return model.UnknownCategoryID
}

// CategoryName returns the display name for a category id, falling back to
// "Sin categoría" when the catalog has no entry.
func (s *Snapshot) CategoryName(categoryID string) string {
	if name, ok := s.Categories[categoryID]; ok {
		return name
	}
	return model.UnknownCategoryName
}

// CategoryLabelForProduct resolves product code -> category id -> display name.
func (s *Snapshot) CategoryLabelForProduct(productCode string) string {
	return s.CategoryName(s.CategoryID(productCode))
}

// ProgressFunc reports per-file loading progress to the caller.
type ProgressFunc func(file string, done, total int)

// Loader reads the category catalog, the product-category map, and every
// transaction file under the dataset directory.
type Loader struct {
	progress ProgressFunc
	dir      string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProgress installs a per-file progress callback.
func WithProgress(fn ProgressFunc) LoaderOption {
	return func(l *Loader) {
		l.progress = fn
	}
}

// NewLoader creates a loader rooted at the dataset directory.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{dir: dir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the full dataset and builds the exploded per-product view.
// Rows with unparseable dates or malformed fields are dropped and counted,
// never fatal. A missing catalog, a missing Transactions directory, or zero
// parseable rows yield an error wrapping common.ErrDataLoad.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	categories, err := l.readCategories()
	if err != nil {
		return nil, err
	}

	productCategory, err := l.readProductCategory()
	if err != nil {
		return nil, err
	}

	transactions, dropped, err := l.readTransactions(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		LoadedAt:        time.Now(),
		Categories:      categories,
		ProductCategory: productCategory,
		Transactions:    transactions,
		DroppedRows:     dropped,
	}
	snap.Exploded = explode(snap)

	common.LogInfo("Dataset loaded", common.Fields{
		"categories":       len(categories),
		"product_mappings": len(productCategory),
		"transactions":     len(transactions),
		"exploded_lines":   len(snap.Exploded),
		"dropped_rows":     dropped,
	})

	return snap, nil
}

func (l *Loader) readCategories() (map[string]string, error) {
	path := filepath.Join(l.dir, productsSubdir, categoriesFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable category catalog %s: %v", common.ErrDataLoad, path, err)
	}
	defer f.Close()

	categories := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, fieldSeparator, 2)
		if len(fields) != 2 {
			continue
		}
		categories[strings.TrimSpace(fields[0])] = strings.TrimSpace(fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", common.ErrDataLoad, path, err)
	}
	return categories, nil
}

func (l *Loader) readProductCategory() (map[string]string, error) {
	path := filepath.Join(l.dir, productsSubdir, productCategoryFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable product-category map %s: %v", common.ErrDataLoad, path, err)
	}
	defer f.Close()

	mapping := make(map[string]string)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, fieldSeparator, 2)
		if len(fields) != 2 {
			continue
		}
		code := strings.TrimSpace(fields[0])
		categoryID := strings.TrimSpace(fields[1])
		// Some dataset variants prepend a header row.
		if first && strings.EqualFold(code, "product_code") {
			first = false
			continue
		}
		first = false
		mapping[code] = categoryID
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", common.ErrDataLoad, path, err)
	}
	return mapping, nil
}

func (l *Loader) readTransactions(ctx context.Context) ([]model.Transaction, int, error) {
	pattern := filepath.Join(l.dir, transactionsSubdir, "*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid pattern %s: %v", common.ErrDataLoad, pattern, err)
	}
	if len(files) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", common.ErrDataSource, pattern)
	}
	sort.Strings(files)

	var transactions []model.Transaction
	dropped := 0

	for i, path := range files {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		fileTxns, fileDropped, err := readTransactionFile(path)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, fileTxns...)
		dropped += fileDropped

		if l.progress != nil {
			l.progress(filepath.Base(path), i+1, len(files))
		}
	}

	if len(transactions) == 0 {
		return nil, 0, common.ErrNoData
	}
	return transactions, dropped, nil
}

func readTransactionFile(path string) ([]model.Transaction, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: unreadable transaction file %s: %v", common.ErrDataLoad, path, err)
	}
	defer f.Close()

	var transactions []model.Transaction
	dropped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		txn, ok := parseTransactionRow(line)
		if !ok {
			dropped++
			continue
		}
		transactions = append(transactions, txn)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: reading %s: %v", common.ErrDataLoad, path, err)
	}
	return transactions, dropped, nil
}

// parseTransactionRow parses one date|store|customer|products row. The
// products field is a space-separated list of product codes.
func parseTransactionRow(line string) (model.Transaction, bool) {
	fields := strings.SplitN(line, fieldSeparator, 4)
	if len(fields) != 4 {
		return model.Transaction{}, false
	}

	date, ok := common.ParseDate(fields[0])
	if !ok {
		return model.Transaction{}, false
	}

	store, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return model.Transaction{}, false
	}

	customer := strings.TrimSpace(fields[2])
	if customer == "" {
		return model.Transaction{}, false
	}

	return model.Transaction{
		Date:     date,
		Store:    store,
		Customer: customer,
		Products: strings.Fields(fields[3]),
	}, true
}

// explode builds the per-product view: one line per product occurrence per
// transaction, tagged with the product's category id.
func explode(snap *Snapshot) []model.ExplodedLine {
	lines := make([]model.ExplodedLine, 0, len(snap.Transactions)*4)
	for _, txn := range snap.Transactions {
		for _, code := range txn.Products {
			lines = append(lines, model.ExplodedLine{
				Date:        txn.Date,
				Store:       txn.Store,
				Customer:    txn.Customer,
				ProductCode: code,
				CategoryID:  snap.CategoryID(code),
			})
		}
	}
	return lines
}
