// Package metrics computes reporting aggregates over the loaded dataset:
// executive summaries, time series, basket statistics, and feature
// correlations.
package metrics

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/canastalabs/canasta/internal/model"
	"github.com/canastalabs/canasta/internal/repository"
)

const topEntries = 10

// Source supplies the dataset views the aggregations are computed from.
type Source interface {
	Snapshot(ctx context.Context) (*repository.Snapshot, error)
	ProductCounts(ctx context.Context) ([]repository.CountEntry, error)
	CategoryCounts(ctx context.Context) ([]repository.CountEntry, error)
	CustomerFeatures(ctx context.Context) ([]model.CustomerFeatures, error)
}

// Service computes reporting aggregates. Every call reads the current
// snapshot; nothing here is cached beyond what the repository memoizes.
type Service struct {
	source Source
}

// New creates a metrics service over the data source.
func New(source Source) *Service {
	return &Service{source: source}
}

// CountEntry mirrors repository.CountEntry for summary output.
type CountEntry = repository.CountEntry

// CategoryShare is a category's share of total exploded volume.
type CategoryShare struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"category_name"`
	Count      int     `json:"count"`
	Share      float64 `json:"share"`
}

// DayCount is a calendar day with its transaction count.
type DayCount struct {
	Date         string `json:"date"`
	Transactions int    `json:"transactions"`
}

// ExecutiveSummary is the headline view of the dataset.
type ExecutiveSummary struct {
	TopProducts     []CountEntry    `json:"top_products"`
	TopCustomers    []CountEntry    `json:"top_customers"`
	PeakDays        []DayCount      `json:"peak_days"`
	TopCategories   []CategoryShare `json:"top_categories"`
	TotalUnits      int             `json:"total_units"`
	NumTransactions int             `json:"num_transactions"`
	UniqueCustomers int             `json:"unique_customers"`
	UniqueProducts  int             `json:"unique_products"`
}

// Summary computes the executive summary of the current snapshot.
func (s *Service) Summary(ctx context.Context) (*ExecutiveSummary, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	productCounts, err := s.source.ProductCounts(ctx)
	if err != nil {
		return nil, err
	}
	categoryCounts, err := s.source.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	customerCounts := make(map[string]int)
	dayCounts := make(map[string]int)
	for _, txn := range snap.Transactions {
		customerCounts[txn.Customer]++
		dayCounts[txn.Date.Format("2006-01-02")]++
	}

	totalUnits := len(snap.Exploded)
	topCategories := make([]CategoryShare, 0, topEntries)
	for _, entry := range head(categoryCounts, topEntries) {
		share := 0.0
		if totalUnits > 0 {
			share = float64(entry.Count) / float64(totalUnits)
		}
		topCategories = append(topCategories, CategoryShare{
			CategoryID: entry.Key,
			Name:       snap.CategoryName(entry.Key),
			Count:      entry.Count,
			Share:      share,
		})
	}

	return &ExecutiveSummary{
		TotalUnits:      totalUnits,
		NumTransactions: len(snap.Transactions),
		UniqueCustomers: len(customerCounts),
		UniqueProducts:  len(productCounts),
		TopProducts:     head(productCounts, topEntries),
		TopCustomers:    topCounts(customerCounts, topEntries),
		PeakDays:        topDays(dayCounts, topEntries),
		TopCategories:   topCategories,
	}, nil
}

// Level selects the time-series bucketing granularity.
type Level string

// Supported time-series levels.
const (
	LevelDaily   Level = "daily"
	LevelWeekly  Level = "weekly"
	LevelMonthly Level = "monthly"
)

// Point is one time-series bucket.
type Point struct {
	Bucket        string `json:"bucket"`
	Transactions  int    `json:"transactions"`
	TotalProducts int    `json:"total_products"`
}

// TimeSeries aggregates transactions and units per bucket. Weekly buckets
// use the ISO year and week.
func (s *Service) TimeSeries(ctx context.Context, level Level) ([]Point, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	bucketOf := func(txn *model.Transaction) string {
		switch level {
		case LevelDaily:
			return txn.Date.Format("2006-01-02")
		case LevelWeekly:
			year, week := txn.Date.ISOWeek()
			return fmt.Sprintf("%04d-W%02d", year, week)
		case LevelMonthly:
			return txn.Date.Format("2006-01")
		}
		return ""
	}
	if level != LevelDaily && level != LevelWeekly && level != LevelMonthly {
		return nil, fmt.Errorf("unsupported time-series level %q", level)
	}

	buckets := make(map[string]*Point)
	for i := range snap.Transactions {
		txn := &snap.Transactions[i]
		key := bucketOf(txn)
		point, ok := buckets[key]
		if !ok {
			point = &Point{Bucket: key}
			buckets[key] = point
		}
		point.Transactions++
		point.TotalProducts += txn.ItemCount()
	}

	points := make([]Point, 0, len(buckets))
	for _, point := range buckets {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket < points[j].Bucket })
	return points, nil
}

func head(entries []repository.CountEntry, n int) []CountEntry {
	if len(entries) > n {
		entries = entries[:n]
	}
	return append([]CountEntry(nil), entries...)
}

func topCounts(counts map[string]int, n int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, CountEntry{Key: k, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func topDays(counts map[string]int, n int) []DayCount {
	entries := make([]DayCount, 0, len(counts))
	for day, c := range counts {
		entries = append(entries, DayCount{Date: day, Transactions: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Transactions != entries[j].Transactions {
			return entries[i].Transactions > entries[j].Transactions
		}
		return entries[i].Date < entries[j].Date
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// BasketStats describes the distribution of per-transaction item counts.
type BasketStats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Mode     float64 `json:"mode"`
	Outliers int     `json:"outliers"`
}

// Baskets computes descriptive statistics of basket sizes, including the
// IQR outlier count over the basket-size distribution.
func (s *Service) Baskets(ctx context.Context) (*BasketStats, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Transactions) == 0 {
		return &BasketStats{}, nil
	}

	sizes := make([]float64, len(snap.Transactions))
	modeCounts := make(map[int]int)
	for i := range snap.Transactions {
		n := snap.Transactions[i].ItemCount()
		sizes[i] = float64(n)
		modeCounts[n]++
	}
	sort.Float64s(sizes)

	q1 := stat.Quantile(0.25, stat.Empirical, sizes, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sizes, nil)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr
	outliers := 0
	for _, v := range sizes {
		if v < lower || v > upper {
			outliers++
		}
	}

	mode, modeCount := 0, 0
	for size, count := range modeCounts {
		if count > modeCount || (count == modeCount && size < mode) {
			mode, modeCount = size, count
		}
	}

	return &BasketStats{
		Count:    len(sizes),
		Mean:     stat.Mean(sizes, nil),
		StdDev:   stat.StdDev(sizes, nil),
		Min:      sizes[0],
		Q25:      q1,
		Median:   stat.Quantile(0.5, stat.Empirical, sizes, nil),
		Q75:      q3,
		Max:      sizes[len(sizes)-1],
		Mode:     float64(mode),
		Outliers: outliers,
	}, nil
}

// Correlation is the Pearson correlation matrix over the customer feature
// dimensions.
type Correlation struct {
	Columns []string    `json:"columns"`
	Matrix  [][]float64 `json:"matrix"`
}

// FeatureCorrelation computes pairwise Pearson correlations between the
// five customer feature dimensions.
func (s *Service) FeatureCorrelation(ctx context.Context) (*Correlation, error) {
	features, err := s.source.CustomerFeatures(ctx)
	if err != nil {
		return nil, err
	}

	columns := make([][]float64, model.FeatureDimensions)
	for d := range columns {
		columns[d] = make([]float64, len(features))
	}
	for i := range features {
		vector := features[i].Vector()
		for d, v := range vector {
			columns[d][i] = v
		}
	}

	matrix := make([][]float64, model.FeatureDimensions)
	for i := range matrix {
		matrix[i] = make([]float64, model.FeatureDimensions)
		for j := range matrix[i] {
			if i == j {
				matrix[i][j] = 1
				continue
			}
			matrix[i][j] = stat.Correlation(columns[i], columns[j], nil)
		}
	}

	return &Correlation{
		Columns: append([]string(nil), model.FeatureNames...),
		Matrix:  matrix,
	}, nil
}
