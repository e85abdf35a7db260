package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canastalabs/canasta/internal/model"
	"github.com/canastalabs/canasta/internal/repository"
)

type stubSource struct {
	snap           *repository.Snapshot
	productCounts  []repository.CountEntry
	categoryCounts []repository.CountEntry
	features       []model.CustomerFeatures
}

func (s *stubSource) Snapshot(_ context.Context) (*repository.Snapshot, error) {
	return s.snap, nil
}

func (s *stubSource) ProductCounts(_ context.Context) ([]repository.CountEntry, error) {
	return s.productCounts, nil
}

func (s *stubSource) CategoryCounts(_ context.Context) ([]repository.CountEntry, error) {
	return s.categoryCounts, nil
}

func (s *stubSource) CustomerFeatures(_ context.Context) ([]model.CustomerFeatures, error) {
	return s.features, nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func fixtureSource() *stubSource {
	snap := &repository.Snapshot{
		Categories:      map[string]string{"10": "Dairy", "20": "Bakery"},
		ProductCategory: map[string]string{"P1": "10", "P2": "10", "P3": "20"},
		Transactions: []model.Transaction{
			{Date: day(1), Store: 1, Customer: "C1", Products: []string{"P1", "P2"}},
			{Date: day(1), Store: 1, Customer: "C2", Products: []string{"P2"}},
			{Date: day(2), Store: 2, Customer: "C1", Products: []string{"P3", "P3", "P1"}},
			{Date: day(9), Store: 1, Customer: "C3", Products: []string{"P2"}},
		},
	}
	for _, txn := range snap.Transactions {
		for _, code := range txn.Products {
			snap.Exploded = append(snap.Exploded, model.ExplodedLine{
				Date:        txn.Date,
				Store:       txn.Store,
				Customer:    txn.Customer,
				ProductCode: code,
				CategoryID:  snap.CategoryID(code),
			})
		}
	}
	return &stubSource{
		snap: snap,
		productCounts: []repository.CountEntry{
			{Key: "P2", Count: 3}, {Key: "P1", Count: 2}, {Key: "P3", Count: 2},
		},
		categoryCounts: []repository.CountEntry{
			{Key: "10", Count: 5}, {Key: "20", Count: 2},
		},
	}
}

func TestSummary(t *testing.T) {
	svc := New(fixtureSource())

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.NumTransactions)
	assert.Equal(t, 7, summary.TotalUnits)
	assert.Equal(t, 3, summary.UniqueCustomers)
	assert.Equal(t, 3, summary.UniqueProducts)

	require.NotEmpty(t, summary.TopProducts)
	assert.Equal(t, CountEntry{Key: "P2", Count: 3}, summary.TopProducts[0])

	require.NotEmpty(t, summary.TopCustomers)
	assert.Equal(t, CountEntry{Key: "C1", Count: 2}, summary.TopCustomers[0])

	require.NotEmpty(t, summary.PeakDays)
	assert.Equal(t, DayCount{Date: "2024-01-01", Transactions: 2}, summary.PeakDays[0])

	require.Len(t, summary.TopCategories, 2)
	assert.Equal(t, "Dairy", summary.TopCategories[0].Name)
	assert.InDelta(t, 5.0/7.0, summary.TopCategories[0].Share, 1e-9)
}

func TestTimeSeries(t *testing.T) {
	svc := New(fixtureSource())
	ctx := context.Background()

	t.Run("daily", func(t *testing.T) {
		points, err := svc.TimeSeries(ctx, LevelDaily)
		require.NoError(t, err)
		require.Len(t, points, 3)
		assert.Equal(t, Point{Bucket: "2024-01-01", Transactions: 2, TotalProducts: 3}, points[0])
		assert.Equal(t, Point{Bucket: "2024-01-02", Transactions: 1, TotalProducts: 3}, points[1])
	})

	t.Run("weekly buckets follow the ISO week", func(t *testing.T) {
		points, err := svc.TimeSeries(ctx, LevelWeekly)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, "2024-W01", points[0].Bucket)
		assert.Equal(t, 3, points[0].Transactions)
		assert.Equal(t, "2024-W02", points[1].Bucket)
	})

	t.Run("monthly", func(t *testing.T) {
		points, err := svc.TimeSeries(ctx, LevelMonthly)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, Point{Bucket: "2024-01", Transactions: 4, TotalProducts: 7}, points[0])
	})

	t.Run("unsupported level", func(t *testing.T) {
		_, err := svc.TimeSeries(ctx, Level("hourly"))
		require.Error(t, err)
	})
}

func TestBaskets(t *testing.T) {
	svc := New(fixtureSource())

	stats, err := svc.Baskets(context.Background())
	require.NoError(t, err)

	// Basket sizes: 2, 1, 3, 1.
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 1.75, stats.Mean, 1e-9)
	assert.InDelta(t, 1.0, stats.Min, 1e-9)
	assert.InDelta(t, 3.0, stats.Max, 1e-9)
	assert.InDelta(t, 1.0, stats.Mode, 1e-9)
	assert.GreaterOrEqual(t, stats.Q75, stats.Q25)
	assert.GreaterOrEqual(t, stats.Outliers, 0)
}

func TestBaskets_Empty(t *testing.T) {
	svc := New(&stubSource{snap: &repository.Snapshot{}})

	stats, err := svc.Baskets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &BasketStats{}, stats)
}

func TestFeatureCorrelation(t *testing.T) {
	source := fixtureSource()
	source.features = []model.CustomerFeatures{
		{Customer: "C1", Frequency: 1, TotalItems: 2, DistinctProducts: 2, DistinctCategories: 1, AvgBasketSize: 2},
		{Customer: "C2", Frequency: 2, TotalItems: 4, DistinctProducts: 3, DistinctCategories: 2, AvgBasketSize: 2.5},
		{Customer: "C3", Frequency: 3, TotalItems: 6, DistinctProducts: 5, DistinctCategories: 2, AvgBasketSize: 2.2},
		{Customer: "C4", Frequency: 4, TotalItems: 8, DistinctProducts: 6, DistinctCategories: 3, AvgBasketSize: 3},
	}
	svc := New(source)

	corr, err := svc.FeatureCorrelation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.FeatureNames, corr.Columns)
	require.Len(t, corr.Matrix, model.FeatureDimensions)
	for i := range corr.Matrix {
		require.Len(t, corr.Matrix[i], model.FeatureDimensions)
		assert.InDelta(t, 1.0, corr.Matrix[i][i], 1e-9)
		for j := range corr.Matrix[i] {
			assert.InDelta(t, corr.Matrix[j][i], corr.Matrix[i][j], 1e-9, "matrix must be symmetric")
		}
	}

	// TotalItems is exactly 2x Frequency in the fixture.
	assert.InDelta(t, 1.0, corr.Matrix[0][1], 1e-9)
}
