package segment

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canastalabs/canasta/internal/common"
	"github.com/canastalabs/canasta/internal/model"
)

type stubFeatures struct {
	features []model.CustomerFeatures
	err      error
}

func (s *stubFeatures) CustomerFeatures(_ context.Context) ([]model.CustomerFeatures, error) {
	return s.features, s.err
}

// twoGroupFeatures builds two clearly separated behavioral groups.
func twoGroupFeatures() []model.CustomerFeatures {
	var features []model.CustomerFeatures
	for i := 0; i < 5; i++ {
		features = append(features, model.CustomerFeatures{
			Customer:           fmt.Sprintf("low-%d", i),
			Frequency:          2 + i%2,
			TotalItems:         4 + i,
			DistinctProducts:   2,
			DistinctCategories: 1,
			AvgBasketSize:      2.0,
		})
	}
	for i := 0; i < 5; i++ {
		features = append(features, model.CustomerFeatures{
			Customer:           fmt.Sprintf("high-%d", i),
			Frequency:          20 + i%2,
			TotalItems:         100 + i,
			DistinctProducts:   30,
			DistinctCategories: 8,
			AvgBasketSize:      5.0,
		})
	}
	return features
}

func TestEngine_Segment(t *testing.T) {
	engine := New(&stubFeatures{features: twoGroupFeatures()})
	opts := Options{K: 2, Seed: 42, RemoveOutliers: false}

	result, err := engine.Segment(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.K)
	assert.Equal(t, 0, result.OutliersRemoved)
	assert.Equal(t, 10, result.TotalCustomers)
	assert.Len(t, result.Assignments, 10)

	total := 0
	for _, cluster := range result.Clusters {
		total += cluster.Size
		assert.Len(t, cluster.Centroid, model.FeatureDimensions)
		assert.NotEmpty(t, cluster.Description)
		assert.NotEmpty(t, cluster.Recommendations)
	}
	assert.Equal(t, result.TotalCustomers, total)

	// The two constructed groups must land in different clusters.
	assert.NotEqual(t, result.Assignments["low-0"], result.Assignments["high-0"])
	for i := 1; i < 5; i++ {
		assert.Equal(t, result.Assignments["low-0"], result.Assignments[fmt.Sprintf("low-%d", i)])
		assert.Equal(t, result.Assignments["high-0"], result.Assignments[fmt.Sprintf("high-%d", i)])
	}
}

func TestEngine_SegmentDeterministic(t *testing.T) {
	opts := Options{K: 2, Seed: 42, RemoveOutliers: false}

	a, err := New(&stubFeatures{features: twoGroupFeatures()}).Segment(context.Background(), opts)
	require.NoError(t, err)
	b, err := New(&stubFeatures{features: twoGroupFeatures()}).Segment(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, a.Assignments, b.Assignments)
	for i := range a.Clusters {
		assert.Equal(t, a.Clusters[i].Centroid, b.Clusters[i].Centroid)
	}
}

func TestEngine_OutlierFiltering(t *testing.T) {
	var features []model.CustomerFeatures
	for i := 0; i < 12; i++ {
		freq := 4 + i%3
		items := 20 + i
		features = append(features, model.CustomerFeatures{
			Customer:           fmt.Sprintf("c-%d", i),
			Frequency:          freq,
			TotalItems:         items,
			DistinctProducts:   5 + i%4,
			DistinctCategories: 2 + i%2,
			AvgBasketSize:      float64(items) / float64(freq),
		})
	}
	features = append(features, model.CustomerFeatures{
		Customer:           "whale",
		Frequency:          500,
		TotalItems:         500,
		DistinctProducts:   100,
		DistinctCategories: 10,
		AvgBasketSize:      1.0,
	})

	engine := New(&stubFeatures{features: features})
	result, err := engine.Segment(context.Background(), Options{K: 3, Seed: 42, RemoveOutliers: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.OutliersRemoved)
	assert.Equal(t, 12, result.TotalCustomers)
	assert.NotContains(t, result.Assignments, "whale")
}

func TestEngine_InsufficientData(t *testing.T) {
	tests := []struct {
		name     string
		features []model.CustomerFeatures
		opts     Options
	}{
		{
			name:     "no features",
			features: nil,
			opts:     Options{K: 2, Seed: 1},
		},
		{
			name: "k exceeds retained customers",
			features: []model.CustomerFeatures{
				{Customer: "a", Frequency: 1, TotalItems: 2, AvgBasketSize: 2},
				{Customer: "b", Frequency: 2, TotalItems: 3, AvgBasketSize: 1.5},
			},
			opts: Options{K: 5, Seed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := New(&stubFeatures{features: tt.features})
			_, err := engine.Segment(context.Background(), tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInsufficientData)
		})
	}
}

func TestEngine_CacheAndInvalidate(t *testing.T) {
	engine := New(&stubFeatures{features: twoGroupFeatures()})
	opts := Options{K: 2, Seed: 42, RemoveOutliers: false}
	ctx := context.Background()

	first, err := engine.Segment(ctx, opts)
	require.NoError(t, err)
	again, err := engine.Segment(ctx, opts)
	require.NoError(t, err)
	assert.Same(t, first, again)

	// Different parameters miss the cache.
	other, err := engine.Segment(ctx, Options{K: 3, Seed: 42, RemoveOutliers: false})
	require.NoError(t, err)
	assert.NotSame(t, first, other)

	engine.Invalidate()
	fresh, err := engine.Segment(ctx, opts)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestEngine_SingleCustomer(t *testing.T) {
	only := model.CustomerFeatures{
		Customer:           "solo",
		Frequency:          3,
		TotalItems:         9,
		DistinctProducts:   4,
		DistinctCategories: 2,
		AvgBasketSize:      3.0,
	}
	engine := New(&stubFeatures{features: []model.CustomerFeatures{only}})

	result, err := engine.Segment(context.Background(), Options{K: 1, Seed: 42, RemoveOutliers: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalCustomers)
	assert.Equal(t, map[string]int{"solo": 0}, result.Assignments)

	// The lone centroid is the customer's own vector, in original units.
	require.Len(t, result.Clusters, 1)
	centroid := result.Clusters[0].Centroid
	require.Len(t, centroid, model.FeatureDimensions)
	for d, v := range centroid {
		require.False(t, math.IsNaN(v), "centroid dimension %d is NaN", d)
		assert.InDelta(t, only.Vector()[d], v, 1e-9)
	}
}

func TestEngine_ZeroKUsesDefault(t *testing.T) {
	engine := New(&stubFeatures{features: twoGroupFeatures()})

	result, err := engine.Segment(context.Background(), Options{K: 0, Seed: 42, RemoveOutliers: false})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().K, result.K)
}

func TestFilterOutliers_AndSemantics(t *testing.T) {
	// Row 4 is extreme only in the second dimension; that alone rejects it.
	matrix := [][]float64{
		{1, 10},
		{2, 11},
		{3, 12},
		{4, 13},
		{2, 500},
	}
	keep, removed := filterOutliers(matrix)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []int{0, 1, 2, 3}, keep)
}

func TestFitScaler_ConstantDimension(t *testing.T) {
	matrix := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	s := fitScaler(matrix)

	scaled := s.transform(matrix)
	for _, row := range scaled {
		assert.InDelta(t, 0.0, row[0], 1e-9, "constant dimension centers to zero")
	}

	// Inversion is the exact inverse of transform.
	for i, row := range scaled {
		original := s.invert(row)
		for d := range original {
			assert.InDelta(t, matrix[i][d], original[d], 1e-9)
		}
	}
}
