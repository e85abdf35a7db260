// Package segment filters, standardizes, clusters, and labels customer
// feature vectors into behavioral segments.
package segment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/canastalabs/canasta/internal/common"
	"github.com/canastalabs/canasta/internal/model"
)

// iqrFactor is the whisker multiplier of the outlier filter.
const iqrFactor = 1.5

// FeatureSource supplies the customer feature matrix.
type FeatureSource interface {
	CustomerFeatures(ctx context.Context) ([]model.CustomerFeatures, error)
}

// Options parameterize one segmentation run.
type Options struct {
	K              int
	Seed           int64
	RemoveOutliers bool
}

// DefaultOptions returns the standard segmentation parameters.
func DefaultOptions() Options {
	return Options{K: 4, Seed: 42, RemoveOutliers: true}
}

// Engine runs customer segmentation, caching results per parameter set
// until the underlying data refreshes.
type Engine struct {
	source FeatureSource

	mu    sync.RWMutex
	cache map[Options]*model.SegmentationResult
}

// New creates a segmentation engine over the given feature source.
func New(source FeatureSource) *Engine {
	return &Engine{
		source: source,
		cache:  make(map[Options]*model.SegmentationResult),
	}
}

// Invalidate discards all cached segmentation results. Wired to repository
// refresh.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.cache = make(map[Options]*model.SegmentationResult)
	e.mu.Unlock()
}

// Segment clusters the customer feature matrix into opts.K segments.
// CPU-bound and blocking; it runs to completion or fails. A failed run
// leaves any previously cached result intact.
func (e *Engine) Segment(ctx context.Context, opts Options) (*model.SegmentationResult, error) {
	if opts.K <= 0 {
		opts.K = DefaultOptions().K
	}

	e.mu.RLock()
	if cached, ok := e.cache[opts]; ok {
		e.mu.RUnlock()
		return cached, nil
	}
	e.mu.RUnlock()

	features, err := e.source.CustomerFeatures(ctx)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no customer features", common.ErrInsufficientData)
	}

	customers := make([]string, len(features))
	matrix := make([][]float64, len(features))
	for i := range features {
		customers[i] = features[i].Customer
		matrix[i] = features[i].Vector()
	}

	// Outlier filtering is optional; when disabled the removed count is
	// reported as zero explicitly.
	removed := 0
	if opts.RemoveOutliers {
		var keep []int
		keep, removed = filterOutliers(matrix)
		customers = selectStrings(customers, keep)
		matrix = selectRows(matrix, keep)
	}

	retained := len(matrix)
	if retained == 0 {
		return nil, fmt.Errorf("%w: outlier filtering removed every customer", common.ErrInsufficientData)
	}
	if opts.K > retained {
		return nil, fmt.Errorf("%w: k=%d exceeds %d retained customers", common.ErrInsufficientData, opts.K, retained)
	}

	scaler := fitScaler(matrix)
	scaled := scaler.transform(matrix)

	best, ok := runKMeans(scaled, opts.K, opts.Seed, defaultRuns)
	if !ok {
		return nil, fmt.Errorf("%w: k-means did not converge within %d iterations", common.ErrComputation, maxIterations)
	}

	centroids := make([][]float64, opts.K)
	sizes := make([]int, opts.K)
	for c := range centroids {
		centroids[c] = scaler.invert(best.centroids[c])
	}
	assignments := make(map[string]int, retained)
	for i, label := range best.labels {
		assignments[customers[i]] = label
		sizes[label]++
	}

	thresholds := thresholdsFor(centroids)
	clusters := make([]model.Cluster, opts.K)
	for c := 0; c < opts.K; c++ {
		description, recommendations := describeCluster(centroids[c], thresholds)
		clusters[c] = model.Cluster{
			Index:           c,
			Centroid:        centroids[c],
			Size:            sizes[c],
			Description:     description,
			Recommendations: recommendations,
		}
	}

	result := &model.SegmentationResult{
		K:               opts.K,
		Clusters:        clusters,
		Assignments:     assignments,
		OutliersRemoved: removed,
		TotalCustomers:  retained,
	}

	e.mu.Lock()
	e.cache[opts] = result
	e.mu.Unlock()

	slog.Info("Segmentation complete",
		"k", opts.K,
		"retained_customers", retained,
		"outliers_removed", removed,
		"inertia", best.inertia)

	return result, nil
}

// filterOutliers keeps rows whose every dimension lies within
// [Q1-1.5·IQR, Q3+1.5·IQR] of that dimension. Logical AND across dimensions.
func filterOutliers(matrix [][]float64) (keep []int, removed int) {
	dims := len(matrix[0])
	lower := make([]float64, dims)
	upper := make([]float64, dims)

	column := make([]float64, len(matrix))
	for d := 0; d < dims; d++ {
		for i, row := range matrix {
			column[i] = row[d]
		}
		sort.Float64s(column)
		q1 := stat.Quantile(0.25, stat.Empirical, column, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, column, nil)
		iqr := q3 - q1
		lower[d] = q1 - iqrFactor*iqr
		upper[d] = q3 + iqrFactor*iqr
	}

	for i, row := range matrix {
		inside := true
		for d, v := range row {
			if v < lower[d] || v > upper[d] {
				inside = false
				break
			}
		}
		if inside {
			keep = append(keep, i)
		}
	}
	return keep, len(matrix) - len(keep)
}

// scaler is a zero-mean/unit-variance standardizer fit on the retained rows.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(matrix [][]float64) *scaler {
	dims := len(matrix[0])
	s := &scaler{
		mean: make([]float64, dims),
		std:  make([]float64, dims),
	}
	column := make([]float64, len(matrix))
	for d := 0; d < dims; d++ {
		for i, row := range matrix {
			column[i] = row[d]
		}
		s.mean[d] = stat.Mean(column, nil)
		s.std[d] = stat.StdDev(column, nil)
		// A constant dimension has zero spread; a single row has no sample
		// stddev at all (NaN). Either way, center but leave unscaled.
		if s.std[d] == 0 || math.IsNaN(s.std[d]) {
			s.std[d] = 1
		}
	}
	return s
}

func (s *scaler) transform(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled := make([]float64, len(row))
		for d, v := range row {
			scaled[d] = (v - s.mean[d]) / s.std[d]
		}
		out[i] = scaled
	}
	return out
}

// invert maps a standardized centroid back to original feature units.
func (s *scaler) invert(row []float64) []float64 {
	out := make([]float64, len(row))
	for d, v := range row {
		out[d] = v*s.std[d] + s.mean[d]
	}
	return out
}

func selectRows(matrix [][]float64, keep []int) [][]float64 {
	out := make([][]float64, 0, len(keep))
	for _, i := range keep {
		out = append(out, matrix[i])
	}
	return out
}

func selectStrings(values []string, keep []int) []string {
	out := make([]string, 0, len(keep))
	for _, i := range keep {
		out = append(out, values[i])
	}
	return out
}
