package segment

import (
	"math"
	"math/rand"
)

const (
	defaultRuns    = 10
	maxIterations  = 300
	convergenceEps = 1e-6
)

// kmeansRun is the outcome of a single k-means initialization.
type kmeansRun struct {
	labels    []int
	centroids [][]float64
	inertia   float64
	converged bool
}

// runKMeans fits k-means on standardized rows with several random
// initializations from one seeded source, keeping the lowest-inertia
// converged run. Blocking and non-cancellable; it runs to completion.
func runKMeans(rows [][]float64, k int, seed int64, runs int) (*kmeansRun, bool) {
	if runs <= 0 {
		runs = defaultRuns
	}
	rng := rand.New(rand.NewSource(seed))

	var best *kmeansRun
	for run := 0; run < runs; run++ {
		candidate := fitOnce(rows, k, rng)
		if !candidate.converged {
			continue
		}
		if best == nil || candidate.inertia < best.inertia {
			best = candidate
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// fitOnce performs one Lloyd iteration loop from a random initialization.
func fitOnce(rows [][]float64, k int, rng *rand.Rand) *kmeansRun {
	dims := len(rows[0])

	// Initialize centroids from k distinct data points.
	perm := rng.Perm(len(rows))
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float64(nil), rows[perm[c]]...)
	}

	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}

	converged := false
	for iter := 0; iter < maxIterations; iter++ {
		changed := 0
		for i, row := range rows {
			nearest := nearestCentroid(row, centroids)
			if labels[i] != nearest {
				labels[i] = nearest
				changed++
			}
		}

		// Recompute centroids; an emptied cluster is reseeded from a
		// random data point so k clusters survive the run.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range rows {
			c := labels[i]
			counts[c]++
			for d, v := range row {
				sums[c][d] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				centroids[c] = append([]float64(nil), rows[rng.Intn(len(rows))]...)
				continue
			}
			for d := 0; d < dims; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}

		if changed == 0 {
			converged = true
			break
		}
	}

	return &kmeansRun{
		labels:    labels,
		centroids: centroids,
		inertia:   inertia(rows, labels, centroids),
		converged: converged,
	}
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	nearest := 0
	min := math.MaxFloat64
	for c, centroid := range centroids {
		d := squaredDistance(row, centroid)
		if d < min-convergenceEps {
			min = d
			nearest = c
		}
	}
	return nearest
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// inertia is the total within-cluster sum of squared distances.
func inertia(rows [][]float64, labels []int, centroids [][]float64) float64 {
	var total float64
	for i, row := range rows {
		total += squaredDistance(row, centroids[labels[i]])
	}
	return total
}
