package segment

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Tier buckets a centroid value against the population of centroids.
type Tier int

// Tiers ordered from lowest to highest.
const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierVeryHigh
)

func (t Tier) String() string {
	switch t {
	case TierVeryHigh:
		return "very high"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Feature dimension indices in model.FeatureNames order.
const (
	dimFrequency = iota
	dimTotalItems
	dimDistinctProducts
	dimDistinctCategories
	dimAvgBasket
)

// bundle is one canned business-recommendation bundle, selected by the first
// predicate in the table that matches a cluster's frequency and volume tiers.
type bundle struct {
	applies         func(frequency, volume Tier) bool
	name            string
	recommendations []string
}

// bundleTable is evaluated in order; the final entry always matches.
var bundleTable = []bundle{
	{
		applies: func(f, v Tier) bool { return f == TierVeryHigh && v >= TierHigh },
		name:    "premium loyalists",
		recommendations: []string{
			"Enroll in the top-tier loyalty program with exclusive perks",
			"Offer early access to new products and private promotions",
		},
	},
	{
		applies: func(f, v Tier) bool { return f >= TierHigh && v >= TierHigh },
		name:    "habitual high spenders",
		recommendations: []string{
			"Protect retention with personalized thank-you rewards",
			"Promote premium alternatives within their usual categories",
		},
	},
	{
		applies: func(f, v Tier) bool { return f >= TierHigh },
		name:    "frequent small-basket shoppers",
		recommendations: []string{
			"Push basket-size upsells via bundle and multibuy offers",
			"Surface complementary products at checkout",
		},
	},
	{
		applies: func(f, v Tier) bool { return v >= TierHigh },
		name:    "occasional bulk buyers",
		recommendations: []string{
			"Incentivize visit frequency with time-limited coupons",
			"Send restock reminders timed to their purchase cycle",
		},
	},
	{
		applies: func(f, v Tier) bool { return f == TierLow && v == TierLow },
		name:    "at-risk shoppers",
		recommendations: []string{
			"Run a reactivation campaign with a welcome-back discount",
			"Survey for churn drivers before they lapse completely",
		},
	},
	{
		applies: func(f, v Tier) bool { return true },
		name:    "steady regulars",
		recommendations: []string{
			"Maintain engagement with seasonal promotions",
			"Test category expansion offers on a small sample",
		},
	},
}

// diversityRecommendation appends one extra action based on how varied the
// cluster's purchasing is across products and categories.
func diversityRecommendation(diversity Tier) string {
	if diversity >= TierHigh {
		return "Leverage wide interests with cross-category promotions"
	}
	if diversity == TierMedium {
		return "Introduce adjacent categories through guided recommendations"
	}
	return "Encourage discovery with samples from unexplored categories"
}

// centroidThresholds holds the 25th/50th/75th percentile of each centroid
// dimension across all clusters.
type centroidThresholds struct {
	q25, q50, q75 []float64
}

func thresholdsFor(centroids [][]float64) centroidThresholds {
	dims := len(centroids[0])
	t := centroidThresholds{
		q25: make([]float64, dims),
		q50: make([]float64, dims),
		q75: make([]float64, dims),
	}
	column := make([]float64, len(centroids))
	for d := 0; d < dims; d++ {
		for i, c := range centroids {
			column[i] = c[d]
		}
		sort.Float64s(column)
		t.q25[d] = stat.Quantile(0.25, stat.Empirical, column, nil)
		t.q50[d] = stat.Quantile(0.50, stat.Empirical, column, nil)
		t.q75[d] = stat.Quantile(0.75, stat.Empirical, column, nil)
	}
	return t
}

func (t centroidThresholds) tier(dim int, value float64) Tier {
	switch {
	case value >= t.q75[dim]:
		return TierVeryHigh
	case value >= t.q50[dim]:
		return TierHigh
	case value >= t.q25[dim]:
		return TierMedium
	default:
		return TierLow
	}
}

// describeCluster builds the heuristic description and recommendation list
// for one centroid, compared against the centroid population thresholds.
func describeCluster(centroid []float64, t centroidThresholds) (string, []string) {
	frequency := t.tier(dimFrequency, centroid[dimFrequency])
	volume := t.tier(dimTotalItems, centroid[dimTotalItems])
	products := t.tier(dimDistinctProducts, centroid[dimDistinctProducts])
	categories := t.tier(dimDistinctCategories, centroid[dimDistinctCategories])

	diversity := products
	if categories > diversity {
		diversity = categories
	}

	selected := bundleTable[len(bundleTable)-1]
	for _, b := range bundleTable {
		if b.applies(frequency, volume) {
			selected = b
			break
		}
	}

	description := fmt.Sprintf("%s frequency, %s volume, %s diversity (%s)",
		capitalize(frequency.String()), volume.String(), diversity.String(), selected.name)

	recommendations := append([]string(nil), selected.recommendations...)
	recommendations = append(recommendations, diversityRecommendation(diversity))
	return description, recommendations
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
