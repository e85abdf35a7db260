package model

// FeatureDimensions is the number of numeric dimensions in a customer
// feature vector, in the order returned by Vector.
const FeatureDimensions = 5

// FeatureNames lists the feature dimensions in vector order.
var FeatureNames = []string{
	"frequency",
	"total_items",
	"distinct_products",
	"distinct_categories",
	"avg_basket_size",
}

// CustomerFeatures is the behavioral feature vector for one customer,
// derived wholesale from their transactions on every refresh.
type CustomerFeatures struct {
	Customer           string
	Frequency          int
	TotalItems         int
	DistinctProducts   int
	DistinctCategories int
	AvgBasketSize      float64
}

// Vector returns the numeric dimensions in FeatureNames order.
func (f *CustomerFeatures) Vector() []float64 {
	return []float64{
		float64(f.Frequency),
		float64(f.TotalItems),
		float64(f.DistinctProducts),
		float64(f.DistinctCategories),
		f.AvgBasketSize,
	}
}
