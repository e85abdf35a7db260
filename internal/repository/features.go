package repository

import (
	"sort"

	"github.com/canastalabs/canasta/internal/model"
)

// BuildCustomerFeatures computes one behavioral feature vector per customer
// present in the transaction set. A customer with no exploded product rows
// keeps zero distinct products and categories; frequency is always positive
// because presence is defined by having at least one transaction.
func BuildCustomerFeatures(transactions []model.Transaction, exploded []model.ExplodedLine) []model.CustomerFeatures {
	frequency := make(map[string]int)
	totalItems := make(map[string]int)
	for _, txn := range transactions {
		frequency[txn.Customer]++
		totalItems[txn.Customer] += txn.ItemCount()
	}

	distinctProducts := make(map[string]map[string]struct{})
	distinctCategories := make(map[string]map[string]struct{})
	for _, line := range exploded {
		if distinctProducts[line.Customer] == nil {
			distinctProducts[line.Customer] = make(map[string]struct{})
		}
		distinctProducts[line.Customer][line.ProductCode] = struct{}{}
		if distinctCategories[line.Customer] == nil {
			distinctCategories[line.Customer] = make(map[string]struct{})
		}
		distinctCategories[line.Customer][line.CategoryID] = struct{}{}
	}

	features := make([]model.CustomerFeatures, 0, len(frequency))
	for customer, freq := range frequency {
		items := totalItems[customer]
		features = append(features, model.CustomerFeatures{
			Customer:           customer,
			Frequency:          freq,
			TotalItems:         items,
			DistinctProducts:   len(distinctProducts[customer]),
			DistinctCategories: len(distinctCategories[customer]),
			AvgBasketSize:      float64(items) / float64(freq),
		})
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].Customer < features[j].Customer
	})
	return features
}
