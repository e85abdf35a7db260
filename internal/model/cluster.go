package model

// Cluster is one customer segment produced by the segmentation engine.
// The centroid is expressed in original feature units, one value per
// dimension in FeatureNames order.
type Cluster struct {
	Description     string    `json:"description"`
	Recommendations []string  `json:"recommendations"`
	Centroid        []float64 `json:"centroid"`
	Index           int       `json:"index"`
	Size            int       `json:"size"`
}

// SegmentationResult is the full output of one k-means segmentation run.
// Assignments cover only the customers retained after outlier filtering.
type SegmentationResult struct {
	Assignments     map[string]int `json:"assignments"`
	Clusters        []Cluster      `json:"clusters"`
	K               int            `json:"k"`
	OutliersRemoved int            `json:"outliers_removed"`
	TotalCustomers  int            `json:"total_customers"`
}
