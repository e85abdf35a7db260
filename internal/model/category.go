package model

// UnknownCategoryID is the sentinel category assigned to product codes that
// do not appear in the product-category map.
const UnknownCategoryID = "UNKNOWN"

// UnknownCategoryName is the display fallback for categories without a
// catalog entry. It matches the language of the source dataset.
const UnknownCategoryName = "Sin categoría"

// Category is one entry of the category catalog.
type Category struct {
	ID   string
	Name string
}
