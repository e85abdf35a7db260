package model

// AssociationRule is one directional product co-purchase rule mined from the
// transaction set. Rules are immutable once built; the engine replaces the
// whole list on recomputation.
type AssociationRule struct {
	Antecedent         string  `json:"antecedent"`
	Consequent         string  `json:"consequent"`
	AntecedentCategory string  `json:"antecedent_category"`
	ConsequentCategory string  `json:"consequent_category"`
	Support            float64 `json:"support"`
	Confidence         float64 `json:"confidence"`
	Lift               float64 `json:"lift"`
}
