// Package recommend answers per-product and per-customer recommendation
// queries from the mined association-rule set.
package recommend

import (
	"context"
	"sort"

	"github.com/canastalabs/canasta/internal/model"
)

// DefaultTopN is used when a caller passes a non-positive top-n.
const DefaultTopN = 5

// RuleSource supplies the current lift-sorted rule list.
type RuleSource interface {
	Rules(ctx context.Context) ([]model.AssociationRule, error)
}

// HistorySource supplies a customer's full purchase history.
type HistorySource interface {
	ProductsPurchased(ctx context.Context, customer string) (map[string]struct{}, error)
}

// Service answers recommendation lookups. Unknown products or customers
// yield empty lists, never errors.
type Service struct {
	rules   RuleSource
	history HistorySource
}

// New creates a recommendation service over the rule and history sources.
func New(rules RuleSource, history HistorySource) *Service {
	return &Service{rules: rules, history: history}
}

// ForProduct returns up to topN rules whose antecedent is the given product
// code. The rule list is already sorted by lift, so order is preserved.
func (s *Service) ForProduct(ctx context.Context, productCode string, topN int) ([]model.AssociationRule, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	rules, err := s.rules.Rules(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]model.AssociationRule, 0, topN)
	for _, rule := range rules {
		if rule.Antecedent != productCode {
			continue
		}
		matched = append(matched, rule)
		if len(matched) == topN {
			break
		}
	}
	return matched, nil
}

// ForCustomer recommends up to topN products the customer has not yet
// purchased, scored by the best (maximum-lift) rule leading to each
// consequent from anything in their purchase history.
func (s *Service) ForCustomer(ctx context.Context, customer string, topN int) ([]model.AssociationRule, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	owned, err := s.history.ProductsPurchased(ctx, customer)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []model.AssociationRule{}, nil
	}

	rules, err := s.rules.Rules(ctx)
	if err != nil {
		return nil, err
	}

	bestByConsequent := make(map[string]model.AssociationRule)
	for _, rule := range rules {
		if _, has := owned[rule.Antecedent]; !has {
			continue
		}
		if _, has := owned[rule.Consequent]; has {
			continue
		}
		best, seen := bestByConsequent[rule.Consequent]
		if !seen || rule.Lift > best.Lift {
			bestByConsequent[rule.Consequent] = rule
		}
	}

	ordered := make([]model.AssociationRule, 0, len(bestByConsequent))
	for _, rule := range bestByConsequent {
		ordered = append(ordered, rule)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Lift != ordered[j].Lift {
			return ordered[i].Lift > ordered[j].Lift
		}
		return ordered[i].Consequent < ordered[j].Consequent
	})

	if len(ordered) > topN {
		ordered = ordered[:topN]
	}
	return ordered, nil
}
