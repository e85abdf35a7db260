// Package rules mines directional product-pair association rules with
// support, confidence, and lift over the raw transaction set.
package rules

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/canastalabs/canasta/internal/model"
	"github.com/canastalabs/canasta/internal/repository"
)

// Default mining thresholds.
const (
	DefaultMinSupport    = 0.01
	DefaultMinConfidence = 0.3
)

// DataSource supplies the current dataset snapshot.
type DataSource interface {
	Snapshot(ctx context.Context) (*repository.Snapshot, error)
}

// Config holds the mining thresholds.
type Config struct {
	MinSupport    float64
	MinConfidence float64
}

// DefaultConfig returns the default mining thresholds.
func DefaultConfig() Config {
	return Config{
		MinSupport:    DefaultMinSupport,
		MinConfidence: DefaultMinConfidence,
	}
}

// Result is the full output of one mining pass.
type Result struct {
	FrequentItems map[string]int
	Rules         []model.AssociationRule
}

// Engine mines association rules and memoizes the result per snapshot.
type Engine struct {
	source DataSource
	config Config

	mu         sync.RWMutex
	cached     *Result
	cachedSnap *repository.Snapshot
}

// New creates a rule engine with default thresholds.
func New(source DataSource) *Engine {
	return NewWithConfig(source, DefaultConfig())
}

// NewWithConfig creates a rule engine with custom thresholds.
func NewWithConfig(source DataSource, config Config) *Engine {
	if config.MinSupport <= 0 {
		config.MinSupport = DefaultMinSupport
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = DefaultMinConfidence
	}
	return &Engine{source: source, config: config}
}

// Rules returns the mined rule list, sorted non-increasing by lift, without
// truncation. The result is memoized process-wide until the repository swaps
// in a new snapshot.
func (e *Engine) Rules(ctx context.Context) ([]model.AssociationRule, error) {
	result, err := e.Mine(ctx)
	if err != nil {
		return nil, err
	}
	return result.Rules, nil
}

// Mine returns the memoized mining result for the current snapshot,
// recomputing it when stale.
func (e *Engine) Mine(ctx context.Context) (*Result, error) {
	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	if e.cachedSnap == snap && e.cached != nil {
		cached := e.cached
		e.mu.RUnlock()
		return cached, nil
	}
	e.mu.RUnlock()

	result := e.build(snap)

	e.mu.Lock()
	e.cached = result
	e.cachedSnap = snap
	e.mu.Unlock()

	slog.Info("Association rules mined",
		"transactions", len(snap.Transactions),
		"frequent_items", len(result.FrequentItems),
		"rules", len(result.Rules))

	return result, nil
}

// Invalidate discards the memoized rule set. Wired to repository refresh.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.cached = nil
	e.cachedSnap = nil
	e.mu.Unlock()
}

// build is a pure function of the snapshot's transactions.
//
// Pair enumeration is O(transactions × basket_size²): every unordered
// 2-combination of each deduplicated basket is counted. This quadratic
// blow-up on large baskets is the principal scaling bound of the engine.
func (e *Engine) build(snap *repository.Snapshot) *Result {
	total := len(snap.Transactions)
	if total == 0 {
		return &Result{FrequentItems: map[string]int{}}
	}

	// Deduplicate each basket once; repeated purchases of the same item
	// within one transaction count once.
	baskets := make([][]string, 0, total)
	itemCounts := make(map[string]int)
	for i := range snap.Transactions {
		set := snap.Transactions[i].Basket()
		basket := make([]string, 0, len(set))
		for code := range set {
			basket = append(basket, code)
			itemCounts[code]++
		}
		sort.Strings(basket)
		baskets = append(baskets, basket)
	}

	frequentItems := make(map[string]int)
	for item, count := range itemCounts {
		if float64(count)/float64(total) >= e.config.MinSupport {
			frequentItems[item] = count
		}
	}

	// Canonical (lexicographic) pair enumeration so each unordered pair is
	// counted once per transaction. Not restricted to frequent items first.
	pairCounts := make(map[[2]string]int)
	for _, basket := range baskets {
		for i := 0; i < len(basket); i++ {
			for j := i + 1; j < len(basket); j++ {
				pairCounts[[2]string{basket[i], basket[j]}]++
			}
		}
	}

	var mined []model.AssociationRule
	for pair, countAB := range pairCounts {
		support := float64(countAB) / float64(total)
		if support < e.config.MinSupport {
			continue
		}
		a, b := pair[0], pair[1]
		supportA := float64(itemCounts[a]) / float64(total)
		supportB := float64(itemCounts[b]) / float64(total)

		confidenceAB := float64(countAB) / float64(itemCounts[a])
		if confidenceAB >= e.config.MinConfidence {
			mined = append(mined, e.newRule(snap, a, b, support, confidenceAB, confidenceAB/supportB))
		}

		confidenceBA := float64(countAB) / float64(itemCounts[b])
		if confidenceBA >= e.config.MinConfidence {
			mined = append(mined, e.newRule(snap, b, a, support, confidenceBA, confidenceBA/supportA))
		}
	}

	// Descending by lift; ties break on the pair itself so identical data
	// always yields the same ordering.
	sort.Slice(mined, func(i, j int) bool {
		if mined[i].Lift != mined[j].Lift {
			return mined[i].Lift > mined[j].Lift
		}
		if mined[i].Antecedent != mined[j].Antecedent {
			return mined[i].Antecedent < mined[j].Antecedent
		}
		return mined[i].Consequent < mined[j].Consequent
	})

	return &Result{FrequentItems: frequentItems, Rules: mined}
}

func (e *Engine) newRule(snap *repository.Snapshot, antecedent, consequent string, support, confidence, lift float64) model.AssociationRule {
	return model.AssociationRule{
		Antecedent:         antecedent,
		Consequent:         consequent,
		AntecedentCategory: snap.CategoryLabelForProduct(antecedent),
		ConsequentCategory: snap.CategoryLabelForProduct(consequent),
		Support:            support,
		Confidence:         confidence,
		Lift:               lift,
	}
}
