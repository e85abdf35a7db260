package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canastalabs/canasta/internal/model"
	"github.com/canastalabs/canasta/internal/repository"
)

type stubSource struct {
	snap *repository.Snapshot
	err  error
}

func (s *stubSource) Snapshot(_ context.Context) (*repository.Snapshot, error) {
	return s.snap, s.err
}

func snapshotFromBaskets(baskets ...[]string) *repository.Snapshot {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	snap := &repository.Snapshot{
		Categories:      map[string]string{"10": "Dairy"},
		ProductCategory: map[string]string{"1": "10", "2": "10"},
	}
	for i, basket := range baskets {
		snap.Transactions = append(snap.Transactions, model.Transaction{
			Date:     day,
			Store:    1,
			Customer: "C" + string(rune('A'+i)),
			Products: basket,
		})
	}
	return snap
}

func findRule(rules []model.AssociationRule, antecedent, consequent string) (model.AssociationRule, bool) {
	for _, r := range rules {
		if r.Antecedent == antecedent && r.Consequent == consequent {
			return r, true
		}
	}
	return model.AssociationRule{}, false
}

func TestEngine_Mine(t *testing.T) {
	source := &stubSource{snap: snapshotFromBaskets(
		[]string{"1", "2"},
		[]string{"1", "2", "3"},
		[]string{"2", "3"},
	)}
	engine := NewWithConfig(source, Config{MinSupport: 0.34, MinConfidence: 0.5})

	result, err := engine.Mine(context.Background())
	require.NoError(t, err)

	// Pair {1,3} appears once: support 1/3 falls below the threshold, so
	// neither direction survives. All four remaining rules have lift 1.0.
	require.Len(t, result.Rules, 4)

	oneTwo, ok := findRule(result.Rules, "1", "2")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, oneTwo.Support, 1e-9)
	assert.InDelta(t, 1.0, oneTwo.Confidence, 1e-9)
	assert.InDelta(t, 1.0, oneTwo.Lift, 1e-9)
	assert.Equal(t, "Dairy", oneTwo.AntecedentCategory)

	threeTwo, ok := findRule(result.Rules, "3", "2")
	require.True(t, ok)
	assert.Equal(t, model.UnknownCategoryName, threeTwo.AntecedentCategory, "unmapped product falls back to the sentinel label")

	twoOne, ok := findRule(result.Rules, "2", "1")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, twoOne.Confidence, 1e-9)
	assert.InDelta(t, 1.0, twoOne.Lift, 1e-9)

	_, ok = findRule(result.Rules, "1", "3")
	assert.False(t, ok)

	assert.Equal(t, map[string]int{"1": 2, "2": 3, "3": 2}, result.FrequentItems)
}

func TestEngine_DuplicateItemsCountOnce(t *testing.T) {
	source := &stubSource{snap: snapshotFromBaskets(
		[]string{"1", "1", "2", "2", "2"},
		[]string{"1", "2"},
	)}
	engine := NewWithConfig(source, Config{MinSupport: 0.5, MinConfidence: 0.5})

	result, err := engine.Mine(context.Background())
	require.NoError(t, err)

	rule, ok := findRule(result.Rules, "1", "2")
	require.True(t, ok)
	assert.InDelta(t, 1.0, rule.Support, 1e-9)
	assert.InDelta(t, 1.0, rule.Confidence, 1e-9)
}

func TestEngine_RuleProperties(t *testing.T) {
	source := &stubSource{snap: snapshotFromBaskets(
		[]string{"1", "2", "3"},
		[]string{"1", "2"},
		[]string{"2", "3", "4"},
		[]string{"1", "4"},
		[]string{"2", "4"},
		[]string{"1", "2", "4"},
	)}
	engine := NewWithConfig(source, Config{MinSupport: 0.1, MinConfidence: 0.1})

	rules, err := engine.Rules(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	for i, r := range rules {
		assert.Greater(t, r.Support, 0.0)
		assert.LessOrEqual(t, r.Support, 1.0)
		assert.Greater(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		assert.GreaterOrEqual(t, r.Lift, 0.0)
		assert.NotEqual(t, r.Antecedent, r.Consequent)
		if i > 0 {
			assert.GreaterOrEqual(t, rules[i-1].Lift, r.Lift, "rules must be sorted by lift")
		}
	}
}

func TestEngine_MemoizationAndInvalidation(t *testing.T) {
	source := &stubSource{snap: snapshotFromBaskets([]string{"1", "2"}, []string{"1", "2"})}
	engine := New(source)
	ctx := context.Background()

	first, err := engine.Mine(ctx)
	require.NoError(t, err)
	again, err := engine.Mine(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again, "same snapshot must hit the cache")

	// A new snapshot with the same content recomputes.
	source.snap = snapshotFromBaskets([]string{"1", "2"}, []string{"1", "2"})
	fresh, err := engine.Mine(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)

	engine.Invalidate()
	rebuilt, err := engine.Mine(ctx)
	require.NoError(t, err)
	assert.NotSame(t, fresh, rebuilt)
}

func TestEngine_EmptyDataset(t *testing.T) {
	source := &stubSource{snap: &repository.Snapshot{}}
	engine := New(source)

	result, err := engine.Mine(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Rules)
	assert.Empty(t, result.FrequentItems)
}

func TestNewWithConfig_Defaults(t *testing.T) {
	engine := NewWithConfig(&stubSource{}, Config{})
	assert.InDelta(t, DefaultMinSupport, engine.config.MinSupport, 1e-9)
	assert.InDelta(t, DefaultMinConfidence, engine.config.MinConfidence, 1e-9)
}
