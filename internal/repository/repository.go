package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/canastalabs/canasta/internal/common"
	"github.com/canastalabs/canasta/internal/model"
)

// Invalidator is implemented by engines whose caches must be cleared when
// the repository swaps in a new snapshot.
type Invalidator interface {
	Invalidate()
}

// CountEntry is one key of a frequency count, ordered descending by count.
type CountEntry struct {
	Key   string
	Count int
}

// Repository owns the live dataset snapshot and its memoized derived views.
// All state is guarded by a read-write lock: a reader during Refresh sees
// either the fully-old or the fully-new snapshot, never a mix.
type Repository struct {
	loader *Loader

	mu           sync.RWMutex
	snap         *Snapshot
	invalidators []Invalidator

	// Memoized views, tagged with the snapshot they were computed from.
	productCounts      []CountEntry
	productCountsSnap  *Snapshot
	categoryCounts     []CountEntry
	categoryCountsSnap *Snapshot
	features           []model.CustomerFeatures
	featuresSnap       *Snapshot
}

// New creates a repository backed by the given loader. No data is read until
// the first access or an explicit Refresh.
func New(loader *Loader) *Repository {
	return &Repository{loader: loader}
}

// RegisterInvalidation adds engines to be notified after a successful refresh.
func (r *Repository) RegisterInvalidation(invs ...Invalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidators = append(r.invalidators, invs...)
}

// Refresh re-executes the load and atomically replaces the live snapshot.
// A failed load leaves the previous snapshot and every derived cache intact
// and reports the failure to the caller.
func (r *Repository) Refresh(ctx context.Context) error {
	snap, err := r.loader.Load(ctx)
	if err != nil {
		common.LogError(err, "Refresh failed, keeping previous state", nil)
		return fmt.Errorf("refresh: %w", err)
	}

	r.mu.Lock()
	r.snap = snap
	r.productCounts = nil
	r.productCountsSnap = nil
	r.categoryCounts = nil
	r.categoryCountsSnap = nil
	r.features = nil
	r.featuresSnap = nil
	invs := make([]Invalidator, len(r.invalidators))
	copy(invs, r.invalidators)
	r.mu.Unlock()

	// Dependent engines hold their own locks; notify outside ours.
	for _, inv := range invs {
		inv.Invalidate()
	}

	return nil
}

// Snapshot returns the current snapshot, loading lazily on first access.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap, nil
}

// Transactions returns the transactions of the current snapshot.
func (r *Repository) Transactions(ctx context.Context) ([]model.Transaction, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Transactions, nil
}

// ProductCounts returns per-product occurrence counts over the exploded
// view, descending by frequency. Memoized once per snapshot.
func (r *Repository) ProductCounts(ctx context.Context) ([]CountEntry, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if r.productCountsSnap == snap {
		counts := r.productCounts
		r.mu.RUnlock()
		return counts, nil
	}
	r.mu.RUnlock()

	counts := countBy(snap.Exploded, func(line model.ExplodedLine) string {
		return line.ProductCode
	})

	r.mu.Lock()
	r.productCounts = counts
	r.productCountsSnap = snap
	r.mu.Unlock()
	return counts, nil
}

// CategoryCounts returns per-category occurrence counts over the exploded
// view, descending by frequency. Memoized once per snapshot.
func (r *Repository) CategoryCounts(ctx context.Context) ([]CountEntry, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if r.categoryCountsSnap == snap {
		counts := r.categoryCounts
		r.mu.RUnlock()
		return counts, nil
	}
	r.mu.RUnlock()

	counts := countBy(snap.Exploded, func(line model.ExplodedLine) string {
		return line.CategoryID
	})

	r.mu.Lock()
	r.categoryCounts = counts
	r.categoryCountsSnap = snap
	r.mu.Unlock()
	return counts, nil
}

// CustomerFeatures returns the per-customer feature vectors, rebuilt
// wholesale from the current snapshot and memoized until the next refresh.
func (r *Repository) CustomerFeatures(ctx context.Context) ([]model.CustomerFeatures, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if r.featuresSnap == snap {
		features := r.features
		r.mu.RUnlock()
		return features, nil
	}
	r.mu.RUnlock()

	features := BuildCustomerFeatures(snap.Transactions, snap.Exploded)

	r.mu.Lock()
	r.features = features
	r.featuresSnap = snap
	r.mu.Unlock()
	return features, nil
}

// ProductsPurchased returns the set of product codes ever purchased by a
// customer. Unknown customers yield an empty set.
func (r *Repository) ProductsPurchased(ctx context.Context, customer string) (map[string]struct{}, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{})
	for _, txn := range snap.Transactions {
		if txn.Customer != customer {
			continue
		}
		for _, code := range txn.Products {
			owned[code] = struct{}{}
		}
	}
	return owned, nil
}

// CategoryLabelForProduct resolves a product code to its category display
// name via the current snapshot.
func (r *Repository) CategoryLabelForProduct(ctx context.Context, productCode string) (string, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return snap.CategoryLabelForProduct(productCode), nil
}

// countBy aggregates exploded lines into descending-frequency entries.
// Ties break on key so repeated loads of identical data produce identical
// orderings.
func countBy(lines []model.ExplodedLine, key func(model.ExplodedLine) string) []CountEntry {
	acc := make(map[string]int)
	for _, line := range lines {
		acc[key(line)]++
	}
	entries := make([]CountEntry, 0, len(acc))
	for k, c := range acc {
		entries = append(entries, CountEntry{Key: k, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
