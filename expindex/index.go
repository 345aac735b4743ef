// Package expindex implements the ordered instant -> multiset index shared
// by row-level and partition-level expiration tracking. It never owns a
// lock of its own: callers hold whatever lock guards the aggregate the
// index belongs to.
package expindex

import (
	"github.com/google/btree"

	"github.com/MyJetTools/my-no-sql-core/instant"
)

const degree = 32

type bucket[T any] struct {
	at    int64
	items []T
}

// Index is an ordered mapping from expiration instant to the set of items
// due at that instant. Equality for Remove is caller-supplied, since items
// such as rows are considered "the same" by key rather than by full value.
type Index[T any] struct {
	tree   *btree.BTreeG[*bucket[T]]
	same   func(a, b T) bool
	amount int
}

// New builds an empty index. same decides whether two items are the same
// entity for the purposes of Remove.
func New[T any](same func(a, b T) bool) *Index[T] {
	return &Index[T]{
		tree: btree.NewG(degree, func(a, b *bucket[T]) bool { return a.at < b.at }),
		same: same,
	}
}

// Add appends item to the bucket at t. A zero hasT is a no-op, mirroring
// add(None, _) in the original design.
func (idx *Index[T]) Add(t instant.Instant, hasT bool, item T) {
	if !hasT {
		return
	}

	probe := &bucket[T]{at: t.UnixMicros()}
	if existing, found := idx.tree.Get(probe); found {
		existing.items = append(existing.items, item)
	} else {
		idx.tree.ReplaceOrInsert(&bucket[T]{at: probe.at, items: []T{item}})
	}
	idx.amount++
}

// Remove drops the first occurrence of item from the bucket at t. The
// amount counter is decremented whenever hasT is true, even if no matching
// item was found in the bucket, matching the contract this index was
// ported from.
func (idx *Index[T]) Remove(t instant.Instant, hasT bool, item T) {
	if !hasT {
		return
	}

	probe := &bucket[T]{at: t.UnixMicros()}
	if existing, found := idx.tree.Get(probe); found {
		for i, candidate := range existing.items {
			if idx.same(candidate, item) {
				existing.items = append(existing.items[:i], existing.items[i+1:]...)
				break
			}
		}
		if len(existing.items) == 0 {
			idx.tree.Delete(probe)
		}
	}
	idx.amount--
}

// Update moves item from bucket oldAt to bucket newAt.
func (idx *Index[T]) Update(oldAt instant.Instant, hasOldAt bool, newAt instant.Instant, hasNewAt bool, item T) {
	idx.Remove(oldAt, hasOldAt, item)
	idx.Add(newAt, hasNewAt, item)
}

// ItemsDue returns every item in a bucket with instant <= now, in
// ascending-instant order, or nil if none are due.
func (idx *Index[T]) ItemsDue(now instant.Instant) []T {
	var result []T
	idx.tree.Ascend(func(b *bucket[T]) bool {
		if b.at > now.UnixMicros() {
			return false
		}
		result = append(result, b.items...)
		return true
	})
	return result
}

// HasBucket reports whether any item is indexed at exactly t.
func (idx *Index[T]) HasBucket(t instant.Instant) bool {
	return idx.tree.Has(&bucket[T]{at: t.UnixMicros()})
}

// Len returns the number of indexed items (not the number of buckets).
func (idx *Index[T]) Len() int {
	return idx.amount
}

// Clear empties the index.
func (idx *Index[T]) Clear() {
	idx.tree.Clear(false)
	idx.amount = 0
}
