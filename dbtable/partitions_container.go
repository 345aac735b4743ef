package dbtable

import (
	"sort"

	"github.com/google/btree"

	"github.com/MyJetTools/my-no-sql-core/dbpartition"
	"github.com/MyJetTools/my-no-sql-core/expindex"
	"github.com/MyJetTools/my-no-sql-core/instant"
)

const degree = 32

type partitionEntry struct {
	key       string
	partition *dbpartition.Partition
}

// PartitionsContainer is an ordered mapping partition_key -> Partition plus
// an expiration index over partitions carrying a partition-level expires.
// It mirrors dbpartition.RowsContainer one level up. Every exported method
// assumes the caller already holds whatever lock guards the owning table.
type PartitionsContainer struct {
	data  *btree.BTreeG[partitionEntry]
	index *expindex.Index[string]
}

// NewPartitionsContainer builds an empty container.
func NewPartitionsContainer() *PartitionsContainer {
	return &PartitionsContainer{
		data:  btree.NewG(degree, func(a, b partitionEntry) bool { return a.key < b.key }),
		index: expindex.New[string](func(a, b string) bool { return a == b }),
	}
}

// Insert installs partition at key, replacing any prior occupant and
// removing its expiration-index entry before adding the new one.
func (c *PartitionsContainer) Insert(key string, partition *dbpartition.Partition) {
	prev, existed := c.data.ReplaceOrInsert(partitionEntry{key: key, partition: partition})
	if existed {
		oldExpires, oldHas := prev.partition.Expires()
		c.index.Remove(oldExpires, oldHas, key)
	}

	newExpires, newHas := partition.Expires()
	c.index.Add(newExpires, newHas, key)
}

// UpdateExpirationIndex moves key's expiration-index entry from oldExpires
// to newExpires. Partition is a mutable pointer, so a caller that changes a
// partition's expiration in place must report the old value itself here
// rather than let Insert read it back off the (already-mutated) pointer.
func (c *PartitionsContainer) UpdateExpirationIndex(key string, oldExpires instant.Instant, oldHas bool, newExpires instant.Instant, newHas bool) {
	c.index.Update(oldExpires, oldHas, newExpires, newHas, key)
}

// Remove deletes key from the ordered map and from the expiration index.
func (c *PartitionsContainer) Remove(key string) (*dbpartition.Partition, bool) {
	removed, ok := c.data.Delete(partitionEntry{key: key})
	if !ok {
		return nil, false
	}
	expires, has := removed.partition.Expires()
	c.index.Remove(expires, has, key)
	return removed.partition, true
}

// Get returns the partition stored at key, if any.
func (c *PartitionsContainer) Get(key string) (*dbpartition.Partition, bool) {
	e, ok := c.data.Get(partitionEntry{key: key})
	if !ok {
		return nil, false
	}
	return e.partition, true
}

// Has reports whether key is present.
func (c *PartitionsContainer) Has(key string) bool {
	return c.data.Has(partitionEntry{key: key})
}

// Len returns the number of partitions.
func (c *PartitionsContainer) Len() int {
	return c.data.Len()
}

// Each walks every partition in ascending key order until visit returns
// false.
func (c *PartitionsContainer) Each(visit func(key string, partition *dbpartition.Partition) bool) {
	c.data.Ascend(func(e partitionEntry) bool {
		return visit(e.key, e.partition)
	})
}

// All returns every partition keyed by partition_key.
func (c *PartitionsContainer) All() map[string]*dbpartition.Partition {
	result := make(map[string]*dbpartition.Partition, c.data.Len())
	c.Each(func(key string, partition *dbpartition.Partition) bool {
		result[key] = partition
		return true
	})
	return result
}

// Clear empties the container, returning whatever it held (nil if it was
// already empty), and resets the expiration index.
func (c *PartitionsContainer) Clear() map[string]*dbpartition.Partition {
	if c.data.Len() == 0 {
		return nil
	}
	result := c.All()
	c.data.Clear(false)
	c.index.Clear()
	return result
}

// PartitionsToExpire delegates to the expiration index.
func (c *PartitionsContainer) PartitionsToExpire(now instant.Instant) []string {
	return c.index.ItemsDue(now)
}

// PartitionsToGCByMaxAmount reports the coldest len()-max partition keys
// ordered by last_read_moment ascending, without mutating anything.
func (c *PartitionsContainer) PartitionsToGCByMaxAmount(max int) []string {
	if c.data.Len() <= max {
		return nil
	}

	type candidate struct {
		key string
		at  int64
	}

	all := make([]candidate, 0, c.data.Len())
	c.Each(func(key string, partition *dbpartition.Partition) bool {
		all = append(all, candidate{key: key, at: partition.LastReadMoment().UnixMicros()})
		return true
	})

	sort.Slice(all, func(i, j int) bool {
		if all[i].at == all[j].at {
			return all[i].key < all[j].key
		}
		return all[i].at < all[j].at
	})

	n := len(all) - max
	result := make([]string, n)
	for i := 0; i < n; i++ {
		result[i] = all[i].key
	}
	return result
}
