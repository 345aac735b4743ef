// Package dbpartition implements the row-level ordered storage (C4,
// DbRowsContainer) and the partition wrapper around it (C5, DbPartition)
// that tracks content size, read/write instants, and partition-level
// expiration.
package dbpartition

import (
	"github.com/google/btree"

	"github.com/MyJetTools/my-no-sql-core/dbrow"
	"github.com/MyJetTools/my-no-sql-core/expindex"
	"github.com/MyJetTools/my-no-sql-core/instant"
)

const degree = 32

type rowEntry struct {
	key string
	row *dbrow.DbRow
}

// RowsContainer is an ordered mapping row_key -> DbRow plus an expiration
// index over rows whose expires is set. Every exported method assumes the
// caller already holds whatever lock guards the owning table.
type RowsContainer struct {
	data  *btree.BTreeG[rowEntry]
	index *expindex.Index[*dbrow.DbRow]
}

// NewRowsContainer builds an empty container.
func NewRowsContainer() *RowsContainer {
	return &RowsContainer{
		data:  btree.NewG(degree, func(a, b rowEntry) bool { return a.key < b.key }),
		index: expindex.New[*dbrow.DbRow](dbrow.SameAs),
	}
}

// Insert adds row to the expiration index, then to the ordered map. If a
// row with the same key was displaced, its expiration-index entry is
// removed and the displaced row is returned.
func (c *RowsContainer) Insert(row *dbrow.DbRow) (displaced *dbrow.DbRow, hadDisplaced bool) {
	expires, hasExpires := row.Expires()
	c.index.Add(expires, hasExpires, row)

	prev, existed := c.data.ReplaceOrInsert(rowEntry{key: row.RowKey(), row: row})
	if !existed {
		return nil, false
	}

	oldExpires, oldHasExpires := prev.row.Expires()
	c.index.Remove(oldExpires, oldHasExpires, prev.row)
	return prev.row, true
}

// Remove deletes row_key from the ordered map and, if present, from the
// expiration index.
func (c *RowsContainer) Remove(rowKey string) (*dbrow.DbRow, bool) {
	removed, ok := c.data.Delete(rowEntry{key: rowKey})
	if !ok {
		return nil, false
	}
	expires, hasExpires := removed.row.Expires()
	c.index.Remove(expires, hasExpires, removed.row)
	return removed.row, true
}

// Get returns the row stored at row_key, if any.
func (c *RowsContainer) Get(rowKey string) (*dbrow.DbRow, bool) {
	e, ok := c.data.Get(rowEntry{key: rowKey})
	if !ok {
		return nil, false
	}
	return e.row, true
}

// Has reports whether row_key is present.
func (c *RowsContainer) Has(rowKey string) bool {
	return c.data.Has(rowEntry{key: rowKey})
}

// Len returns the number of rows.
func (c *RowsContainer) Len() int {
	return c.data.Len()
}

// All returns every row in ascending row_key order.
func (c *RowsContainer) All() []*dbrow.DbRow {
	result := make([]*dbrow.DbRow, 0, c.data.Len())
	c.data.Ascend(func(e rowEntry) bool {
		result = append(result, e.row)
		return true
	})
	return result
}

// RangeBelow returns rows with key <= upperKey in ascending order,
// truncated to limit when hasLimit is true. The scan walks the ordered
// map from the beginning, which is the simplest correct implementation
// for the partition sizes this store targets.
func (c *RowsContainer) RangeBelow(upperKey string, limit int, hasLimit bool) []*dbrow.DbRow {
	var result []*dbrow.DbRow
	c.data.Ascend(func(e rowEntry) bool {
		if e.key > upperKey {
			return false
		}
		result = append(result, e.row)
		return !hasLimit || len(result) < limit
	})
	return result
}

// UpdateExpirationTime replaces the row at row_key with a copy carrying
// newExpires, unless old and new expirations are both absent or equal, in
// which case it is a no-op. Returns the row as it was before the update.
func (c *RowsContainer) UpdateExpirationTime(rowKey string, newExpires instant.Instant, hasNewExpires bool) (*dbrow.DbRow, bool) {
	existing, ok := c.Get(rowKey)
	if !ok {
		return nil, false
	}

	oldExpires, oldHasExpires := existing.Expires()
	if !oldHasExpires && !hasNewExpires {
		return nil, false
	}
	if oldHasExpires && hasNewExpires && oldExpires.Equal(newExpires) {
		return nil, false
	}

	c.data.Delete(rowEntry{key: rowKey})
	c.index.Remove(oldExpires, oldHasExpires, existing)

	replacement := existing.WithNewExpiration(newExpires, hasNewExpires)
	c.data.ReplaceOrInsert(rowEntry{key: rowKey, row: replacement})
	repExpires, repHasExpires := replacement.Expires()
	c.index.Add(repExpires, repHasExpires, replacement)

	return existing, true
}

// RowsToExpire delegates to the expiration index.
func (c *RowsContainer) RowsToExpire(now instant.Instant) []*dbrow.DbRow {
	return c.index.ItemsDue(now)
}

// ExpirationIndexLen reports how many rows currently carry an expiration.
func (c *RowsContainer) ExpirationIndexLen() int {
	return c.index.Len()
}

// RowsToGCByMaxAmount reports the coldest len()-max rows by last_read_access
// ascending, without mutating anything. Ties break on row_key so repeated
// calls against the same state are stable.
func (c *RowsContainer) RowsToGCByMaxAmount(max int) []*dbrow.DbRow {
	all := c.All()
	if len(all) <= max {
		return nil
	}

	sortByLastReadAccess(all)
	return all[:len(all)-max]
}
