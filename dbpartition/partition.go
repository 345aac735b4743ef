package dbpartition

import (
	"github.com/MyJetTools/my-no-sql-core/dbrow"
	"github.com/MyJetTools/my-no-sql-core/instant"
)

// ReadMomentMode selects how Partition.UpdateLastReadMoment treats an
// update: unconditional, conditional on the operation having found its
// target row, or a no-op. Named Always/OnlyIfFound/None to mirror the
// three-way choice callers make per operation.
type ReadMomentMode int

const (
	ReadMomentNone ReadMomentMode = iota
	ReadMomentAlways
	ReadMomentOnlyIfFound
)

// Partition wraps a RowsContainer with content-size accounting,
// last-read/last-write instants, and an independent partition-level
// expiration.
type Partition struct {
	rows *RowsContainer

	contentSize int

	lastReadMoment  *instant.Atomic
	lastWriteMoment *instant.Atomic

	hasExpires bool
	expires    instant.Instant
}

// New builds an empty partition with last-read/last-write set to now.
func New() *Partition {
	now := instant.Now()
	return &Partition{
		rows:            NewRowsContainer(),
		lastReadMoment:  instant.NewAtomic(now),
		lastWriteMoment: instant.NewAtomic(now),
	}
}

// ContentSize is the sum of every contained row's byte length.
func (p *Partition) ContentSize() int { return p.contentSize }

// RowsCount returns the number of rows in the partition.
func (p *Partition) RowsCount() int { return p.rows.Len() }

// IsEmpty reports whether the partition holds no rows.
func (p *Partition) IsEmpty() bool { return p.rows.Len() == 0 }

// Expires returns the partition-level expiration, independent of any
// row-level expirations.
func (p *Partition) Expires() (instant.Instant, bool) { return p.expires, p.hasExpires }

// SetExpires sets the partition-level expiration directly; the table is
// responsible for keeping the partitions-expiration index in step.
func (p *Partition) SetExpires(at instant.Instant, has bool) {
	p.expires = at
	p.hasExpires = has
}

// InsertRow inserts row only if its key is not already present.
func (p *Partition) InsertRow(row *dbrow.DbRow) bool {
	if p.rows.Has(row.RowKey()) {
		return false
	}
	p.InsertOrReplaceRow(row)
	return true
}

// InsertOrReplaceRow always inserts, adjusting content size by the
// difference between the new and any displaced row.
func (p *Partition) InsertOrReplaceRow(row *dbrow.DbRow) (old *dbrow.DbRow, replaced bool) {
	p.contentSize += row.Size()
	old, replaced = p.rows.Insert(row)
	if replaced {
		p.contentSize -= old.Size()
	}
	return old, replaced
}

// InsertOrReplaceRowsBulk applies InsertOrReplaceRow to every row in
// order, returning every displaced row.
func (p *Partition) InsertOrReplaceRowsBulk(rows []*dbrow.DbRow) []*dbrow.DbRow {
	var displaced []*dbrow.DbRow
	for _, row := range rows {
		if old, replaced := p.InsertOrReplaceRow(row); replaced {
			displaced = append(displaced, old)
		}
	}
	return displaced
}

// RemoveRow removes row_key, adjusting content size if it was present.
func (p *Partition) RemoveRow(rowKey string) (*dbrow.DbRow, bool) {
	old, ok := p.rows.Remove(rowKey)
	if ok {
		p.contentSize -= old.Size()
	}
	return old, ok
}

// RemoveRowsBulk removes every key present, skipping absent ones.
func (p *Partition) RemoveRowsBulk(rowKeys []string) []*dbrow.DbRow {
	var removed []*dbrow.DbRow
	for _, key := range rowKeys {
		if old, ok := p.RemoveRow(key); ok {
			removed = append(removed, old)
		}
	}
	return removed
}

// GetRow returns the row stored at row_key.
func (p *Partition) GetRow(rowKey string) (*dbrow.DbRow, bool) {
	return p.rows.Get(rowKey)
}

// GetAllRows returns every row in ascending row_key order.
func (p *Partition) GetAllRows() []*dbrow.DbRow {
	return p.rows.All()
}

// GetHighestRowAndBelow delegates to the RowsContainer's range scan.
func (p *Partition) GetHighestRowAndBelow(upperKey string, limit int, hasLimit bool) []*dbrow.DbRow {
	return p.rows.RangeBelow(upperKey, limit, hasLimit)
}

// UpdateExpirationTime delegates to the RowsContainer.
func (p *Partition) UpdateExpirationTime(rowKey string, newExpires instant.Instant, hasNewExpires bool) (*dbrow.DbRow, bool) {
	return p.rows.UpdateExpirationTime(rowKey, newExpires, hasNewExpires)
}

// RowsToExpire returns rows whose expires is due at or before now.
func (p *Partition) RowsToExpire(now instant.Instant) []*dbrow.DbRow {
	return p.rows.RowsToExpire(now)
}

// RowsToGCByMaxAmount reports, without mutating anything, which rows a
// max-rows-per-partition policy would evict.
func (p *Partition) RowsToGCByMaxAmount(max int) []*dbrow.DbRow {
	return p.rows.RowsToGCByMaxAmount(max)
}

// ExpirationIndexLen reports the size of the row expiration index.
func (p *Partition) ExpirationIndexLen() int {
	return p.rows.ExpirationIndexLen()
}

// FillWithJSONData invokes emit with the raw bytes of every row, in
// ascending row_key order, for a caller assembling a JSON array.
func (p *Partition) FillWithJSONData(emit func(raw []byte)) {
	for _, row := range p.rows.All() {
		emit(row.Data())
	}
}

// UpdateLastReadMoment applies mode to the read moment; the spec treats
// this as always touching the read instant, never the write instant.
func (p *Partition) UpdateLastReadMoment(mode ReadMomentMode, now instant.Instant, found bool) {
	switch mode {
	case ReadMomentAlways:
		p.lastReadMoment.Update(now)
	case ReadMomentOnlyIfFound:
		if found {
			p.lastReadMoment.Update(now)
		}
	}
}

// UpdateLastWriteMoment is called by the table on every mutation that
// supplies a "set last write" instant.
func (p *Partition) UpdateLastWriteMoment(now instant.Instant) {
	p.lastWriteMoment.Update(now)
}

// LastReadMoment returns the advisory last-read instant.
func (p *Partition) LastReadMoment() instant.Instant { return p.lastReadMoment.Load() }

// LastWriteMoment returns the advisory last-write instant.
func (p *Partition) LastWriteMoment() instant.Instant { return p.lastWriteMoment.Load() }

// LastAccess is the later of last-read and last-write. Partition-level
// LRU ordering does not use it; it orders by LastReadMoment alone.
func (p *Partition) LastAccess() instant.Instant {
	return instant.Max(p.lastReadMoment.Load(), p.lastWriteMoment.Load())
}

// GCRows removes the least-recently-read rows until len <= maxRowsAmount.
// Rows sharing the same last_read_access are separated by bumping the
// colliding value by 1 microsecond and writing it back, so the oldest-N
// selection stays deterministic across passes.
func (p *Partition) GCRows(maxRowsAmount int) []*dbrow.DbRow {
	if p.rows.Len() == 0 {
		return nil
	}

	all := p.rows.All()
	seen := make(map[int64]bool, len(all))
	order := make([]*dbrow.DbRow, 0, len(all))

	for _, row := range all {
		at := row.LastReadAccess()
		for seen[at.UnixMicros()] {
			at = at.AddMicros(1)
		}
		seen[at.UnixMicros()] = true
		if at != row.LastReadAccess() {
			row.UpdateLastReadAccess(at)
		}
		order = append(order, row)
	}

	sortByLastReadAccess(order)

	var gced []*dbrow.DbRow
	for _, row := range order {
		if p.rows.Len() <= maxRowsAmount {
			break
		}
		if removed, ok := p.RemoveRow(row.RowKey()); ok {
			gced = append(gced, removed)
		}
	}
	return gced
}
