// Package dbtable implements the table-level state machine (C6
// DbPartitionsContainer, C7 DbTable, C8 DataToGc): an ordered collection of
// partitions guarded by a single reader-writer lock, the GC-planning pass
// that walks it, and the snapshot types a persistence layer diffs against.
package dbtable

import (
	"bytes"
	"sync"

	"github.com/MyJetTools/my-no-sql-core/dbpartition"
	"github.com/MyJetTools/my-no-sql-core/dbrow"
	"github.com/MyJetTools/my-no-sql-core/instant"
)

// DbTable is the synchronous, reader-writer-locked variant the design notes
// license as an alternative to an async/context-based lock: every
// operation below takes the lock for its own duration and returns.
type DbTable struct {
	Name string

	mu         sync.RWMutex
	attributes *Attributes
	partitions *PartitionsContainer

	lastWriteMoment *instant.Atomic
}

// New builds an empty table.
func New(name string, attributes *Attributes, now instant.Instant) *DbTable {
	return &DbTable{
		Name:            name,
		attributes:      attributes,
		partitions:      NewPartitionsContainer(),
		lastWriteMoment: instant.NewAtomic(now),
	}
}

// UpdateAttributes overwrites the table's attributes, reporting whether
// anything changed.
func (t *DbTable) UpdateAttributes(persist bool, hasMaxPartitions bool, maxPartitions int, hasMaxRows bool, maxRows int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attributes.Update(persist, hasMaxPartitions, maxPartitions, hasMaxRows, maxRows)
}

// Attributes returns a copy of the table's current attributes.
func (t *DbTable) Attributes() Attributes {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return *t.attributes
}

// LastWriteMoment returns the table-wide last-write instant.
func (t *DbTable) LastWriteMoment() instant.Instant {
	return t.lastWriteMoment.Load()
}

// PartitionsAmount returns the number of partitions in the table.
func (t *DbTable) PartitionsAmount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.partitions.Len()
}

// RowsAmount sums the row count across every partition.
func (t *DbTable) RowsAmount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	t.partitions.Each(func(_ string, partition *dbpartition.Partition) bool {
		total += partition.RowsCount()
		return true
	})
	return total
}

// TableSize sums content size across every partition.
func (t *DbTable) TableSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	t.partitions.Each(func(_ string, partition *dbpartition.Partition) bool {
		total += partition.ContentSize()
		return true
	})
	return total
}

func (t *DbTable) getOrCreatePartition(partitionKey string) *dbpartition.Partition {
	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		partition = dbpartition.New()
		t.partitions.Insert(partitionKey, partition)
	}
	return partition
}

// InsertOrReplaceRow always installs row, returning whatever it displaced.
func (t *DbTable) InsertOrReplaceRow(row *dbrow.DbRow, now instant.Instant, setLastWrite bool) (old *dbrow.DbRow, replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition := t.getOrCreatePartition(row.PartitionKey())
	old, replaced = partition.InsertOrReplaceRow(row)
	if setLastWrite {
		partition.UpdateLastWriteMoment(now)
	}
	t.lastWriteMoment.Update(now)
	return old, replaced
}

// InsertRow installs row only if its key is not already present.
func (t *DbTable) InsertRow(row *dbrow.DbRow, now instant.Instant, setLastWrite bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition := t.getOrCreatePartition(row.PartitionKey())
	inserted := partition.InsertRow(row)
	if inserted {
		if setLastWrite {
			partition.UpdateLastWriteMoment(now)
		}
		t.lastWriteMoment.Update(now)
	}
	return inserted
}

// BulkInsertOrReplace applies InsertOrReplaceRow to every row in a single
// partition, returning every displaced row.
func (t *DbTable) BulkInsertOrReplace(partitionKey string, rows []*dbrow.DbRow, now instant.Instant, setLastWrite bool) []*dbrow.DbRow {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition := t.getOrCreatePartition(partitionKey)
	displaced := partition.InsertOrReplaceRowsBulk(rows)
	if setLastWrite {
		partition.UpdateLastWriteMoment(now)
	}
	t.lastWriteMoment.Update(now)
	return displaced
}

// InitPartition installs partition at partitionKey wholesale, used when
// restoring from a snapshot. It does not touch the table's last-write
// moment, since it is not itself a write.
func (t *DbTable) InitPartition(partitionKey string, partition *dbpartition.Partition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.partitions.Insert(partitionKey, partition)
}

// RemoveRow removes rowKey from partitionKey, optionally dropping the
// partition too if it ends up empty.
func (t *DbTable) RemoveRow(partitionKey, rowKey string, deleteEmptyPartition bool, now instant.Instant) (*dbrow.DbRow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil, false
	}

	removed, ok := partition.RemoveRow(rowKey)
	if !ok {
		return nil, false
	}

	t.lastWriteMoment.Update(now)
	if deleteEmptyPartition && partition.IsEmpty() {
		t.partitions.Remove(partitionKey)
	}
	return removed, true
}

// BulkRemoveRows removes every row_key present within partitionKey.
func (t *DbTable) BulkRemoveRows(partitionKey string, rowKeys []string, deleteEmptyPartition bool, now instant.Instant) []*dbrow.DbRow {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil
	}

	removed := partition.RemoveRowsBulk(rowKeys)
	if len(removed) > 0 {
		t.lastWriteMoment.Update(now)
	}
	if deleteEmptyPartition && partition.IsEmpty() {
		t.partitions.Remove(partitionKey)
	}
	return removed
}

// RemovePartition drops partitionKey wholesale.
func (t *DbTable) RemovePartition(partitionKey string, now instant.Instant) (*dbpartition.Partition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition, ok := t.partitions.Remove(partitionKey)
	if ok {
		t.lastWriteMoment.Update(now)
	}
	return partition, ok
}

// ClearTable drops every partition, returning whatever the table held.
func (t *DbTable) ClearTable(now instant.Instant) map[string]*dbpartition.Partition {
	t.mu.Lock()
	defer t.mu.Unlock()

	cleared := t.partitions.Clear()
	if cleared != nil {
		t.lastWriteMoment.Update(now)
	}
	return cleared
}

// GetPartition returns the partition stored at partitionKey, if any.
func (t *DbTable) GetPartition(partitionKey string) (*dbpartition.Partition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.partitions.Get(partitionKey)
}

// HasPartition reports whether partitionKey is present.
func (t *DbTable) HasPartition(partitionKey string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.partitions.Has(partitionKey)
}

// GetRow returns the row at (partitionKey, rowKey), without touching any
// read-moment bookkeeping.
func (t *DbTable) GetRow(partitionKey, rowKey string) (*dbrow.DbRow, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil, false
	}
	return partition.GetRow(rowKey)
}

// GetRowsAndUpdateExpirationTime reads the given row keys from
// partitionKey and updates the partition's last-read moment according to
// mode, in one locked pass.
func (t *DbTable) GetRowsAndUpdateExpirationTime(partitionKey string, rowKeys []string, mode dbpartition.ReadMomentMode, now instant.Instant) []*dbrow.DbRow {
	t.mu.RLock()
	defer t.mu.RUnlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil
	}

	var result []*dbrow.DbRow
	for _, rowKey := range rowKeys {
		if row, found := partition.GetRow(rowKey); found {
			result = append(result, row)
		}
	}
	partition.UpdateLastReadMoment(mode, now, len(result) > 0)
	return result
}

// GetAllRowsAndUpdateExpirationTime reads every row in partitionKey and
// updates the partition's last-read moment according to mode.
func (t *DbTable) GetAllRowsAndUpdateExpirationTime(partitionKey string, mode dbpartition.ReadMomentMode, now instant.Instant) []*dbrow.DbRow {
	t.mu.RLock()
	defer t.mu.RUnlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil
	}

	rows := partition.GetAllRows()
	partition.UpdateLastReadMoment(mode, now, len(rows) > 0)
	return rows
}

// GetHighestRowAndBelowAndUpdateExpirationTime ranges partitionKey's rows
// up to upperKey and updates the partition's last-read moment according to
// mode.
func (t *DbTable) GetHighestRowAndBelowAndUpdateExpirationTime(partitionKey, upperKey string, limit int, hasLimit bool, mode dbpartition.ReadMomentMode, now instant.Instant) []*dbrow.DbRow {
	t.mu.RLock()
	defer t.mu.RUnlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil
	}

	rows := partition.GetHighestRowAndBelow(upperKey, limit, hasLimit)
	partition.UpdateLastReadMoment(mode, now, len(rows) > 0)
	return rows
}

// UpdateRowExpirationTime delegates to the owning partition.
func (t *DbTable) UpdateRowExpirationTime(partitionKey, rowKey string, newExpires instant.Instant, hasNewExpires bool) (*dbrow.DbRow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil, false
	}
	return partition.UpdateExpirationTime(rowKey, newExpires, hasNewExpires)
}

// UpdatePartitionExpirationTime sets partitionKey's partition-level
// expiration and keeps the partitions-expiration index in step.
func (t *DbTable) UpdatePartitionExpirationTime(partitionKey string, newExpires instant.Instant, hasNewExpires bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return false
	}

	oldExpires, oldHas := partition.Expires()
	partition.SetExpires(newExpires, hasNewExpires)
	t.partitions.UpdateExpirationIndex(partitionKey, oldExpires, oldHas, newExpires, hasNewExpires)
	return true
}

// GetDataToGc runs the four-step GC planning pass: partitions over the max
// count, partitions past their expiration, then for every surviving
// partition its own expired and over-max-count rows.
func (t *DbTable) GetDataToGc(now instant.Instant) *DataToGc {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := NewDataToGc()

	if t.attributes.HasMaxPartitionsAmount {
		for _, key := range t.partitions.PartitionsToGCByMaxAmount(t.attributes.MaxPartitionsAmount) {
			result.AddPartitionToExpire(key)
		}
	}

	for _, key := range t.partitions.PartitionsToExpire(now) {
		result.AddPartitionToExpire(key)
	}

	t.partitions.Each(func(key string, partition *dbpartition.Partition) bool {
		if result.HasPartitionToGC(key) {
			return true
		}

		if rows := partition.RowsToExpire(now); len(rows) > 0 {
			result.AddRowsToExpire(key, rowKeysOf(rows))
		}

		if t.attributes.HasMaxRowsPerPartitionAmount {
			if rows := partition.RowsToGCByMaxAmount(t.attributes.MaxRowsPerPartitionAmount); len(rows) > 0 {
				result.AddRowsToExpire(key, rowKeysOf(rows))
			}
		}
		return true
	})

	return result
}

func rowKeysOf(rows []*dbrow.DbRow) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = row.RowKey()
	}
	return keys
}

// GetTableSnapshot copies every partition's rows and instants.
func (t *DbTable) GetTableSnapshot() *TableSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byPartition := make(map[string]*PartitionSnapshot, t.partitions.Len())
	t.partitions.Each(func(key string, partition *dbpartition.Partition) bool {
		byPartition[key] = snapshotOf(partition)
		return true
	})

	return &TableSnapshot{
		Attributes:     *t.attributes,
		LastUpdateTime: t.lastWriteMoment.Load(),
		ByPartition:    byPartition,
	}
}

// GetPartitionSnapshot copies a single partition's rows and instants.
func (t *DbTable) GetPartitionSnapshot(partitionKey string) (*PartitionSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	partition, ok := t.partitions.Get(partitionKey)
	if !ok {
		return nil, false
	}
	return snapshotOf(partition), true
}

func snapshotOf(partition *dbpartition.Partition) *PartitionSnapshot {
	return &PartitionSnapshot{
		LastReadMoment:  partition.LastReadMoment(),
		LastWriteMoment: partition.LastWriteMoment(),
		Rows:            partition.GetAllRows(),
	}
}

// GetTableAsJSONArray renders every row in the table as one JSON array,
// partitions and rows both in ascending key order.
func (t *DbTable) GetTableAsJSONArray() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	t.partitions.Each(func(_ string, partition *dbpartition.Partition) bool {
		partition.FillWithJSONData(func(raw []byte) {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.Write(raw)
		})
		return true
	})
	buf.WriteByte(']')
	return buf.Bytes()
}
