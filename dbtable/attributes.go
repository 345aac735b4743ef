package dbtable

import "github.com/MyJetTools/my-no-sql-core/instant"

// Attributes holds the per-table configuration that governs GC and
// persistence: whether the table is persisted at all, and the optional
// caps a background GC pass enforces.
type Attributes struct {
	Persist bool

	HasMaxPartitionsAmount bool
	MaxPartitionsAmount    int

	HasMaxRowsPerPartitionAmount bool
	MaxRowsPerPartitionAmount    int

	Created instant.Instant
}

// NewAttributes builds attributes with persistence on and no caps.
func NewAttributes(now instant.Instant) *Attributes {
	return &Attributes{Persist: true, Created: now}
}

// Update overwrites every field and reports whether anything changed.
func (a *Attributes) Update(persist bool, hasMaxPartitions bool, maxPartitions int, hasMaxRows bool, maxRows int) bool {
	changed := false

	if a.Persist != persist {
		a.Persist = persist
		changed = true
	}

	if a.HasMaxPartitionsAmount != hasMaxPartitions || (hasMaxPartitions && a.MaxPartitionsAmount != maxPartitions) {
		a.HasMaxPartitionsAmount = hasMaxPartitions
		a.MaxPartitionsAmount = maxPartitions
		changed = true
	}

	if a.HasMaxRowsPerPartitionAmount != hasMaxRows || (hasMaxRows && a.MaxRowsPerPartitionAmount != maxRows) {
		a.HasMaxRowsPerPartitionAmount = hasMaxRows
		a.MaxRowsPerPartitionAmount = maxRows
		changed = true
	}

	return changed
}
