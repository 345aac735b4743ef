package dbtable

import (
	"github.com/MyJetTools/my-no-sql-core/dbrow"
	"github.com/MyJetTools/my-no-sql-core/instant"
)

// PartitionSnapshot is a point-in-time copy of one partition's rows and
// instants, used to decide whether a persistence layer's last-written
// version is stale.
type PartitionSnapshot struct {
	LastReadMoment  instant.Instant
	LastWriteMoment instant.Instant
	Rows            []*dbrow.DbRow
}

// HasToPersist reports whether writtenInBlob predates this snapshot's
// last write, i.e. whatever was last persisted is stale.
func (s *PartitionSnapshot) HasToPersist(writtenInBlob instant.Instant) bool {
	return writtenInBlob.Before(s.LastWriteMoment)
}

// TableSnapshot is a point-in-time copy of an entire table.
type TableSnapshot struct {
	Attributes     Attributes
	LastUpdateTime instant.Instant
	ByPartition    map[string]*PartitionSnapshot
}
