package dbtable_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/MyJetTools/my-no-sql-core/dbpartition"
	"github.com/MyJetTools/my-no-sql-core/dbrow"
	"github.com/MyJetTools/my-no-sql-core/dbtable"
	"github.com/MyJetTools/my-no-sql-core/instant"
	"github.com/MyJetTools/my-no-sql-core/jsonrow"
)

func newRow(t *testing.T, raw string) *dbrow.DbRow {
	t.Helper()
	parsed, err := jsonrow.Parse([]byte(raw))
	require.NoError(t, err)
	return dbrow.NewFromParsed(parsed, instant.Now())
}

func newTable(t *testing.T) *dbtable.DbTable {
	t.Helper()
	now := instant.Now()
	return dbtable.New("test-table", dbtable.NewAttributes(now), now)
}

func TestInsertThenRead(t *testing.T) {
	table := newTable(t)
	row := newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`)

	old, replaced := table.InsertOrReplaceRow(row, instant.Now(), true)
	require.False(t, replaced)
	require.Nil(t, old)

	got, ok := table.GetRow("p1", "r1")
	require.True(t, ok)
	require.Equal(t, row, got)
	require.Equal(t, 1, table.PartitionsAmount())
	require.Equal(t, 1, table.RowsAmount())
}

func TestInsertOrReplaceGrowsThenShrinks(t *testing.T) {
	table := newTable(t)
	table.InsertOrReplaceRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1","A":123456}`), instant.Now(), true)
	sizeAfterFirst := table.TableSize()

	_, replaced := table.InsertOrReplaceRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	require.True(t, replaced)
	require.Less(t, table.TableSize(), sizeAfterFirst)
}

func TestInsertRowFailsWhenAlreadyPresent(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	inserted := table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1","Extra":1}`), instant.Now(), true)
	require.False(t, inserted)
	require.Equal(t, 1, table.RowsAmount())
}

func TestRemoveRowDeletesEmptyPartitionWhenRequested(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	_, ok := table.RemoveRow("p1", "r1", true, instant.Now())
	require.True(t, ok)
	require.False(t, table.HasPartition("p1"))
}

func TestRemoveRowKeepsNonEmptyPartition(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r2"}`), instant.Now(), true)

	_, ok := table.RemoveRow("p1", "r1", true, instant.Now())
	require.True(t, ok)
	require.True(t, table.HasPartition("p1"))
}

func TestBulkInsertOrReplaceReturnsDisplaced(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	displaced := table.BulkInsertOrReplace("p1", []*dbrow.DbRow{
		newRow(t, `{"PartitionKey":"p1","RowKey":"r1","Extra":1}`),
		newRow(t, `{"PartitionKey":"p1","RowKey":"r2"}`),
	}, instant.Now(), true)

	require.Len(t, displaced, 1)
	require.Equal(t, 2, table.RowsAmount())
}

func TestRemovePartitionDropsEverything(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	_, ok := table.RemovePartition("p1", instant.Now())
	require.True(t, ok)
	require.Equal(t, 0, table.PartitionsAmount())
}

func TestClearTableReturnsEverythingAndEmptiesTable(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p2","RowKey":"r1"}`), instant.Now(), true)

	cleared := table.ClearTable(instant.Now())
	require.Len(t, cleared, 2)
	require.Equal(t, 0, table.PartitionsAmount())

	require.Nil(t, table.ClearTable(instant.Now()))
}

func TestUpdateRowExpirationTimeNoneToSome(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	newExpires := instant.FromUnixMicros(1)
	old, changed := table.UpdateRowExpirationTime("p1", "r1", newExpires, true)
	require.True(t, changed)
	require.NotNil(t, old)

	row, _ := table.GetRow("p1", "r1")
	expires, has := row.Expires()
	require.True(t, has)
	require.Equal(t, newExpires, expires)
}

func TestGetRowsAndUpdateExpirationTimeTouchesReadMoment(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	partition, _ := table.GetPartition("p1")
	before := partition.LastReadMoment()

	now := instant.Now().AddMicros(10000)
	rows := table.GetRowsAndUpdateExpirationTime("p1", []string{"r1"}, dbpartition.ReadMomentAlways, now)
	require.Len(t, rows, 1)
	require.Equal(t, now, partition.LastReadMoment())
	require.NotEqual(t, before, partition.LastReadMoment())
}

func TestGetAllRowsAndUpdateExpirationTimeOnlyIfFound(t *testing.T) {
	table := newTable(t)
	partition, _ := table.GetPartition("missing")
	require.Nil(t, partition)

	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	p, _ := table.GetPartition("p1")
	before := p.LastReadMoment()

	now := instant.Now().AddMicros(10000)
	rows := table.GetAllRowsAndUpdateExpirationTime("p1", dbpartition.ReadMomentOnlyIfFound, now)
	require.Len(t, rows, 1)
	require.Equal(t, now, p.LastReadMoment())
	require.NotEqual(t, before, p.LastReadMoment())
}

func TestGetDataToGcExpiresRowsWithinSurvivingPartitions(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1","Expires":"2019-01-01T00:00:00"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r2"}`), instant.Now(), true)

	plan := table.GetDataToGc(instant.Now())
	require.False(t, plan.HasPartitionToGC("p1"))
	require.Equal(t, []string{"r1"}, plan.RowsToExpire()["p1"])
}

func TestGetDataToGcPartitionExpirationShadowsRowExpiration(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1","Expires":"2019-01-01T00:00:00"}`), instant.Now(), true)
	table.UpdatePartitionExpirationTime("p1", instant.FromUnixMicros(1), true)

	plan := table.GetDataToGc(instant.Now())
	require.True(t, plan.HasPartitionToGC("p1"))
	require.Empty(t, plan.RowsToExpire()["p1"])
}

func TestGetDataToGcByMaxPartitionsAmount(t *testing.T) {
	table := newTable(t)
	table.UpdateAttributes(true, true, 1, false, 0)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p2","RowKey":"r1"}`), instant.Now(), true)

	plan := table.GetDataToGc(instant.Now())
	require.Len(t, plan.PartitionsToExpire(), 1)
}

func TestGetDataToGcByMaxRowsPerPartitionAmount(t *testing.T) {
	table := newTable(t)
	table.UpdateAttributes(true, false, 0, true, 1)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r2"}`), instant.Now(), true)

	plan := table.GetDataToGc(instant.Now())
	require.Len(t, plan.RowsToExpire()["p1"], 1)
}

func TestGetDataToGcIsEmptyWhenNothingToDo(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	plan := table.GetDataToGc(instant.Now())
	require.True(t, plan.IsEmpty())
}

func TestGetTableSnapshotCopiesEveryPartition(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p2","RowKey":"r1"}`), instant.Now(), true)

	snap := table.GetTableSnapshot()
	require.Len(t, snap.ByPartition, 2)
	require.Len(t, snap.ByPartition["p1"].Rows, 1)
}

func TestPartitionSnapshotHasToPersist(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)

	snap, ok := table.GetPartitionSnapshot("p1")
	require.True(t, ok)

	require.True(t, snap.HasToPersist(instant.FromUnixMicros(1)))
	require.False(t, snap.HasToPersist(snap.LastWriteMoment.AddMicros(1)))
}

func TestGetTableSnapshotIsStableAcrossCallsUntilMutated(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p2","RowKey":"r1"}`), instant.Now(), true)

	rowKeysByPartition := func(snap *dbtable.TableSnapshot) map[string][]string {
		out := make(map[string][]string, len(snap.ByPartition))
		for partitionKey, partitionSnap := range snap.ByPartition {
			for _, row := range partitionSnap.Rows {
				out[partitionKey] = append(out[partitionKey], row.RowKey())
			}
		}
		return out
	}

	before := rowKeysByPartition(table.GetTableSnapshot())
	again := rowKeysByPartition(table.GetTableSnapshot())
	if diff := cmp.Diff(before, again, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("snapshot taken twice without mutation should be identical (-before +again):\n%s", diff)
	}

	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r2"}`), instant.Now(), true)
	after := rowKeysByPartition(table.GetTableSnapshot())
	if diff := cmp.Diff(before, after, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff == "" {
		t.Fatal("snapshot should differ after inserting a new row")
	}
}

func TestGetTableAsJSONArrayWrapsEveryRow(t *testing.T) {
	table := newTable(t)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`), instant.Now(), true)
	table.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r2"}`), instant.Now(), true)

	data := table.GetTableAsJSONArray()
	require.Equal(t, byte('['), data[0])
	require.Equal(t, byte(']'), data[len(data)-1])
}

func TestInitPartitionInstallsWithoutTouchingLastWriteMoment(t *testing.T) {
	table := newTable(t)
	before := table.LastWriteMoment()

	p := dbpartition.New()
	p.InsertRow(newRow(t, `{"PartitionKey":"p1","RowKey":"r1"}`))
	table.InitPartition("p1", p)

	require.Equal(t, before, table.LastWriteMoment())
	require.True(t, table.HasPartition("p1"))
}
