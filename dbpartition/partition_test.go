package dbpartition_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MyJetTools/my-no-sql-core/dbpartition"
	"github.com/MyJetTools/my-no-sql-core/instant"
)

func TestInsertRowIntoEmptyPartition(t *testing.T) {
	p := dbpartition.New()
	row := newRow(t, `{"PartitionKey":"p","RowKey":"r"}`)

	inserted := p.InsertRow(row)
	require.True(t, inserted)
	require.Equal(t, 1, p.RowsCount())
	require.Equal(t, row.Size(), p.ContentSize())
}

func TestInsertRowFalseWhenAlreadyPresent(t *testing.T) {
	p := dbpartition.New()
	row := newRow(t, `{"PartitionKey":"p","RowKey":"r"}`)
	p.InsertRow(row)

	inserted := p.InsertRow(newRow(t, `{"PartitionKey":"p","RowKey":"r","Extra":1}`))
	require.False(t, inserted)
	require.Equal(t, 1, p.RowsCount())
}

func TestInsertOrReplaceRowGrowsThenShrinks(t *testing.T) {
	p := dbpartition.New()
	p.InsertOrReplaceRow(newRow(t, `{"PartitionKey":"p","RowKey":"r","A":12}`))
	sizeAfterFirst := p.ContentSize()

	p.InsertOrReplaceRow(newRow(t, `{"PartitionKey":"p","RowKey":"r","A":1}`))

	require.Equal(t, 1, p.RowsCount())
	require.NotEqual(t, sizeAfterFirst, p.ContentSize())
}

func TestRemoveRowAdjustsContentSize(t *testing.T) {
	p := dbpartition.New()
	row := newRow(t, `{"PartitionKey":"p","RowKey":"r"}`)
	p.InsertRow(row)

	removed, ok := p.RemoveRow("r")
	require.True(t, ok)
	require.Equal(t, row, removed)
	require.Equal(t, 0, p.ContentSize())
	require.True(t, p.IsEmpty())
}

func TestGetHighestRowAndBelow(t *testing.T) {
	p := dbpartition.New()
	p.InsertRow(newRow(t, `{"PartitionKey":"p","RowKey":"a"}`))
	p.InsertRow(newRow(t, `{"PartitionKey":"p","RowKey":"b"}`))
	p.InsertRow(newRow(t, `{"PartitionKey":"p","RowKey":"z"}`))

	rows := p.GetHighestRowAndBelow("b", 0, false)
	require.Len(t, rows, 2)
}

func TestGCRowsByMaxAmountReturnsOldest(t *testing.T) {
	p := dbpartition.New()
	for i, key := range []string{"r1", "r2", "r3", "r4"} {
		row := newRow(t, `{"PartitionKey":"p","RowKey":"`+key+`"}`)
		row.UpdateLastReadAccess(instant.FromUnixMicros(int64(i + 1)))
		p.InsertRow(row)
	}

	gced := p.GCRows(3)
	require.Len(t, gced, 1)
	require.Equal(t, "r1", gced[0].RowKey())
	require.Equal(t, 3, p.RowsCount())
}

func TestGCRowsBumpsCollidingAccessInstants(t *testing.T) {
	p := dbpartition.New()
	same := instant.FromUnixMicros(100)
	for _, key := range []string{"r1", "r2", "r3"} {
		row := newRow(t, `{"PartitionKey":"p","RowKey":"`+key+`"}`)
		row.UpdateLastReadAccess(same)
		p.InsertRow(row)
	}

	gced := p.GCRows(1)
	require.Len(t, gced, 2)
	require.NotEqual(t, gced[0].RowKey(), gced[1].RowKey())

	remaining, ok := p.GetRow(gced[0].RowKey())
	require.False(t, ok)
	_ = remaining
}

func TestUpdateLastReadMomentAlwaysUpdatesReadNotWrite(t *testing.T) {
	p := dbpartition.New()
	before := p.LastWriteMoment()

	now := instant.Now().AddMicros(1000)
	p.UpdateLastReadMoment(dbpartition.ReadMomentAlways, now, true)

	require.Equal(t, now, p.LastReadMoment())
	require.Equal(t, before, p.LastWriteMoment())
}

func TestUpdateLastReadMomentOnlyIfFound(t *testing.T) {
	p := dbpartition.New()
	before := p.LastReadMoment()

	now := instant.Now().AddMicros(1000)
	p.UpdateLastReadMoment(dbpartition.ReadMomentOnlyIfFound, now, false)

	require.Equal(t, before, p.LastReadMoment())

	p.UpdateLastReadMoment(dbpartition.ReadMomentOnlyIfFound, now, true)
	require.Equal(t, now, p.LastReadMoment())
}

func TestLastAccessIsMaxOfReadAndWrite(t *testing.T) {
	p := dbpartition.New()
	readAt := instant.Now().AddMicros(5000)
	writeAt := instant.Now().AddMicros(9000)

	p.UpdateLastReadMoment(dbpartition.ReadMomentAlways, readAt, true)
	p.UpdateLastWriteMoment(writeAt)

	require.Equal(t, writeAt, p.LastAccess())
}

func TestFillWithJSONDataEmitsEveryRow(t *testing.T) {
	p := dbpartition.New()
	p.InsertRow(newRow(t, `{"PartitionKey":"p","RowKey":"a"}`))
	p.InsertRow(newRow(t, `{"PartitionKey":"p","RowKey":"b"}`))

	var count int
	p.FillWithJSONData(func(raw []byte) { count++ })
	require.Equal(t, 2, count)
}

func TestPartitionExpiresGetSet(t *testing.T) {
	p := dbpartition.New()
	_, has := p.Expires()
	require.False(t, has)

	at := instant.Now()
	p.SetExpires(at, true)

	got, has := p.Expires()
	require.True(t, has)
	require.Equal(t, at, got)
}
