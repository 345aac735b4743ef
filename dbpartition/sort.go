package dbpartition

import (
	"sort"

	"github.com/MyJetTools/my-no-sql-core/dbrow"
)

// sortByLastReadAccess orders rows ascending by last_read_access, breaking
// ties by row_key for a stable, repeatable ordering.
func sortByLastReadAccess(rows []*dbrow.DbRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].LastReadAccess(), rows[j].LastReadAccess()
		if a.Equal(b) {
			return rows[i].RowKey() < rows[j].RowKey()
		}
		return a.Before(b)
	})
}
