package gc

import (
	"sync"

	"github.com/MyJetTools/my-no-sql-core/dbtable"
)

// TableRegistry is a minimal thread-safe collection of tables, letting
// Service sweep every table without callers manually wiring Tables.
type TableRegistry struct {
	mu     sync.RWMutex
	tables map[string]*dbtable.DbTable
}

// NewTableRegistry builds an empty registry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{tables: make(map[string]*dbtable.DbTable)}
}

// Register adds or replaces a table under its own name.
func (r *TableRegistry) Register(table *dbtable.DbTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.Name] = table
}

// Unregister drops a table by name.
func (r *TableRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, name)
}

// Get returns the table registered under name, if any.
func (r *TableRegistry) Get(name string) (*dbtable.DbTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.tables[name]
	return table, ok
}

// EachTable implements Tables, snapshotting the table list before visiting
// so a concurrent Register/Unregister never races with the sweep.
func (r *TableRegistry) EachTable(visit func(table *dbtable.DbTable)) {
	r.mu.RLock()
	snapshot := make([]*dbtable.DbTable, 0, len(r.tables))
	for _, table := range r.tables {
		snapshot = append(snapshot, table)
	}
	r.mu.RUnlock()

	for _, table := range snapshot {
		visit(table)
	}
}
