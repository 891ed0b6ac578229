// Package catalog maintains the node's read-only view of table and
// stored-procedure definitions for the (out-of-scope) SQL engine to
// consume: table schema lookup, partition handle lookup by (tid, pid),
// and a watched, versioned rebuild whenever the registry's notification
// path changes.
package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/fedb/tabletd/internal/schema"
)

// PartitionHandle is the narrow view of a live partition the catalog
// exposes to callers; implemented by internal/tablet.Partition.
type PartitionHandle interface {
	TID() uint32
	PID() uint32
}

// TableEntry is one table's schema plus its known partition handles.
type TableEntry struct {
	Meta       *schema.TableMeta
	Index      *schema.TableIndex
	Partitions map[uint32]PartitionHandle // keyed by pid
}

// Catalog is the read-only facade the SQL engine queries. It is
// rebuilt wholesale on refresh and published behind a version counter
// so readers never observe a partially rebuilt view.
type Catalog struct {
	mu      sync.RWMutex
	tables  map[string]*TableEntry // keyed by db + "." + name
	version atomic.Uint64

	procs *ProcedureCache
}

// New builds an empty Catalog.
func New(procCacheSize int) (*Catalog, error) {
	pc, err := newProcedureCache(procCacheSize)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		tables: make(map[string]*TableEntry),
		procs:  pc,
	}, nil
}

func tableKey(db, name string) string { return db + "." + name }

// Version returns the current rebuild generation, bumped by every
// successful Replace call.
func (c *Catalog) Version() uint64 {
	return c.version.Load()
}

// Table looks up a table's schema and partition set by (db, name).
func (c *Catalog) Table(db, name string) (*TableEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tables[tableKey(db, name)]
	return e, ok
}

// Partition looks up one partition handle by (db, name, pid).
func (c *Catalog) Partition(db, name string, pid uint32) (PartitionHandle, bool) {
	e, ok := c.Table(db, name)
	if !ok {
		return nil, false
	}
	p, ok := e.Partitions[pid]
	return p, ok
}

// Replace atomically swaps in a freshly rebuilt table set and bumps
// the version counter.
func (c *Catalog) Replace(tables map[string]*TableEntry) {
	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()
	c.version.Add(1)
}

// AddPartition registers a partition handle under an existing table
// entry, used incrementally when a single partition loads without a
// full catalog rebuild.
func (c *Catalog) AddPartition(db, name string, p PartitionHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tables[tableKey(db, name)]
	if !ok {
		return
	}
	if e.Partitions == nil {
		e.Partitions = make(map[uint32]PartitionHandle)
	}
	e.Partitions[p.PID()] = p
}

// Procedures returns the catalog's compiled-procedure cache.
func (c *Catalog) Procedures() *ProcedureCache {
	return c.procs
}
