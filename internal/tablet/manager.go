package tablet

import (
	"context"
	"fmt"
	"sync"

	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/snapshot"
)

// partitionKey packs a (tid, pid) pair for the Manager's map.
type partitionKey struct{ tid, pid uint32 }

// Manager owns every partition this node currently serves. It backs
// the DropTable runner for C8's task tracker (NewDropTask) and is the
// catalog.PartitionHandle provider for C9.
type Manager struct {
	mu         sync.RWMutex
	partitions map[partitionKey]*Partition
}

// NewManager builds an empty Manager.
func NewManager() *Manager {
	return &Manager{partitions: make(map[partitionKey]*Partition)}
}

// Add registers p, replacing CreateTable/LoadTable's "already exists"
// case with an explicit error rather than silently overwriting a live
// partition.
func (m *Manager) Add(p *Partition) error {
	key := partitionKey{p.tid, p.pid}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.partitions[key]; exists {
		return errs.New(errs.TableAlreadyExists, "partition %d_%d already exists", p.tid, p.pid)
	}
	m.partitions[key] = p
	return nil
}

// Get returns the partition for (tid, pid), if this node has it.
func (m *Manager) Get(tid, pid uint32) (*Partition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.partitions[partitionKey{tid, pid}]
	return p, ok
}

// Remove drops the partition for (tid, pid) from the manager's
// bookkeeping, after the caller has already run Partition.Drop.
func (m *Manager) Remove(tid, pid uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.partitions, partitionKey{tid, pid})
}

// All returns every partition currently tracked, in no particular order.
func (m *Manager) All() []*Partition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Partition, 0, len(m.partitions))
	for _, p := range m.partitions {
		out = append(out, p)
	}
	return out
}

// Triggers adapts All() to the snapshot.Trigger interface the
// snapshot.Scheduler polls on every tick.
func (m *Manager) Triggers() []snapshot.Trigger {
	all := m.All()
	out := make([]snapshot.Trigger, len(all))
	for i, p := range all {
		out[i] = p
	}
	return out
}

// dropTask adapts Partition.Drop to the tasks.Runner interface.
type dropTask struct {
	mgr      *Manager
	tid, pid uint32
}

// NewDropTask builds a tasks.Runner that drops one partition.
func NewDropTask(mgr *Manager, tid, pid uint32) *dropTask {
	return &dropTask{mgr: mgr, tid: tid, pid: pid}
}

func (d *dropTask) Run(_ context.Context) error {
	p, ok := d.mgr.Get(d.tid, d.pid)
	if !ok {
		return fmt.Errorf("tablet: no partition %d_%d to drop", d.tid, d.pid)
	}
	if err := p.Drop(); err != nil {
		return err
	}
	d.mgr.Remove(d.tid, d.pid)
	return nil
}
