package replicator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/memtable"
	"github.com/fedb/tabletd/internal/schema"
	"github.com/fedb/tabletd/internal/ttl"
)

func defaultIndexMemTable(t *testing.T) *memtable.MemTable {
	t.Helper()
	meta := &schema.TableMeta{
		Columns: []schema.Column{
			{Name: "pk", Type: schema.String},
			{Name: "ts", Type: schema.Timestamp, IsTsCol: true, TsIdx: 0},
		},
		TableTTL: ttl.St{Type: ttl.Absolute, AbsMs: 0},
	}
	ti, err := schema.ParseFromMeta(meta)
	require.NoError(t, err)
	return memtable.New(ti, memtable.DefaultHeightConfig())
}

func TestFollower_AppendEntries_AppliesInOrder(t *testing.T) {
	mt := defaultIndexMemTable(t)
	f := NewFollower(mt, 0, false)

	entries := []*binlog.Entry{
		{Term: 1, Offset: 1, Method: binlog.MethodPut, IndexName: "idx0", PK: "k1", StartTs: 100, Value: []byte("v100")},
		{Term: 1, Offset: 2, Method: binlog.MethodPut, IndexName: "idx0", PK: "k1", StartTs: 200, Value: []byte("v200")},
	}
	acked, err := f.AppendEntries(1, entries)
	require.NoError(t, err)
	require.Equal(t, uint64(2), acked)
	require.Equal(t, uint64(2), f.LocalOffset())

	rec, ok, err := mt.Get(memtable.ScanArgs{PK: "k1"}, "idx0", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v200"), rec.Value)
}

func TestFollower_AppendEntries_RejectsOffsetGap(t *testing.T) {
	mt := defaultIndexMemTable(t)
	f := NewFollower(mt, 5, false)

	_, err := f.AppendEntries(1, []*binlog.Entry{{Term: 1, Offset: 10, Method: binlog.MethodPut}})
	require.Error(t, err)
	require.Equal(t, uint64(5), f.LocalOffset())
}

func TestFollower_AppendEntries_RejectsStaleTerm(t *testing.T) {
	mt := defaultIndexMemTable(t)
	f := NewFollower(mt, 0, false)
	_, err := f.AppendEntries(5, []*binlog.Entry{{Term: 5, Offset: 1, Method: binlog.MethodPut}})
	require.NoError(t, err)

	_, err = f.AppendEntries(3, []*binlog.Entry{{Term: 3, Offset: 2, Method: binlog.MethodPut}})
	require.Error(t, err)
}

type fakeSender struct {
	mu      sync.Mutex
	batches [][]*binlog.Entry
	acked   uint64
}

func (s *fakeSender) AppendEntries(_ context.Context, _ string, _, _ uint32, _ uint64, entries []*binlog.Entry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, entries)
	s.acked = entries[len(entries)-1].Offset
	return s.acked, nil
}

func TestReplicator_FanOutAppendEntries_SendsToAllFollowers(t *testing.T) {
	sender := &fakeSender{}
	r := New(Config{TID: 1, PID: 0, Sender: sender})

	require.NoError(t, r.AddReplica(context.Background(), "node-a:9527", 0, time.Millisecond))
	require.NoError(t, r.AddReplica(context.Background(), "node-b:9527", 0, time.Millisecond))
	defer r.Stop()

	err := r.FanOutAppendEntries(context.Background(), []*binlog.Entry{{Term: 0, Offset: 1, Method: binlog.MethodPut}})
	require.NoError(t, err)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.batches, 2)
}

func TestReplicator_AddReplica_RejectsDuplicateEndpoint(t *testing.T) {
	sender := &fakeSender{}
	r := New(Config{TID: 1, PID: 0, Sender: sender})
	require.NoError(t, r.AddReplica(context.Background(), "node-a:9527", 0, time.Millisecond))
	defer r.Stop()

	err := r.AddReplica(context.Background(), "node-a:9527", 0, time.Millisecond)
	require.Error(t, err)
}

func TestReplicator_TermGating_NoopWithoutClusterMode(t *testing.T) {
	r := New(Config{TID: 1, PID: 0, Sender: &fakeSender{}})
	r.SetTerm(42)
	require.Equal(t, uint64(0), r.Term())
}

func TestReplicator_TermGating_ClusterMode(t *testing.T) {
	r := New(Config{TID: 1, PID: 0, Sender: &fakeSender{}, ClusterMode: true})
	r.SetTerm(42)
	require.Equal(t, uint64(42), r.Term())
}
