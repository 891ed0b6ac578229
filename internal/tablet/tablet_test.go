package tablet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/memtable"
	"github.com/fedb/tabletd/internal/schema"
	"github.com/fedb/tabletd/internal/snapshot"
	"github.com/fedb/tabletd/internal/ttl"
)

func newTestPartition(t *testing.T) *Partition {
	t.Helper()
	meta := &schema.TableMeta{
		Name: "t1", DB: "db1",
		Columns: []schema.Column{
			{Name: "pk", Type: schema.String},
			{Name: "ts", Type: schema.Timestamp, IsTsCol: true, TsIdx: 0},
		},
		TableTTL: ttl.St{Type: ttl.Absolute, AbsMs: 0},
	}
	idx, err := schema.ParseFromMeta(meta)
	require.NoError(t, err)
	mt := memtable.New(idx, memtable.DefaultHeightConfig())

	dir := t.TempDir()
	w, err := binlog.OpenWriter(binlog.Config{Dir: dir}, 1)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	p := NewPartition(Config{
		TID: 1, PID: 0, DBPath: dir,
		Index: idx, Meta: meta, MT: mt, Writer: w,
		Snap: snapshot.Config{Dir: t.TempDir(), IndexName: "idx0"},
	})
	require.NoError(t, p.FinishLoad())
	require.NoError(t, p.ChangeRole(true, 1))
	return p
}

func TestPartition_Put_RejectsWhenNotLeader(t *testing.T) {
	p := newTestPartition(t)
	require.NoError(t, p.ChangeRole(false, 1))

	err := p.Put(PutRequest{IndexName: "idx0", PK: "k1", TS: 100, Value: []byte("v")})
	require.Error(t, err)
}

func TestPartition_Put_RejectsWhenNotNormal(t *testing.T) {
	p := newTestPartition(t)
	require.NoError(t, p.BeginMakingSnapshot())

	err := p.Put(PutRequest{IndexName: "idx0", PK: "k1", TS: 100, Value: []byte("v")})
	require.Error(t, err)
}

func TestPartition_PutThenGet_AppendsToBinlog(t *testing.T) {
	p := newTestPartition(t)

	require.NoError(t, p.Put(PutRequest{IndexName: "idx0", PK: "k1", TS: 100, Value: []byte("v100")}))
	require.Equal(t, uint64(2), p.writer.NextOffset())

	rec, ok, err := p.Get(memtable.ScanArgs{PK: "k1"}, "idx0", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v100"), rec.Value)
}

func TestPartition_Delete_RemovesAndAppendsTombstone(t *testing.T) {
	p := newTestPartition(t)
	require.NoError(t, p.Put(PutRequest{IndexName: "idx0", PK: "k1", TS: 100, Value: []byte("v")}))
	require.NoError(t, p.Put(PutRequest{IndexName: "idx0", PK: "k1", TS: 200, Value: []byte("v2")}))

	n, err := p.Delete(DeleteRequest{IndexName: "idx0", PK: "k1"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, uint64(4), p.writer.NextOffset())

	_, ok, err := p.Get(memtable.ScanArgs{PK: "k1"}, "idx0", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPartition_Drop_ForbiddenDuringMakingSnapshot(t *testing.T) {
	p := newTestPartition(t)
	require.NoError(t, p.BeginMakingSnapshot())

	err := p.Drop()
	require.Error(t, err)
}

func TestPartition_StateTransitions_SnapshotPauseResume(t *testing.T) {
	p := newTestPartition(t)
	require.NoError(t, p.PauseSnapshot())
	require.Equal(t, SnapshotPaused, p.State())

	err := p.Put(PutRequest{IndexName: "idx0", PK: "k1", TS: 100, Value: []byte("v")})
	require.Error(t, err, "writes are only accepted in Normal state")

	require.NoError(t, p.RecoverSnapshot())
	require.Equal(t, Normal, p.State())
}

func TestManager_AddGetRemove(t *testing.T) {
	m := NewManager()
	p := newTestPartition(t)
	require.NoError(t, m.Add(p))

	err := m.Add(p)
	require.Error(t, err, "duplicate add must fail")

	got, ok := m.Get(1, 0)
	require.True(t, ok)
	require.Same(t, p, got)

	m.Remove(1, 0)
	_, ok = m.Get(1, 0)
	require.False(t, ok)
}
