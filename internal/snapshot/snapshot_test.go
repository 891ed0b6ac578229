package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedb/tabletd/internal/memtable"
	"github.com/fedb/tabletd/internal/schema"
	"github.com/fedb/tabletd/internal/ttl"
)

func newTable(t *testing.T) *memtable.MemTable {
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

func TestMakeSnapshot_WritesManifestAndData(t *testing.T) {
	mt := newTable(t)
	require.NoError(t, mt.Put("idx0", "k1", 100, []byte("v1")))
	require.NoError(t, mt.Put("idx0", "k2", 200, []byte("v2")))

	dir := t.TempDir()
	cfg := Config{Dir: dir, IndexName: "idx0", Compression: CompressionOff}
	res, err := MakeSnapshot(cfg, mt, 10, 1, 0, 0)
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, uint64(2), res.Manifest.Count)
	require.Equal(t, uint64(10), res.Manifest.Offset)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, res.Manifest, m)
}

func TestMakeSnapshot_SkipsBelowThreshold(t *testing.T) {
	mt := newTable(t)
	require.NoError(t, mt.Put("idx0", "k1", 100, []byte("v1")))

	dir := t.TempDir()
	cfg := Config{Dir: dir, IndexName: "idx0", MakeSnapshotThreshold: 50}
	res, err := MakeSnapshot(cfg, mt, 110, 1, 100, 0)
	require.NoError(t, err)
	require.True(t, res.Skipped)
	require.False(t, HasManifest(dir))
}

func TestMakeSnapshot_EndOffsetBypassesThreshold(t *testing.T) {
	mt := newTable(t)
	require.NoError(t, mt.Put("idx0", "k1", 100, []byte("v1")))

	dir := t.TempDir()
	cfg := Config{Dir: dir, IndexName: "idx0", MakeSnapshotThreshold: 50}
	res, err := MakeSnapshot(cfg, mt, 110, 1, 100, 105)
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, uint64(105), res.Manifest.Offset)
}

func TestMakeSnapshot_ZlibRoundTripsThroughRecover(t *testing.T) {
	mt := newTable(t)
	require.NoError(t, mt.Put("idx0", "k1", 100, []byte("hello")))
	require.NoError(t, mt.Put("idx0", "k1", 200, []byte("world")))

	dir := t.TempDir()
	bdir := t.TempDir()
	cfg := Config{Dir: dir, IndexName: "idx0", Compression: CompressionZlib}
	_, err := MakeSnapshot(cfg, mt, 2, 1, 0, 0)
	require.NoError(t, err)

	fresh := newTable(t)
	_, err = Recover(cfg, fresh, bdir)
	require.NoError(t, err)

	rec, ok, err := fresh.Get(memtable.ScanArgs{PK: "k1"}, "idx0", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(200), rec.TS)
	require.Equal(t, "world", string(rec.Value))
}

func TestRecover_MissingDataFileProceedsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteManifest(dir, Manifest{Name: "999.sdb", Offset: 5, Term: 1, Count: 1}))

	bdir := t.TempDir()
	fresh := newTable(t)
	m, err := Recover(Config{Dir: dir, IndexName: "idx0"}, fresh, bdir)
	require.NoError(t, err)
	require.Equal(t, Manifest{}, m)
}
