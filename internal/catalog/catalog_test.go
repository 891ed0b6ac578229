package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedb/tabletd/internal/schema"
)

type fakePartition struct {
	tid, pid uint32
}

func (f fakePartition) TID() uint32 { return f.tid }
func (f fakePartition) PID() uint32 { return f.pid }

func TestCatalog_ReplaceAndLookup(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0), c.Version())

	entry := &TableEntry{
		Meta:       &schema.TableMeta{Name: "t1", DB: "db1"},
		Partitions: map[uint32]PartitionHandle{0: fakePartition{tid: 1, pid: 0}},
	}
	c.Replace(map[string]*TableEntry{"db1.t1": entry})
	require.Equal(t, uint64(1), c.Version())

	got, ok := c.Table("db1", "t1")
	require.True(t, ok)
	require.Equal(t, entry, got)

	p, ok := c.Partition("db1", "t1", 0)
	require.True(t, ok)
	require.Equal(t, uint32(0), p.PID())

	_, ok = c.Partition("db1", "t1", 99)
	require.False(t, ok)
}

func TestCatalog_AddPartitionIncrementally(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)
	c.Replace(map[string]*TableEntry{"db1.t1": {Meta: &schema.TableMeta{Name: "t1", DB: "db1"}}})

	c.AddPartition("db1", "t1", fakePartition{tid: 1, pid: 3})
	p, ok := c.Partition("db1", "t1", 3)
	require.True(t, ok)
	require.Equal(t, uint32(3), p.PID())
}

func TestProcedureCache_UpsertRecompilesOnlyWhenSQLChanges(t *testing.T) {
	pc, err := newProcedureCache(4)
	require.NoError(t, err)

	calls := 0
	compile := func(sql string) (any, error) {
		calls++
		return "plan:" + sql, nil
	}

	p1, err := pc.Upsert("db1", "sp1", "select 1", compile)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	p2, err := pc.Upsert("db1", "sp1", "select 1", compile)
	require.NoError(t, err)
	require.Same(t, p1, p2)
	require.Equal(t, 1, calls, "same SQL must not recompile")

	p3, err := pc.Upsert("db1", "sp1", "select 2", compile)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.NotEqual(t, p1.Hash, p3.Hash)
}

func TestProcedureCache_CompileErrorIsNotCached(t *testing.T) {
	pc, err := newProcedureCache(4)
	require.NoError(t, err)

	_, err = pc.Upsert("db1", "sp1", "bad sql", func(string) (any, error) {
		return nil, errors.New("compile error")
	})
	require.Error(t, err)
	_, ok := pc.Get("db1", "sp1")
	require.False(t, ok)
}

func TestCompressDecompressSQL_RoundTrips(t *testing.T) {
	payload := CompressSQL("select * from t1")
	sql, err := DecompressSQL(payload)
	require.NoError(t, err)
	require.Equal(t, "select * from t1", sql)
}
