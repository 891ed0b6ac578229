package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/schema"
	"github.com/fedb/tabletd/internal/ttl"
)

func defaultIndexMemTable(t *testing.T, tt ttl.St) *MemTable {
	t.Helper()
	meta := &schema.TableMeta{
		Columns: []schema.Column{
			{Name: "pk", Type: schema.String},
			{Name: "ts", Type: schema.Timestamp, IsTsCol: true, TsIdx: 0},
		},
		TableTTL: tt,
	}
	ti, err := schema.ParseFromMeta(meta)
	require.NoError(t, err)
	return New(ti, DefaultHeightConfig())
}

func TestMemTable_PutGet_NeverExpire(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 0})

	require.NoError(t, mt.Put("idx0", "k1", 100, []byte("v100")))
	require.NoError(t, mt.Put("idx0", "k1", 200, []byte("v200")))
	require.NoError(t, mt.Put("idx0", "k1", 150, []byte("v150")))

	rec, ok, err := mt.Get(ScanArgs{PK: "k1"}, "idx0", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(200), rec.TS)
	require.Equal(t, "v200", string(rec.Value))

	recs, err := mt.Scan(ScanArgs{PK: "k1", Limit: 10}, "idx0", "")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, []uint64{200, 150, 100}, []uint64{recs[0].TS, recs[1].TS, recs[2].TS})
}

func TestMemTable_Get_AbsoluteExpired(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 1000})

	require.NoError(t, mt.Put("idx0", "k1", 500, []byte("old")))
	require.NoError(t, mt.Put("idx0", "k1", 2000, []byte("new")))

	et, etType := resolveBounds(ScanArgs{HasExpireTime: true, ExpireTime: 1000})
	require.Equal(t, uint64(1000), et)
	require.Equal(t, Ge, etType)

	recs, err := mt.Scan(ScanArgs{PK: "k1", Limit: 10}, "idx0", "")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, uint64(2000), recs[0].TS)
}

func TestMemTable_Count_LatestFiltersExpired(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Latest, LatCount: 2})

	require.NoError(t, mt.Put("idx0", "k1", 1, []byte("a")))
	require.NoError(t, mt.Put("idx0", "k1", 2, []byte("b")))
	require.NoError(t, mt.Put("idx0", "k1", 3, []byte("c")))

	n, err := mt.Count("idx0", "k1", true)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = mt.Count("idx0", "k1", false)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestMemTable_MultiTs_GetByTsName(t *testing.T) {
	meta := &schema.TableMeta{
		Columns: []schema.Column{
			{Name: "k", Type: schema.String},
			{Name: "t1", Type: schema.Int64, IsTsCol: true, TsIdx: 0},
			{Name: "t2", Type: schema.Int64, IsTsCol: true, TsIdx: 1},
		},
		ColumnKeys: []schema.ColumnKey{
			{IndexName: "idx_k", ColNames: []string{"k"}, TsNames: []string{"t1", "t2"}},
		},
		TableTTL: ttl.St{Type: ttl.Absolute, AbsMs: 0},
	}
	ti, err := schema.ParseFromMeta(meta)
	require.NoError(t, err)
	mt := New(ti, DefaultHeightConfig())

	err = mt.PutMultiTs(
		map[string]string{"idx_k_t1": "pk1"},
		[]TsDimension{{TsName: "t1", TS: 100}, {TsName: "t2", TS: 500}},
		[]byte("v"),
	)
	require.NoError(t, err)

	rec, ok, err := mt.Get(ScanArgs{PK: "pk1"}, "idx_k_t1", "t1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), rec.TS)

	rec, ok, err = mt.Get(ScanArgs{PK: "pk1"}, "idx_k_t1", "t2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(500), rec.TS)
}

func TestMemTable_Scan_RejectsStLessThanEt(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 0})
	_, err := mt.Scan(ScanArgs{PK: "k1", St: 10, Et: 20, Limit: 10}, "idx0", "")
	require.Error(t, err)
	require.Equal(t, errs.StLessThanEt, errs.CodeOf(err))
}

func TestMemTable_Scan_RejectsAtleastAboveLimit(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 0})
	_, err := mt.Scan(ScanArgs{PK: "k1", Limit: 5, Atleast: 10}, "idx0", "")
	require.Error(t, err)
}

func TestMemTable_PutDimensions_RejectsEmptyPK(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 0})
	err := mt.PutDimensions(100, []byte("v"), map[string]string{"idx0": ""})
	require.Error(t, err)
}

func TestMemTable_Traverse_OrdersByPkThenTsDescending(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 0})
	require.NoError(t, mt.Put("idx0", "a", 10, []byte("a10")))
	require.NoError(t, mt.Put("idx0", "a", 20, []byte("a20")))
	require.NoError(t, mt.Put("idx0", "b", 5, []byte("b5")))

	res, err := mt.Traverse("idx0", TraverseCursor{}, 100)
	require.NoError(t, err)
	require.True(t, res.IsFinish)
	require.Len(t, res.Records, 3)
	require.Equal(t, "a", res.Records[0].PK)
	require.Equal(t, uint64(20), res.Records[0].Record.TS)
	require.Equal(t, "a", res.Records[1].PK)
	require.Equal(t, uint64(10), res.Records[1].Record.TS)
	require.Equal(t, "b", res.Records[2].PK)
}

func TestMemTable_Traverse_PagesWithCursor(t *testing.T) {
	mt := defaultIndexMemTable(t, ttl.St{Type: ttl.Absolute, AbsMs: 0})
	require.NoError(t, mt.Put("idx0", "a", 10, []byte("a10")))
	require.NoError(t, mt.Put("idx0", "a", 20, []byte("a20")))
	require.NoError(t, mt.Put("idx0", "b", 5, []byte("b5")))

	page1, err := mt.Traverse("idx0", TraverseCursor{}, 2)
	require.NoError(t, err)
	require.False(t, page1.IsFinish)
	require.Len(t, page1.Records, 2)

	page2, err := mt.Traverse("idx0", page1.Cursor, 2)
	require.NoError(t, err)
	require.True(t, page2.IsFinish)
	require.Len(t, page2.Records, 1)
	require.Equal(t, "b", page2.Records[0].PK)
}
