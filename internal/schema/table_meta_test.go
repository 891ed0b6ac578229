package schema

import (
	"testing"

	"github.com/fedb/tabletd/internal/ttl"
	"github.com/stretchr/testify/require"
)

func TestParseFromMeta_DefaultIndex(t *testing.T) {
	meta := &TableMeta{
		Columns: []Column{
			{Name: "pk", Type: String},
			{Name: "ts", Type: Timestamp, IsTsCol: true, TsIdx: 0},
		},
		TableTTL: ttl.St{Type: ttl.Absolute, AbsMs: 0},
	}

	ti, err := ParseFromMeta(meta)
	require.NoError(t, err)
	require.Equal(t, 1, ti.Size())

	idx, ok := ti.GetIndex("idx0")
	require.True(t, ok)
	require.Equal(t, PrimaryKey, idx.Kind)
}

func TestParseFromMeta_MultiTsSharesInnerIndex(t *testing.T) {
	meta := &TableMeta{
		Columns: []Column{
			{Name: "k", Type: String},
			{Name: "t1", Type: Int64, IsTsCol: true, TsIdx: 0},
			{Name: "t2", Type: Int64, IsTsCol: true, TsIdx: 1},
		},
		ColumnKeys: []ColumnKey{
			{ColNames: []string{"k"}, TsNames: []string{"t1", "t2"}},
		},
		TableTTL: ttl.St{Type: ttl.Absolute},
	}

	ti, err := ParseFromMeta(meta)
	require.NoError(t, err)
	require.Equal(t, 2, ti.Size())

	idxT1, ok := ti.GetIndexByTs("k_t1", "t1")
	require.True(t, ok)
	idxT2, ok := ti.GetIndexByTs("k_t1", "t2")
	require.True(t, ok)
	require.Equal(t, idxT1.InnerPos, idxT2.InnerPos, "indexes sharing key columns must share one inner position")

	inner, ok := ti.InnerIndexByPos(idxT1.InnerPos)
	require.True(t, ok)
	require.Len(t, inner.Indexes, 2)
	require.ElementsMatch(t, []int32{0, 1}, inner.TsIdxList)
}

func TestParseFromMeta_RejectsFloatIndex(t *testing.T) {
	meta := &TableMeta{
		Columns: []Column{
			{Name: "f", Type: Float},
		},
		ColumnKeys: []ColumnKey{
			{ColNames: []string{"f"}},
		},
	}

	_, err := ParseFromMeta(meta)
	require.Error(t, err)
}

func TestParseFromMeta_RejectsTooManyIndexes(t *testing.T) {
	meta := &TableMeta{
		Columns: []Column{{Name: "k", Type: String}},
	}
	for i := 0; i < MaxIndexCount+1; i++ {
		meta.ColumnKeys = append(meta.ColumnKeys, ColumnKey{
			IndexName: indexNameForTest(i),
			ColNames:  []string{"k"},
		})
	}

	_, err := ParseFromMeta(meta)
	require.Error(t, err)
}

func indexNameForTest(i int) string {
	return "idx_" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestCombineKeyString_OrderIndependent(t *testing.T) {
	require.Equal(t, CombineKeyString([]string{"a", "b"}), CombineKeyString([]string{"b", "a"}))
	require.NotEqual(t, CombineKeyString([]string{"a", "b"}), CombineKeyString([]string{"a", "c"}))
}

func TestIndex_UpdateTTL_RejectsTypeChange(t *testing.T) {
	idx := NewIndex("idx0", 1, PrimaryKey, []string{"pk"}, nil, ttl.St{Type: ttl.Absolute, AbsMs: 1000})
	err := idx.UpdateTTL(ttl.St{Type: ttl.Latest, LatCount: 5})
	require.Error(t, err)

	err = idx.UpdateTTL(ttl.St{Type: ttl.Absolute, AbsMs: 2000})
	require.NoError(t, err)
	require.Equal(t, uint64(2000), idx.TTL().AbsMs)
}
