package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPathSelector_DeterministicAcrossCalls(t *testing.T) {
	sel := NewPathSelector([]string{"/a", "/b", "/c"})
	p1 := sel.DBPath(7, 2)
	p2 := sel.DBPath(7, 2)
	require.Equal(t, p1, p2)
	require.Equal(t, filepath.Join(sel.roots[sel.indexFor(7, 2)], "7_2"), p1)
}

func TestPathSelector_SpreadsAcrossRoots(t *testing.T) {
	sel := NewPathSelector([]string{"/a", "/b", "/c", "/d"})
	seen := make(map[int]bool)
	for pid := uint32(0); pid < 50; pid++ {
		seen[sel.indexFor(1, pid)] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestRecycleBin_RecycleRenamesAndPurgeRemovesOld(t *testing.T) {
	dbDir := t.TempDir()
	partDir := filepath.Join(dbDir, "1_2")
	require.NoError(t, os.MkdirAll(partDir, 0o755))

	recycleRoot := t.TempDir()
	rb := NewRecycleBin([]string{recycleRoot}, true, time.Hour)
	rb.nowFn = func() time.Time { return time.Unix(1000, 0) }

	dest, err := rb.Recycle(1, 2, partDir)
	require.NoError(t, err)
	require.DirExists(t, dest)
	require.NoDirExists(t, partDir)

	rb.nowFn = func() time.Time { return time.Unix(1000, 0).Add(2 * time.Hour) }
	require.NoError(t, rb.Purge())
	require.NoDirExists(t, dest)
}

func TestRecycleBin_DisabledRemovesOutright(t *testing.T) {
	dbDir := t.TempDir()
	partDir := filepath.Join(dbDir, "1_2")
	require.NoError(t, os.MkdirAll(partDir, 0o755))

	rb := NewRecycleBin(nil, false, time.Hour)
	dest, err := rb.Recycle(1, 2, partDir)
	require.NoError(t, err)
	require.Empty(t, dest)
	require.NoDirExists(t, partDir)
}

func TestPools_AcquireRelease(t *testing.T) {
	pools := NewPools(2, 2, 1, 1)
	require.NoError(t, pools.Task.Acquire(context.Background()))
	require.True(t, pools.Task.TryAcquire())
	require.False(t, pools.Task.TryAcquire())
	pools.Task.Release()
	require.True(t, pools.Task.TryAcquire())
}
