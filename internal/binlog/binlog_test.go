package binlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriter_AppendAndReader_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWriter(Config{Dir: dir}, 1)
	require.NoError(t, err)
	defer w.Close()

	off1, err := w.Append(&Entry{Term: 1, Method: MethodPut, Dimensions: map[string]string{"idx0": "a"}, Value: []byte("v1")})
	require.NoError(t, err)
	off2, err := w.Append(&Entry{Term: 1, Method: MethodPut, Dimensions: map[string]string{"idx0": "b"}, Value: []byte("v2")})
	require.NoError(t, err)
	require.Equal(t, off1+1, off2)

	r, err := NewReader(dir, w.parts, nil, 0)
	require.NoError(t, err)
	defer r.Close()

	e1, status, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Ok, status)
	require.Equal(t, "v1", string(e1.Value))

	e2, status, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Ok, status)
	require.Equal(t, "v2", string(e2.Value))

	_, status, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, Eof, status)
}

func TestWriter_RollsAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWriter(Config{Dir: dir, SingleFileMaxSize: 1}, 1)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(&Entry{Value: []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")})
	require.NoError(t, err)
	_, err = w.Append(&Entry{Value: []byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	logFiles := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			logFiles++
		}
	}
	require.GreaterOrEqual(t, logFiles, 2)
}

func TestReader_WaitRecordThenNotify(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWriter(Config{Dir: dir, NotifyOnPut: true}, 1)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(&Entry{Value: []byte("first")})
	require.NoError(t, err)

	r, err := NewReader(dir, w.parts, w, 0)
	require.NoError(t, err)
	defer r.Close()

	e, status, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Ok, status)
	require.Equal(t, "first", string(e.Value))

	_, status, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, WaitRecord, status)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Append(&Entry{Value: []byte("second")})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, status, err = r.NextBlocking(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, Ok, status)
	require.Equal(t, "second", string(e.Value))
}

func TestDeleteExpired_SkipsActiveSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWriter(Config{Dir: dir, SingleFileMaxSize: 1}, 1)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 4; i++ {
		_, err := w.Append(&Entry{Value: []byte("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")})
		require.NoError(t, err)
	}

	deleted, err := DeleteExpired(dir, w.parts, 1000, 0)
	require.NoError(t, err)
	require.NotEmpty(t, deleted)

	remaining := w.parts.All()
	require.NotEmpty(t, remaining)
}
