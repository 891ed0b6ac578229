package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	delay time.Duration
	err   error
}

func (f fakeRunner) Run(ctx context.Context) error {
	select {
	case <-time.After(f.delay):
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestTracker_SubmitRecordsTerminalStatus(t *testing.T) {
	tr := NewTracker()
	op := NewOpID()
	require.NotEmpty(t, op)

	task := tr.Submit(context.Background(), op, MakeSnapshot, "", fakeRunner{})
	require.Eventually(t, func() bool {
		return tr.Status(op)[0].Status == Done
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, task.OpID, op)
}

func TestTracker_SubmitIsIdempotent(t *testing.T) {
	tr := NewTracker()
	op := NewOpID()

	t1 := tr.Submit(context.Background(), op, LoadTable, "t1", fakeRunner{delay: 50 * time.Millisecond})
	t2 := tr.Submit(context.Background(), op, LoadTable, "t1", fakeRunner{delay: 50 * time.Millisecond})
	require.Same(t, t1, t2)
	require.Len(t, tr.Status(op), 1)
}

func TestTracker_FailedRunnerRecordsError(t *testing.T) {
	tr := NewTracker()
	op := NewOpID()
	tr.Submit(context.Background(), op, DropTable, "", fakeRunner{err: errors.New("boom")})
	require.Eventually(t, func() bool {
		return tr.Status(op)[0].Status == Failed
	}, time.Second, 5*time.Millisecond)
	require.EqualError(t, tr.Status(op)[0].Err, "boom")
}

func TestTracker_CancelStopsRunningTask(t *testing.T) {
	tr := NewTracker()
	op := NewOpID()
	tr.Submit(context.Background(), op, SendSnapshot, "", fakeRunner{delay: time.Second})
	require.NoError(t, tr.Cancel(op, SendSnapshot, ""))
	require.Eventually(t, func() bool {
		return tr.Status(op)[0].Status == Canceled
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_DeleteOPTaskRemovesRecord(t *testing.T) {
	tr := NewTracker()
	op := NewOpID()
	tr.Submit(context.Background(), op, MakeSnapshot, "", fakeRunner{})
	tr.DeleteOPTask([]string{op})
	require.Empty(t, tr.Status(op))
}
