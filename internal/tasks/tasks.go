// Package tasks tracks long-running node operations (OPs) and the
// tasks that make them up, keyed by op_id so a client that retries a
// call, or reconnects after a disconnect, observes the same terminal
// status rather than re-running the work.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind names one of the long-running task types the node supports.
type Kind string

const (
	MakeSnapshot    Kind = "MakeSnapshot"
	SendSnapshot    Kind = "SendSnapshot"
	LoadTable       Kind = "LoadTable"
	DropTable       Kind = "DropTable"
	PauseSnapshot   Kind = "PauseSnapshot"
	RecoverSnapshot Kind = "RecoverSnapshot"
	AddReplica      Kind = "AddReplica"
	DelReplica      Kind = "DelReplica"
	DumpIndexData   Kind = "DumpIndexData"
	LoadIndexData   Kind = "LoadIndexData"
	SendIndexData   Kind = "SendIndexData"
	ExtractIndexData Kind = "ExtractIndexData"
)

// Status is a task's position in its lifecycle.
type Status int

const (
	Doing Status = iota
	Done
	Failed
	Canceled
)

func (s Status) String() string {
	switch s {
	case Doing:
		return "Doing"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

func (s Status) Terminal() bool {
	return s == Done || s == Failed || s == Canceled
}

// Task is one unit of work belonging to an OP.
type Task struct {
	OpID   string
	TaskID string
	Kind   Kind
	Status Status
	Err    error
}

// Runner is the work a Task performs. It must honor ctx cancellation
// promptly for long loops (Load, ExtractIndex, SendSnapshot) so a
// Cancel call takes effect without the caller waiting for completion.
type Runner interface {
	Run(ctx context.Context) error
}

// Tracker is the node-wide OP/task registry. One OP may carry more than
// one Task (e.g. AddReplica's snapshot transfer plus catch-up replay).
type Tracker struct {
	mu  sync.Mutex
	ops map[string][]*Task

	cancel map[string]context.CancelFunc
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		ops:    make(map[string][]*Task),
		cancel: make(map[string]context.CancelFunc),
	}
}

// NewOpID mints a fresh operation id.
func NewOpID() string {
	return uuid.NewString()
}

// Submit registers and starts a task under opID. If a task with the
// same (opID, kind[, taskID]) already exists, Submit returns it instead
// of starting a second copy, making intake idempotent against retries.
func (t *Tracker) Submit(ctx context.Context, opID string, kind Kind, taskID string, run Runner) *Task {
	t.mu.Lock()
	for _, existing := range t.ops[opID] {
		if existing.Kind == kind && (taskID == "" || existing.TaskID == taskID) {
			t.mu.Unlock()
			return existing
		}
	}
	task := &Task{OpID: opID, TaskID: taskID, Kind: kind, Status: Doing}
	t.ops[opID] = append(t.ops[opID], task)
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel[taskKey(opID, kind, taskID)] = cancel
	t.mu.Unlock()

	go func() {
		err := run.Run(runCtx)
		t.mu.Lock()
		defer t.mu.Unlock()
		if runCtx.Err() != nil && task.Status == Doing {
			task.Status = Canceled
		} else if err != nil {
			task.Status = Failed
			task.Err = err
		} else {
			task.Status = Done
		}
		delete(t.cancel, taskKey(opID, kind, taskID))
	}()

	return task
}

// Status returns every task recorded for opID.
func (t *Tracker) Status(opID string) []*Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Task, len(t.ops[opID]))
	copy(out, t.ops[opID])
	return out
}

// Cancel marks a Doing task Canceled and cancels its context; it is a
// no-op if the task has already reached a terminal status.
func (t *Tracker) Cancel(opID string, kind Kind, taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cancel, ok := t.cancel[taskKey(opID, kind, taskID)]
	if !ok {
		return fmt.Errorf("tasks: no running task for op %s kind %s", opID, kind)
	}
	cancel()
	return nil
}

// DeleteOPTask removes every task recorded for each given op id,
// regardless of status; used to prune completed OPs from the tracker.
func (t *Tracker) DeleteOPTask(opIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range opIDs {
		delete(t.ops, id)
	}
}

func taskKey(opID string, kind Kind, taskID string) string {
	return opID + "\x00" + string(kind) + "\x00" + taskID
}
