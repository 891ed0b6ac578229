package snapshot

import (
	"context"
	"time"
)

// Trigger decides whether a partition is due for its daily snapshot and,
// if so, performs it. Implemented by the tablet partition lifecycle.
type Trigger interface {
	// LastSnapshotAge reports how long ago this partition's last
	// snapshot completed.
	LastSnapshotAge() time.Duration
	// RunSnapshot performs MakeSnapshot under the Normal->MakingSnapshot
	// ->Normal transition.
	RunSnapshot(ctx context.Context) error
}

// Scheduler runs MakeSnapshot once a day at hour, skipping any partition
// whose last snapshot is younger than offlineInterval.
type Scheduler struct {
	hour            int
	checkInterval   time.Duration
	offlineInterval time.Duration
	triggers        func() []Trigger
}

// NewScheduler builds a Scheduler. triggers is called on every tick to
// get the current set of partitions, since partitions are created and
// dropped while the scheduler runs.
func NewScheduler(hour int, checkInterval, offlineInterval time.Duration, triggers func() []Trigger) *Scheduler {
	return &Scheduler{hour: hour, checkInterval: checkInterval, offlineInterval: offlineInterval, triggers: triggers}
}

// Run ticks at checkInterval until ctx is done, firing RunSnapshot on
// every partition that is due. Errors from individual partitions are
// sent to onError rather than aborting the loop.
func (s *Scheduler) Run(ctx context.Context, onError func(error)) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if t.Hour() != s.hour {
				continue
			}
			for _, trig := range s.triggers() {
				if trig.LastSnapshotAge() < s.offlineInterval {
					continue
				}
				if err := trig.RunSnapshot(ctx); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}
}
