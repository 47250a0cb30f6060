// Package scheduler runs periodic tasks from a single cooperative loop.
//
// Tick is called once per loop iteration. A task fires when at least its
// interval has passed since it last fired, and its last firing time becomes
// the tick time, so late ticks are not made up and drift is accepted.
// Tasks run on the caller's goroutine; a task that blocks stalls the loop.
package scheduler

import (
	"time"

	"github.com/gr-butler/weathernode/metrics"
	logger "github.com/sirupsen/logrus"
)

type task struct {
	name      string
	interval  time.Duration
	lastFired time.Time
	action    func()
}

type Scheduler struct {
	tasks []*task
}

func New() *Scheduler {
	return &Scheduler{}
}

// Register adds a task. start is taken as its last firing time so the first
// run happens one interval later.
func (s *Scheduler) Register(name string, interval time.Duration, start time.Time, action func()) {
	logger.Infof("Scheduling [%v] every [%v]", name, interval)
	s.tasks = append(s.tasks, &task{
		name:      name,
		interval:  interval,
		lastFired: start,
		action:    action,
	})
}

// Tick fires every due task in registration order and returns how many ran.
func (s *Scheduler) Tick(now time.Time) int {
	fired := 0
	for _, t := range s.tasks {
		if now.Sub(t.lastFired) < t.interval {
			continue
		}
		t.action()
		t.lastFired = now
		fired++
		metrics.TaskRuns.WithLabelValues(t.name).Inc()
	}
	return fired
}

func (s *Scheduler) Len() int {
	return len(s.tasks)
}
