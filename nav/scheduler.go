package nav

import (
	"sync"
	"time"

	"github.com/jasonlvhit/gocron"
)

// Scheduler runs task every interval until the returned Timer is stopped.
// The first run happens one interval after Every returns.
type Scheduler interface {
	Every(interval time.Duration, task func()) Timer
}

type Timer interface {
	Stop()
}

// CronScheduler gives every timer its own gocron scheduler. gocron has a one
// second resolution, shorter intervals are rounded up.
type CronScheduler struct{}

func (CronScheduler) Every(interval time.Duration, task func()) Timer {
	seconds := uint64(interval / time.Second)
	if seconds == 0 {
		seconds = 1
	}

	s := gocron.NewScheduler()
	s.Every(seconds).Seconds().Do(task)

	return &cronTimer{stopped: s.Start()}
}

type cronTimer struct {
	stopped chan bool
	once    sync.Once
}

// Stop never touches the scheduler itself so it is safe to call from a task.
func (t *cronTimer) Stop() {
	t.once.Do(func() {
		close(t.stopped)
	})
}
