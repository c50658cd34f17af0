package monitoring

import (
	"sync"
	"time"

	"github.com/scratchsim/scratchsim/sim"
)

// A ProgressBar tracks how much of a known amount of work is done.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// SetFinished overwrites the number of finished elements.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = amount
}

// TimeProgress is a hook that advances a bar as virtual time passes. The bar
// counts milliseconds of virtual time.
type TimeProgress struct {
	bar *ProgressBar
}

// NewTimeProgress creates a hook that drives bar.
func NewTimeProgress(bar *ProgressBar) *TimeProgress {
	return &TimeProgress{bar: bar}
}

// Func updates the bar before every event.
func (p *TimeProgress) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent {
		return
	}

	p.bar.SetFinished(uint64(ctx.Now * 1000))
}
