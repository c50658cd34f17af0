package tracing

import (
	"sync"

	"github.com/scratchsim/scratchsim/sim"
)

// KindCount is the number of events of one kind that fired or were
// cancelled.
type KindCount struct {
	Kind      string `json:"kind" yaml:"kind"`
	Fired     uint64 `json:"fired" yaml:"fired"`
	Cancelled uint64 `json:"cancelled" yaml:"cancelled"`
}

// KindCounter is a hook that counts events by kind. It can be read while the
// scheduler runs.
type KindCounter struct {
	lock   sync.Mutex
	kinds  []string
	counts map[string]*KindCount
}

// NewKindCounter creates a new KindCounter.
func NewKindCounter() *KindCounter {
	return &KindCounter{counts: make(map[string]*KindCount)}
}

// Func counts fired and cancelled events.
func (c *KindCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent && ctx.Pos != sim.HookPosCancel {
		return
	}

	evt, ok := ctx.Item.(*sim.Event)
	if !ok {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	count, found := c.counts[evt.Kind()]
	if !found {
		count = &KindCount{Kind: evt.Kind()}
		c.counts[evt.Kind()] = count
		c.kinds = append(c.kinds, evt.Kind())
	}

	if ctx.Pos == sim.HookPosCancel {
		count.Cancelled++
	} else {
		count.Fired++
	}
}

// Counts returns the counts in the order the kinds were first seen.
func (c *KindCounter) Counts() []KindCount {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make([]KindCount, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, *c.counts[k])
	}

	return out
}

// Fired returns the number of fired events of a kind.
func (c *KindCounter) Fired(kind string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	if count, ok := c.counts[kind]; ok {
		return count.Fired
	}

	return 0
}
