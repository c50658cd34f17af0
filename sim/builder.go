package sim

// Builder can help building Schedulers.
type Builder struct {
	queueKind QueueKind
	hooks     []Hook
	endHdls   []SimulationEndHandler
}

// MakeBuilder returns a Builder with the default heap queue.
func MakeBuilder() Builder {
	return Builder{queueKind: QueueHeap}
}

// WithQueueKind selects the event queue implementation.
func (b Builder) WithQueueKind(k QueueKind) Builder {
	b.queueKind = k
	return b
}

// WithHook registers a hook on the scheduler being built.
func (b Builder) WithHook(h Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// WithSimulationEndHandler registers a handler that Finished invokes.
func (b Builder) WithSimulationEndHandler(h SimulationEndHandler) Builder {
	b.endHdls = append(b.endHdls[:len(b.endHdls):len(b.endHdls)], h)
	return b
}

// Build creates a new Scheduler.
func (b Builder) Build() *Scheduler {
	kind := b.queueKind
	if kind != QueueList {
		kind = QueueHeap
	}

	s := &Scheduler{
		HookableBase: NewHookableBase(),
		queue:        NewEventQueueOfKind(kind),
		queueKind:    kind,
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	for _, h := range b.endHdls {
		s.RegisterSimulationEndHandler(h)
	}

	return s
}
