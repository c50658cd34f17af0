package sim

import (
	"fmt"
	"math"
	"sync"
)

// A Scheduler owns one simulation run: the virtual clock, the queue of
// pending events, and the loop that fires them one after another.
//
// Callbacks run synchronously on the goroutine that called Run and may call
// Schedule, Cancel and Stop on the same scheduler. Independent schedulers
// share nothing, so separate runs can live in the same process.
type Scheduler struct {
	*HookableBase

	statusLock    sync.RWMutex
	now           VTimeInSec
	state         RunState
	haltRequested bool
	executed      uint64
	nextUID       uint64

	queue     EventQueue
	queueKind QueueKind

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex
	// pauseCtrlLock serializes Pause and Continue.
	pauseCtrlLock sync.Mutex

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewScheduler creates a Scheduler that uses a heap-based event queue.
func NewScheduler() *Scheduler {
	return MakeBuilder().Build()
}

// Schedule registers cb to fire delay seconds after the current time. A
// negative delay returns ErrInvalidDelay and leaves the queue untouched.
func (s *Scheduler) Schedule(
	delay VTimeInSec,
	cb Callback,
) (EventHandle, error) {
	return s.scheduleAfter(delay, KindCallback, cb)
}

// ScheduleNow registers cb to fire at the current time, after every event
// that is already queued for the current time.
func (s *Scheduler) ScheduleNow(cb Callback) EventHandle {
	h, _ := s.scheduleAfter(0, KindCallback, cb)
	return h
}

// ScheduleAt registers cb to fire at virtual time t. A time earlier than now
// returns ErrInvalidTime.
func (s *Scheduler) ScheduleAt(t VTimeInSec, cb Callback) (EventHandle, error) {
	return s.scheduleAt(t, KindCallback, cb)
}

// ScheduleHandler registers a Handler to fire after delay. The event kind is
// the handler's type name.
func (s *Scheduler) ScheduleHandler(
	delay VTimeInSec,
	h Handler,
) (EventHandle, error) {
	return s.scheduleAfter(delay, fmt.Sprintf("%T", h), func() {
		h.Handle(s.readNow())
	})
}

// ScheduleKind is Schedule with a caller-chosen event kind, which shows up in
// hooks and recorded traces.
func (s *Scheduler) ScheduleKind(
	delay VTimeInSec,
	kind string,
	cb Callback,
) (EventHandle, error) {
	return s.scheduleAfter(delay, kind, cb)
}

func (s *Scheduler) scheduleAfter(
	delay VTimeInSec,
	kind string,
	cb Callback,
) (EventHandle, error) {
	if delay < 0 || math.IsNaN(float64(delay)) {
		return EventHandle{}, fmt.Errorf("%w: %g", ErrInvalidDelay, delay)
	}

	return s.insert(s.readNow()+delay, kind, cb), nil
}

func (s *Scheduler) scheduleAt(
	t VTimeInSec,
	kind string,
	cb Callback,
) (EventHandle, error) {
	now := s.readNow()
	if t < now || math.IsNaN(float64(t)) {
		return EventHandle{}, fmt.Errorf(
			"%w: requested %.10f, now %.10f", ErrInvalidTime, t, now)
	}

	return s.insert(t, kind, cb), nil
}

func (s *Scheduler) insert(t VTimeInSec, kind string, cb Callback) EventHandle {
	s.statusLock.Lock()
	s.nextUID++
	evt := &Event{
		uid:   s.nextUID,
		time:  t,
		kind:  kind,
		cb:    cb,
		state: EventPending,
		owner: s,
	}
	now := s.now
	s.statusLock.Unlock()

	s.queue.Push(evt)

	s.InvokeHook(HookCtx{
		Domain: s,
		Now:    now,
		Pos:    HookPosSchedule,
		Item:   evt,
	})

	return EventHandle{evt: evt}
}

// Cancel prevents the referenced event from firing. Cancelling an event that
// already fired or was cancelled, a zero handle, a handle from another
// scheduler, or a handle issued before Destroy does nothing.
func (s *Scheduler) Cancel(h EventHandle) {
	evt := h.evt
	if evt == nil || evt.owner != s {
		return
	}

	if !s.queue.Cancel(evt) {
		return
	}

	s.InvokeHook(HookCtx{
		Domain: s,
		Now:    s.readNow(),
		Pos:    HookPosCancel,
		Item:   evt,
	})
}

// Stop ends the run delay seconds from now. Events at exactly that time that
// were scheduled before the stop still fire.
func (s *Scheduler) Stop(delay VTimeInSec) (EventHandle, error) {
	return s.scheduleAfter(delay, KindStop, s.requestHalt)
}

// StopAt ends the run at virtual time t.
func (s *Scheduler) StopAt(t VTimeInSec) (EventHandle, error) {
	return s.scheduleAt(t, KindStop, s.requestHalt)
}

// StopNow makes Run return as soon as the current callback returns. It only
// has an effect when called from inside a callback.
func (s *Scheduler) StopNow() {
	s.requestHalt()
}

func (s *Scheduler) requestHalt() {
	s.statusLock.Lock()
	s.haltRequested = true
	s.statusLock.Unlock()
}

// Run fires events in time order until the queue drains or a stop marker
// fires. Run can be called again afterwards to continue with what is left.
func (s *Scheduler) Run() error {
	if !s.singleRunLock.TryLock() {
		return ErrAlreadyRunning
	}
	defer s.singleRunLock.Unlock()

	s.statusLock.Lock()
	s.state = StateRunning
	s.haltRequested = false
	s.statusLock.Unlock()

	for {
		evt, halted := s.step()

		if evt == nil {
			s.setState(StateDrained)
			return nil
		}

		if halted {
			s.setState(StateHalted)
			s.InvokeHook(HookCtx{
				Domain: s,
				Now:    evt.time,
				Pos:    HookPosHalt,
				Item:   evt,
			})

			return nil
		}
	}
}

func (s *Scheduler) step() (evt *Event, halted bool) {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	evt = s.queue.Pop()
	if evt == nil {
		return nil, false
	}

	s.statusLock.Lock()
	if evt.time < s.now {
		now := s.now
		s.statusLock.Unlock()
		panic(fmt.Sprintf(
			"sim: cannot run event in the past, evt %s @ %.10f, now %.10f",
			evt.kind, evt.time, now,
		))
	}
	s.now = evt.time
	evt.state = EventFired
	s.executed++
	s.statusLock.Unlock()

	hookCtx := HookCtx{
		Domain: s,
		Now:    evt.time,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	s.InvokeHook(hookCtx)

	if evt.cb != nil {
		evt.cb()
	}

	hookCtx.Pos = HookPosAfterEvent
	s.InvokeHook(hookCtx)

	s.statusLock.RLock()
	halted = s.haltRequested
	s.statusLock.RUnlock()

	return evt, halted
}

// Destroy drops every pending event, resets the clock to 0 and returns the
// scheduler to Idle. Handles issued before Destroy can no longer cancel
// anything. Destroy must not be called from inside a callback.
func (s *Scheduler) Destroy() {
	s.queue.Clear()

	s.statusLock.Lock()
	s.now = 0
	s.state = StateIdle
	s.haltRequested = false
	s.executed = 0
	s.nextUID = 0
	s.statusLock.Unlock()
}

func (s *Scheduler) readNow() VTimeInSec {
	s.statusLock.RLock()
	t := s.now
	s.statusLock.RUnlock()
	return t
}

func (s *Scheduler) setState(state RunState) {
	s.statusLock.Lock()
	s.state = state
	s.statusLock.Unlock()
}

// Now returns the current virtual time, which is the fire time of the most
// recently fired event.
func (s *Scheduler) Now() VTimeInSec {
	return s.readNow()
}

// CurrentTime is the same as Now.
func (s *Scheduler) CurrentTime() VTimeInSec {
	return s.readNow()
}

// State returns the state of the run loop.
func (s *Scheduler) State() RunState {
	s.statusLock.RLock()
	defer s.statusLock.RUnlock()
	return s.state
}

// EventCount returns the number of events fired since the last Destroy.
func (s *Scheduler) EventCount() uint64 {
	s.statusLock.RLock()
	defer s.statusLock.RUnlock()
	return s.executed
}

// PendingCount returns the number of events waiting to fire.
func (s *Scheduler) PendingCount() int {
	return s.queue.Len()
}

// NextEventTime returns the fire time of the next pending event.
func (s *Scheduler) NextEventTime() (VTimeInSec, bool) {
	evt := s.queue.Peek()
	if evt == nil {
		return 0, false
	}

	return evt.time, true
}

// IsFinished returns true if there is nothing left to run or the last run
// was halted.
func (s *Scheduler) IsFinished() bool {
	return s.State() == StateHalted || s.queue.Len() == 0
}

// DelayLeft returns how long until the referenced event fires, or 0 if it is
// not pending.
func (s *Scheduler) DelayLeft(h EventHandle) VTimeInSec {
	if !h.IsPending() || h.evt.owner != s {
		return 0
	}

	return h.evt.time - s.readNow()
}

// QueueKind returns the kind of event queue in use.
func (s *Scheduler) QueueKind() QueueKind {
	return s.queueKind
}

// Pause prevents the Scheduler from firing more events until Continue is
// called. It is meant to be called from another goroutine. It returns once
// the event being fired, if any, has finished. IsPaused reports true as
// soon as Pause is called.
func (s *Scheduler) Pause() {
	s.pauseCtrlLock.Lock()
	defer s.pauseCtrlLock.Unlock()

	if s.IsPaused() {
		return
	}

	s.setPaused(true)
	s.pauseLock.Lock()
}

// Continue allows the Scheduler to fire events again.
func (s *Scheduler) Continue() {
	s.pauseCtrlLock.Lock()
	defer s.pauseCtrlLock.Unlock()

	if !s.IsPaused() {
		return
	}

	s.pauseLock.Unlock()
	s.setPaused(false)
}

// IsPaused returns true between Pause and Continue.
func (s *Scheduler) IsPaused() bool {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()
	return s.isPaused
}

func (s *Scheduler) setPaused(paused bool) {
	s.isPausedLock.Lock()
	s.isPaused = paused
	s.isPausedLock.Unlock()
}

// RegisterSimulationEndHandler registers a handler that Finished invokes.
func (s *Scheduler) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	s.simulationEndHandlers = append(s.simulationEndHandlers, handler)
}

// Finished should be called after the simulation ends. This function
// calls all the registered SimulationEndHandler.
func (s *Scheduler) Finished() {
	now := s.readNow()
	for _, h := range s.simulationEndHandlers {
		h.Handle(now)
	}
}
