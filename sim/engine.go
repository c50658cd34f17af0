package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	// Schedule registers cb to fire after delay.
	Schedule(delay VTimeInSec, cb Callback) (EventHandle, error)

	// ScheduleAt registers cb to fire at an absolute virtual time.
	ScheduleAt(t VTimeInSec, cb Callback) (EventHandle, error)

	// Cancel prevents a pending event from firing. It is safe to call on any
	// handle.
	Cancel(h EventHandle)
}

// A SimulationEndHandler is a handler that is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// RunState tells what the run loop is doing.
type RunState int

// A scheduler is Idle until Run is called. Run ends either Halted, because a
// stop marker fired, or Drained, because the queue ran empty.
const (
	StateIdle RunState = iota
	StateRunning
	StateHalted
	StateDrained
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateHalted:
		return "Halted"
	case StateDrained:
		return "Drained"
	default:
		return "Unknown"
	}
}
