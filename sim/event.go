package sim

import "fmt"

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec float64

// EventState tells where an event is in its lifecycle.
type EventState int

// An event starts Pending and ends either Fired or Cancelled.
const (
	EventPending EventState = iota
	EventCancelled
	EventFired
)

func (s EventState) String() string {
	switch s {
	case EventPending:
		return "Pending"
	case EventCancelled:
		return "Cancelled"
	case EventFired:
		return "Fired"
	default:
		return fmt.Sprintf("EventState(%d)", int(s))
	}
}

// A Callback is the deferred work carried by an event. It captures whatever
// state it needs.
type Callback func()

// A Handler can be scheduled in place of a Callback. It is told the time at
// which it fires.
type Handler interface {
	Handle(now VTimeInSec)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(now VTimeInSec)

// Handle calls f(now).
func (f HandlerFunc) Handle(now VTimeInSec) {
	f(now)
}

// Kinds used for events the scheduler creates itself.
const (
	KindCallback = "callback"
	KindStop     = "stop"
)

// An Event is one pending unit of deferred work. The event queue owns it;
// code outside the package only sees it through hooks and EventHandles.
type Event struct {
	uid   uint64
	time  VTimeInSec
	kind  string
	cb    Callback
	state EventState
	owner *Scheduler

	queued bool
}

// UID returns the sequence number assigned when the event was scheduled.
// Among events with equal time, smaller UIDs fire first.
func (e *Event) UID() uint64 {
	return e.uid
}

// Time returns the virtual time at which the event fires.
func (e *Event) Time() VTimeInSec {
	return e.time
}

// Kind returns a short label of what the event does.
func (e *Event) Kind() string {
	return e.kind
}

// State returns the lifecycle state of the event.
func (e *Event) State() EventState {
	return e.state
}

// before defines the total order of the event queue.
func (e *Event) before(other *Event) bool {
	if e.time != other.time {
		return e.time < other.time
	}

	return e.uid < other.uid
}

// An EventHandle refers to a scheduled event without owning it. The zero
// value refers to no event, and cancelling it does nothing.
type EventHandle struct {
	evt *Event
}

// UID returns the sequence number of the referenced event, or 0.
func (h EventHandle) UID() uint64 {
	if h.evt == nil {
		return 0
	}

	return h.evt.uid
}

// Time returns the fire time of the referenced event, or 0.
func (h EventHandle) Time() VTimeInSec {
	if h.evt == nil {
		return 0
	}

	return h.evt.time
}

// IsPending returns true if the referenced event is still waiting to fire.
func (h EventHandle) IsPending() bool {
	return h.evt != nil && h.evt.state == EventPending
}

// IsExpired returns true if the referenced event has fired, has been
// cancelled, or if the handle refers to nothing.
func (h EventHandle) IsExpired() bool {
	return !h.IsPending()
}
