package sim

import (
	"container/heap"
	"container/list"
	"sync"
)

// EventQueue are a queue of event ordered by the time of events. Events with
// the same time are ordered by their UID, so the one scheduled first pops
// first.
//
// Cancelled events stay in the queue until they reach the front and are
// discarded there. Len, Peek and Pop only ever report pending events.
type EventQueue interface {
	Push(evt *Event)
	Pop() *Event
	Peek() *Event
	Cancel(evt *Event) bool
	Len() int
	Clear()
}

// QueueKind selects an EventQueue implementation.
type QueueKind string

// Available queue implementations.
const (
	QueueHeap QueueKind = "heap"
	QueueList QueueKind = "list"
)

// NewEventQueueOfKind creates an empty queue of the given kind. Unknown kinds
// fall back to the heap queue.
func NewEventQueueOfKind(kind QueueKind) EventQueue {
	if kind == QueueList {
		return NewInsertionQueue()
	}

	return NewEventQueue()
}

// EventQueueImpl provides a thread safe event queue backed by a binary heap.
type EventQueueImpl struct {
	sync.Mutex
	events  eventHeap
	pending int
}

// NewEventQueue creates and returns a newly created EventQueue
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make([]*Event, 0)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue
func (q *EventQueueImpl) Push(evt *Event) {
	q.Lock()
	evt.queued = true
	heap.Push(&q.events, evt)
	q.pending++
	q.Unlock()
}

// Pop removes and returns the next pending event. It returns nil if there is
// none.
func (q *EventQueueImpl) Pop() *Event {
	q.Lock()
	defer q.Unlock()

	q.purgeFront()
	if q.events.Len() == 0 {
		return nil
	}

	evt := heap.Pop(&q.events).(*Event)
	evt.queued = false
	q.pending--

	return evt
}

// Peek returns the next pending event without removing it from the queue.
func (q *EventQueueImpl) Peek() *Event {
	q.Lock()
	defer q.Unlock()

	q.purgeFront()
	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0]
}

func (q *EventQueueImpl) purgeFront() {
	for q.events.Len() > 0 && q.events[0].state != EventPending {
		evt := heap.Pop(&q.events).(*Event)
		evt.queued = false
	}
}

// Cancel marks a queued pending event as cancelled. It returns false if the
// event is not waiting in the queue.
func (q *EventQueueImpl) Cancel(evt *Event) bool {
	q.Lock()
	defer q.Unlock()

	if !evt.queued || evt.state != EventPending {
		return false
	}

	evt.state = EventCancelled
	q.pending--

	return true
}

// Len returns the number of pending events in the queue
func (q *EventQueueImpl) Len() int {
	q.Lock()
	l := q.pending
	q.Unlock()
	return l
}

// Clear cancels and drops every event in the queue.
func (q *EventQueueImpl) Clear() {
	q.Lock()
	defer q.Unlock()

	for _, evt := range q.events {
		if evt.state == EventPending {
			evt.state = EventCancelled
		}
		evt.queued = false
	}

	q.events = make([]*Event, 0)
	q.pending = 0
}

type eventHeap []*Event

// Len returns the length of the event queue
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	return h[i].before(h[j])
}

// Swap changes the position of two events in the event queue
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue
func (h *eventHeap) Push(x any) {
	event := x.(*Event)
	*h = append(*h, event)
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	event := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return event
}

// InsertionQueue is a queue that is based on insertion sort. It is cheap when
// most events are scheduled later than everything already queued, which is
// the common case for periodic traffic.
type InsertionQueue struct {
	lock    sync.Mutex
	l       *list.List
	pending int
}

// NewInsertionQueue returns a new InsertionQueue
func NewInsertionQueue() *InsertionQueue {
	q := new(InsertionQueue)
	q.l = list.New()
	return q
}

// Push add an event to the event queue
func (q *InsertionQueue) Push(evt *Event) {
	q.lock.Lock()
	defer q.lock.Unlock()

	evt.queued = true
	q.pending++

	// Walk from the back; the new event goes after everything that does not
	// come after it.
	for ele := q.l.Back(); ele != nil; ele = ele.Prev() {
		if !evt.before(ele.Value.(*Event)) {
			q.l.InsertAfter(evt, ele)
			return
		}
	}

	q.l.PushFront(evt)
}

// Pop returns the pending event with the smallest time, and removes it from
// the queue
func (q *InsertionQueue) Pop() *Event {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.purgeFront()
	if q.l.Len() == 0 {
		return nil
	}

	evt := q.l.Remove(q.l.Front()).(*Event)
	evt.queued = false
	q.pending--

	return evt
}

// Peek returns the event at the front of the queue without removing it from
// the queue.
func (q *InsertionQueue) Peek() *Event {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.purgeFront()
	if q.l.Len() == 0 {
		return nil
	}

	return q.l.Front().Value.(*Event)
}

func (q *InsertionQueue) purgeFront() {
	for q.l.Len() > 0 {
		front := q.l.Front()
		evt := front.Value.(*Event)
		if evt.state == EventPending {
			return
		}

		q.l.Remove(front)
		evt.queued = false
	}
}

// Cancel marks a queued pending event as cancelled.
func (q *InsertionQueue) Cancel(evt *Event) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	if !evt.queued || evt.state != EventPending {
		return false
	}

	evt.state = EventCancelled
	q.pending--

	return true
}

// Len return the number of pending events in the queue
func (q *InsertionQueue) Len() int {
	q.lock.Lock()
	l := q.pending
	q.lock.Unlock()
	return l
}

// Clear cancels and drops every event in the queue.
func (q *InsertionQueue) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()

	for ele := q.l.Front(); ele != nil; ele = ele.Next() {
		evt := ele.Value.(*Event)
		if evt.state == EventPending {
			evt.state = EventCancelled
		}
		evt.queued = false
	}

	q.l.Init()
	q.pending = 0
}
