// Package tracing provides hooks that observe a scheduler and record what it
// does.
package tracing

import (
	"github.com/scratchsim/scratchsim/datarecording"
	"github.com/scratchsim/scratchsim/sim"
)

// EventTable is the table that an EventRecorder writes into.
const EventTable = "event"

// EventEntry is one recorded scheduler action.
type EventEntry struct {
	RunID    string
	UID      int64
	Time     float64
	Now      float64
	Kind     string
	Position string
}

// EventRecorder is a hook that writes scheduler actions into a DataRecorder.
// By default only fired events are recorded.
type EventRecorder struct {
	runID     string
	recorder  datarecording.DataRecorder
	positions map[*sim.HookPos]bool
}

// NewEventRecorder creates the event table in recorder and returns a hook
// that fills it. runID tags every row so that several runs can share one
// database.
func NewEventRecorder(
	runID string,
	recorder datarecording.DataRecorder,
) *EventRecorder {
	recorder.CreateTable(EventTable, EventEntry{})

	return &EventRecorder{
		runID:    runID,
		recorder: recorder,
		positions: map[*sim.HookPos]bool{
			sim.HookPosBeforeEvent: true,
		},
	}
}

// AlsoRecord adds hook positions to record, such as sim.HookPosCancel.
func (r *EventRecorder) AlsoRecord(positions ...*sim.HookPos) *EventRecorder {
	for _, p := range positions {
		r.positions[p] = true
	}

	return r
}

// Func records the event if its position is enabled.
func (r *EventRecorder) Func(ctx sim.HookCtx) {
	if !r.positions[ctx.Pos] {
		return
	}

	evt, ok := ctx.Item.(*sim.Event)
	if !ok {
		return
	}

	r.recorder.InsertData(EventTable, EventEntry{
		RunID:    r.runID,
		UID:      int64(evt.UID()),
		Time:     float64(evt.Time()),
		Now:      float64(ctx.Now),
		Kind:     evt.Kind(),
		Position: ctx.Pos.Name,
	})
}
