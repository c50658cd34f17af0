package sim

import (
	"github.com/rs/zerolog"
)

// EventLogger is an hook that prints the event information
type EventLogger struct {
	logger zerolog.Logger
	all    bool
}

// NewEventLogger returns a new EventLogger which writes one line per fired
// event into the logger.
func NewEventLogger(logger zerolog.Logger) *EventLogger {
	h := new(EventLogger)
	h.logger = logger
	return h
}

// LogAllPositions makes the logger also report scheduling, cancellation and
// halting, at debug level.
func (h *EventLogger) LogAllPositions() *EventLogger {
	h.all = true
	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosBeforeEvent:
		h.logger.Info().
			Float64("time", float64(evt.Time())).
			Uint64("uid", evt.UID()).
			Str("kind", evt.Kind()).
			Msg("event")
	case HookPosSchedule, HookPosCancel, HookPosHalt:
		if !h.all {
			return
		}

		h.logger.Debug().
			Float64("now", float64(ctx.Now)).
			Float64("time", float64(evt.Time())).
			Uint64("uid", evt.UID()).
			Str("kind", evt.Kind()).
			Msg(ctx.Pos.Name)
	}
}
