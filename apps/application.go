package apps

import (
	"fmt"

	"github.com/scratchsim/scratchsim/sim"
)

// An Application is something that starts and stops at given virtual times.
type Application interface {
	Name() string
	StartTime() sim.VTimeInSec
	StopTime() (sim.VTimeInSec, bool)
	StartApplication()
	StopApplication()
}

// AppBase holds the name and the start and stop times of an application.
type AppBase struct {
	name    string
	start   sim.VTimeInSec
	stop    sim.VTimeInSec
	hasStop bool
}

// Name returns the name of the application.
func (a *AppBase) Name() string {
	return a.name
}

// SetStartTime sets when the application starts.
func (a *AppBase) SetStartTime(t sim.VTimeInSec) {
	a.start = t
}

// SetStopTime sets when the application stops. Without a stop time the
// application runs until the simulation ends.
func (a *AppBase) SetStopTime(t sim.VTimeInSec) {
	a.stop = t
	a.hasStop = true
}

// StartTime returns when the application starts.
func (a *AppBase) StartTime() sim.VTimeInSec {
	return a.start
}

// StopTime returns when the application stops, if it ever does.
func (a *AppBase) StopTime() (sim.VTimeInSec, bool) {
	return a.stop, a.hasStop
}

// Install schedules the start and the stop of app on s. Both times are
// absolute and must not be earlier than the current time.
func Install(s *sim.Scheduler, app Application) error {
	now := s.Now()
	start := app.StartTime()

	stop, hasStop := app.StopTime()
	if hasStop && stop < start {
		return fmt.Errorf("%w: %s starts at %g, stops at %g",
			ErrStopBeforeStart, app.Name(), start, stop)
	}

	_, err := s.ScheduleKind(start-now, KindAppStart, app.StartApplication)
	if err != nil {
		return fmt.Errorf("install %s: %w", app.Name(), err)
	}

	if !hasStop {
		return nil
	}

	_, err = s.ScheduleKind(stop-now, KindAppStop, app.StopApplication)
	if err != nil {
		return fmt.Errorf("install %s: %w", app.Name(), err)
	}

	return nil
}
