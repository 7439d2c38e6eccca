package nav

import (
	"github.com/felixgeelhaar/statekit"
	log "github.com/sirupsen/logrus"
)

// Mode is the navigation mode. Exactly one is active at a time.
type Mode string

const (
	stateIdle       = "idle"
	statePreviewing = "previewing"
	stateLive       = "live"
	stateSimulating = "simulating"
)

const (
	ModeIdle       Mode = stateIdle
	ModePreviewing Mode = statePreviewing
	ModeLive       Mode = stateLive
	ModeSimulating Mode = stateSimulating
)

// Events of the mode machine.
const (
	EventPreview   = "PREVIEW"
	EventLiveStart = "LIVE_START"
	EventLiveStop  = "LIVE_STOP"
	EventSimStart  = "SIM_START"
	EventSimStop   = "SIM_STOP"
	EventSimDone   = "SIM_DONE"
)

// timed modes own a repeating timer.
func (m Mode) timed() bool {
	return m == ModeLive || m == ModeSimulating
}

type machineContext struct {
	Transitions int
}

// buildModeMachine holds every allowed mode transition. Events that are not
// listed for the current state leave it unchanged.
func buildModeMachine() (*statekit.Interpreter[machineContext], error) {
	machine, err := statekit.NewMachine[machineContext]("cyclar-navigation").
		WithInitial(stateIdle).
		WithContext(machineContext{}).
		WithAction("logEntry", func(ctx *machineContext, event statekit.Event) {
			ctx.Transitions++
			log.WithField("event", event.Type).Debug("Navigation mode entered")
		}).
		State(stateIdle).
		OnEntry("logEntry").
		On(EventPreview).Target(statePreviewing).
		On(EventLiveStart).Target(stateLive).
		On(EventSimStart).Target(stateSimulating).Done().
		State(statePreviewing).
		OnEntry("logEntry").
		On(EventLiveStart).Target(stateLive).
		On(EventSimStart).Target(stateSimulating).Done().
		State(stateLive).
		OnEntry("logEntry").
		On(EventLiveStop).Target(stateIdle).Done().
		State(stateSimulating).
		OnEntry("logEntry").
		On(EventLiveStart).Target(stateLive).
		On(EventSimStop).Target(stateIdle).
		On(EventSimDone).Target(stateIdle).Done().
		Build()
	if err != nil {
		return nil, err
	}

	return statekit.NewInterpreter(machine), nil
}
