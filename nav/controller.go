// Package nav drives the handlebar display from a bicycle route, either live
// from the rider's position or as a timed playback of a previewed route.
package nav

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/a-bouts/cyclar/device"
	"github.com/a-bouts/cyclar/directions"
	"github.com/a-bouts/cyclar/instruction"
	"github.com/a-bouts/cyclar/latlon"
)

const (
	StatusNotConnected       = "Not Connected"
	StatusWaitingForGPS      = "Waiting for GPS..."
	StatusSimulationComplete = "Simulation Complete"
)

var (
	ErrNoSteps           = errors.New("no steps to send")
	ErrInvalidTransition = errors.New("not allowed in the current navigation mode")
	ErrSuperseded        = errors.New("navigation mode changed while fetching the route")
	ErrClosed            = errors.New("navigation is closed")
)

type RouteFetcher interface {
	FetchRoute(ctx context.Context, origin directions.Origin, destination string) ([]directions.Step, error)
}

type CommandSender interface {
	Send(ctx context.Context, command device.Command) (string, error)
}

// LocationProvider returns the current position, false when unavailable.
type LocationProvider interface {
	Current() (latlon.LatLon, bool)
}

// Notifier receives notable events, the xmpp client is one.
type Notifier interface {
	Send(message string) error
}

type Config struct {
	LiveInterval       time.Duration
	SimulationInterval time.Duration

	// LiveSteps is how many upcoming steps live mode keeps from each route.
	LiveSteps      int
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		LiveInterval:       4 * time.Second,
		SimulationInterval: 3 * time.Second,
		LiveSteps:          2,
		RequestTimeout:     10 * time.Second,
	}
}

// Status is a snapshot of the controller.
type Status struct {
	Mode         Mode              `json:"mode"`
	Steps        []directions.Step `json:"steps"`
	CurrentIndex int               `json:"currentIndex"`
	Destination  string            `json:"destination,omitempty"`
	Error        string            `json:"error,omitempty"`
	Connection   string            `json:"connection"`
}

type Controller struct {
	config    Config
	fetcher   RouteFetcher
	sender    CommandSender
	location  LocationProvider
	scheduler Scheduler

	lock     sync.Mutex
	interp   *statekit.Interpreter[machineContext]
	notifier Notifier

	// epoch changes each time a timed mode is entered or left. Timer ticks
	// and network callbacks from another epoch are dropped.
	epoch        uint64
	timer        Timer
	steps        []directions.Step
	index        int
	destination  string
	err          string
	connection   string
	lastPosition *latlon.LatLon
	closed       bool

	inflight sync.WaitGroup
}

func NewController(config Config, fetcher RouteFetcher, sender CommandSender, location LocationProvider, scheduler Scheduler) (*Controller, error) {
	if fetcher == nil || sender == nil || location == nil {
		return nil, fmt.Errorf("fetcher, sender and location are required")
	}
	if scheduler == nil {
		scheduler = CronScheduler{}
	}
	defaults := DefaultConfig()
	if config.LiveInterval <= 0 {
		config.LiveInterval = defaults.LiveInterval
	}
	if config.SimulationInterval <= 0 {
		config.SimulationInterval = defaults.SimulationInterval
	}
	if config.LiveSteps <= 0 {
		config.LiveSteps = defaults.LiveSteps
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}

	interp, err := buildModeMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to build mode machine: %w", err)
	}
	interp.Start()

	return &Controller{
		config:     config,
		fetcher:    fetcher,
		sender:     sender,
		location:   location,
		scheduler:  scheduler,
		interp:     interp,
		connection: StatusNotConnected,
	}, nil
}

// SetNotifier sets where notable events are reported.
func (c *Controller) SetNotifier(n Notifier) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.notifier = n
}

func (c *Controller) mode() Mode {
	return Mode(c.interp.State().Value)
}

// transition is the only place the mode changes. Entering or leaving a timed
// mode cancels the running timer and opens a new epoch.
func (c *Controller) transition(event string) bool {
	from := c.mode()
	c.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	to := c.mode()
	if from == to {
		return false
	}

	if from.timed() || to.timed() {
		c.stopTimer()
		c.epoch++
	}

	log.WithFields(log.Fields{
		"event": event,
		"from":  from,
		"to":    to,
	}).Debug("Navigation mode changed")
	return true
}

func (c *Controller) startTimer(interval time.Duration, tick func(epoch uint64)) {
	c.stopTimer()
	epoch := c.epoch
	c.timer = c.scheduler.Every(interval, func() { tick(epoch) })
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Status returns a copy of the controller state.
func (c *Controller) Status() Status {
	c.lock.Lock()
	defer c.lock.Unlock()

	steps := make([]directions.Step, len(c.steps))
	copy(steps, c.steps)

	return Status{
		Mode:         c.mode(),
		Steps:        steps,
		CurrentIndex: c.index,
		Destination:  c.destination,
		Error:        c.err,
		Connection:   c.connection,
	}
}

// Preview fetches the route between two addresses. On failure the error is
// surfaced and the displayed steps are left as they were.
func (c *Controller) Preview(ctx context.Context, origin, destination string) error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return ErrClosed
	}
	if m := c.mode(); m != ModeIdle && m != ModePreviewing {
		c.lock.Unlock()
		return ErrInvalidTransition
	}
	epoch := c.epoch
	c.lock.Unlock()

	steps, err := c.fetcher.FetchRoute(ctx, directions.FromAddress(origin), destination)

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.epoch != epoch || c.closed {
		log.WithFields(log.Fields{
			"origin":      origin,
			"destination": destination,
		}).Debug("Dropping preview, mode changed")
		return ErrSuperseded
	}
	if err != nil {
		c.err = err.Error()
		log.WithError(err).Warnf("Preview from '%s' to '%s' failed", origin, destination)
		return err
	}

	c.err = ""
	c.steps = steps
	c.index = 0
	if c.mode() == ModeIdle {
		c.transition(EventPreview)
	}

	log.Infof("Preview from '%s' to '%s' has %d steps", origin, destination, len(steps))
	return nil
}

// StartLive enters live navigation to destination. A running simulation is
// stopped first, an already running live navigation is restarted.
func (c *Controller) StartLive(destination string) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return fmt.Errorf("%w: missing destination", directions.ErrInvalidRequest)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.mode() == ModeLive {
		c.stopTimer()
		c.epoch++
	} else if !c.transition(EventLiveStart) {
		return ErrInvalidTransition
	}

	c.destination = destination
	c.err = ""
	c.lastPosition = nil
	c.startTimer(c.config.LiveInterval, c.liveTick)

	log.Infof("Live navigation to '%s' every %s", destination, c.config.LiveInterval)
	c.notify(fmt.Sprintf("Live navigation to %s started", destination))
	return nil
}

// StopLive leaves live navigation. The last fetched steps stay displayed.
func (c *Controller) StopLive() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.mode() != ModeLive || !c.transition(EventLiveStop) {
		return ErrInvalidTransition
	}
	c.err = ""

	log.Info("Live navigation stopped")
	c.notify("Live navigation stopped")
	return nil
}

func (c *Controller) liveTick(epoch uint64) {
	c.lock.Lock()
	if c.epoch != epoch || c.mode() != ModeLive {
		c.lock.Unlock()
		return
	}

	position, ok := c.location.Current()
	if !ok {
		c.err = StatusWaitingForGPS
		c.lock.Unlock()
		log.Debug("No position yet, skipping live poll")
		return
	}

	if c.lastPosition != nil {
		log.Debugf("Moved %.0f m since last poll", latlon.LatLonHaversine{}.DistanceTo(*c.lastPosition, position))
	}
	c.lastPosition = &position

	destination := c.destination
	c.inflight.Add(1)
	c.lock.Unlock()

	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
		defer cancel()
		steps, err := c.fetcher.FetchRoute(ctx, directions.FromLocation(position), destination)

		c.lock.Lock()
		defer c.lock.Unlock()

		if c.epoch != epoch {
			log.Debug("Dropping live route, mode changed")
			return
		}
		if err != nil {
			c.err = err.Error()
			log.WithError(err).Warnf("Live route from %s failed", position)
			return
		}

		n := c.config.LiveSteps
		if len(steps) < n {
			n = len(steps)
		}
		c.err = ""
		c.steps = append([]directions.Step(nil), steps[:n]...)
	}()
}

// StartSimulation plays the displayed steps back to the device, the first
// one right away and then one per simulation interval.
func (c *Controller) StartSimulation() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrClosed
	}
	if m := c.mode(); m != ModeIdle && m != ModePreviewing {
		return ErrInvalidTransition
	}
	if len(c.steps) == 0 {
		return ErrNoSteps
	}
	if !c.transition(EventSimStart) {
		return ErrInvalidTransition
	}

	log.Infof("Starting simulation of %d steps", len(c.steps))

	c.index = 0
	c.dispatch()
	c.startTimer(c.config.SimulationInterval, c.simulationTick)
	return nil
}

// StopSimulation stops the playback and keeps the steps so it can be restarted.
func (c *Controller) StopSimulation() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.mode() != ModeSimulating || !c.transition(EventSimStop) {
		return ErrInvalidTransition
	}

	log.Info("Simulation stopped")
	return nil
}

func (c *Controller) simulationTick(epoch uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.epoch != epoch || c.mode() != ModeSimulating {
		return
	}

	c.index++
	if c.index < len(c.steps) {
		c.dispatch()
		return
	}

	c.transition(EventSimDone)
	c.connection = StatusSimulationComplete

	log.Info("Simulation complete")
	c.notify(StatusSimulationComplete)
}

// dispatch sends the current step. Failures only show up in the status.
func (c *Controller) dispatch() {
	step := c.steps[c.index]
	command := deviceCommand(step.Simple)

	log.WithFields(log.Fields{
		"step":    c.index,
		"simple":  step.Simple,
		"command": command,
	}).Info("Sending step")

	c.connection = fmt.Sprintf("Simulating: %s...", command)
	c.send(command, func(reply string, err error) string {
		if err != nil {
			return fmt.Sprintf("Err: %v", err)
		}
		return fmt.Sprintf("Sent: %s (%s)", command, reply)
	})
}

// SendManual sends a single command to the device whatever the mode.
func (c *Controller) SendManual(command device.Command) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrClosed
	}

	log.Infof("Manual command: %s", command)

	c.connection = fmt.Sprintf("Sending %s...", cases.Title(language.English).String(string(command)))
	c.send(command, func(reply string, err error) string {
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		return fmt.Sprintf("Success: %s", reply)
	})
	return nil
}

// send must be called with the lock held. The last reply to arrive wins the
// connection status.
func (c *Controller) send(command device.Command, status func(reply string, err error) string) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
		defer cancel()
		reply, err := c.sender.Send(ctx, command)
		if err != nil {
			log.WithError(err).Warnf("Sending '%s' failed", command)
		}

		c.lock.Lock()
		c.connection = status(reply, err)
		c.lock.Unlock()
	}()
}

// notify must be called with the lock held.
func (c *Controller) notify(message string) {
	if c.notifier == nil {
		return
	}
	n := c.notifier
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := n.Send(message); err != nil {
			log.WithError(err).Warn("Notification failed")
		}
	}()
}

// Close cancels any timer and waits for pending requests. The controller
// can not be used afterwards.
func (c *Controller) Close() {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	c.closed = true
	c.stopTimer()
	c.epoch++
	c.lock.Unlock()

	c.inflight.Wait()
}

func deviceCommand(simple instruction.Command) device.Command {
	s := strings.ToLower(string(simple))
	switch {
	case strings.Contains(s, "left"):
		return device.Left
	case strings.Contains(s, "right"):
		return device.Right
	}
	return device.Up
}
