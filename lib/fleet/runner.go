// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acmlab/bmcfleet/lib/clock"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/taskstate"
)

// Mode selects how phases are scheduled across machines.
type Mode string

const (
	Parallel Mode = "parallel"
	Wave     Mode = "wave"
	Serial   Mode = "serial"
)

// ParseMode parses a mode name. The empty string is Wave.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case "", Wave:
		return Wave, nil
	case Parallel, Serial:
		return Mode(name), nil
	}
	return "", fmt.Errorf("fleet: unknown mode %q (want parallel, wave, or serial)", name)
}

const (
	// DefaultPausePeriod is the settle wait after a phase that asked
	// for one and after every job submission.
	DefaultPausePeriod = 15 * time.Second
	// DefaultPollInterval is the wait between polls of a job.
	DefaultPollInterval = 15 * time.Second
	// DefaultPollTimeout bounds how long a job may stay non-terminal.
	DefaultPollTimeout = 2 * time.Hour

	closeTimeout = 10 * time.Second
)

// ErrStuck is the failure for a job that was still not terminal when
// the poll timeout expired.
var ErrStuck = errors.New("fleet: job did not reach a terminal state")

// Config configures a Runner.
type Config struct {
	// Mode is the scheduling discipline. Default Wave.
	Mode Mode
	// Factory builds each machine's task. Required.
	Factory Factory
	// Dialer connects each target. Required.
	Dialer Dialer
	// Normalizer converts polled job resources. Default
	// taskstate.New with Logger.
	Normalizer *taskstate.Normalizer
	// Clock drives every wait. Default clock.Real().
	Clock clock.Clock
	// Logger is used for structured logging. Default slog.Default().
	Logger *slog.Logger
	// Observer receives run events. Default LogObserver(Logger).
	Observer Observer

	// PausePeriod is the settle wait. Default DefaultPausePeriod.
	PausePeriod time.Duration
	// PollInterval is the wait between polls. Default
	// DefaultPollInterval.
	PollInterval time.Duration
	// PollTimeout bounds non-terminal polling per machine, measured on
	// Clock from the first poll. Zero means DefaultPollTimeout;
	// negative means no limit.
	PollTimeout time.Duration
	// MachineTimeout bounds each machine's whole run, connect
	// included. Zero means no limit.
	MachineTimeout time.Duration
}

// Runner executes operations across machines. A Runner may be reused;
// each Run is independent.
type Runner struct {
	mode           Mode
	factory        Factory
	dialer         Dialer
	normalizer     *taskstate.Normalizer
	clock          clock.Clock
	logger         *slog.Logger
	observer       Observer
	pausePeriod    time.Duration
	pollInterval   time.Duration
	pollTimeout    time.Duration
	machineTimeout time.Duration
}

// New validates config and creates a Runner.
func New(config Config) (*Runner, error) {
	if config.Factory == nil {
		return nil, fmt.Errorf("fleet: Factory is required")
	}
	if config.Dialer == nil {
		return nil, fmt.Errorf("fleet: Dialer is required")
	}
	mode, err := ParseMode(string(config.Mode))
	if err != nil {
		return nil, err
	}

	runner := &Runner{
		mode:           mode,
		factory:        config.Factory,
		dialer:         config.Dialer,
		normalizer:     config.Normalizer,
		clock:          config.Clock,
		logger:         config.Logger,
		observer:       config.Observer,
		pausePeriod:    config.PausePeriod,
		pollInterval:   config.PollInterval,
		pollTimeout:    config.PollTimeout,
		machineTimeout: config.MachineTimeout,
	}
	if runner.clock == nil {
		runner.clock = clock.Real()
	}
	if runner.logger == nil {
		runner.logger = slog.Default()
	}
	if runner.normalizer == nil {
		runner.normalizer = taskstate.New(taskstate.Config{Logger: runner.logger})
	}
	if runner.observer == nil {
		runner.observer = LogObserver(runner.logger)
	}
	if runner.pausePeriod == 0 {
		runner.pausePeriod = DefaultPausePeriod
	}
	if runner.pollInterval == 0 {
		runner.pollInterval = DefaultPollInterval
	}
	if runner.pollTimeout == 0 {
		runner.pollTimeout = DefaultPollTimeout
	}
	return runner, nil
}

// Mode returns the configured scheduling mode.
func (r *Runner) Mode() Mode { return r.mode }

// Run executes the operation on every target and returns the summary.
// Per-machine failures are recorded in the summary, never returned.
// The error is non-nil only for invalid targets or when ctx ended
// before the run finished; the summary is complete in the latter case.
func (r *Runner) Run(ctx context.Context, targets []Target) (*Summary, error) {
	if err := checkTargets(targets); err != nil {
		return nil, err
	}

	state := &run{
		Runner: r,
		id:     uuid.NewString(),
		active: make(map[string]*machine, len(targets)),
	}
	state.summary = &Summary{
		RunID:   state.id,
		Mode:    r.mode,
		Started: r.clock.Now(),
	}
	r.logger.Info("fleet run starting",
		"run", state.id,
		"mode", string(r.mode),
		"machines", len(targets),
	)

	machines := state.connect(ctx, targets)
	defer state.closeAll(ctx, machines)

	switch r.mode {
	case Parallel:
		state.runParallel()
	case Wave:
		state.runWaves(ctx, false)
	case Serial:
		state.runWaves(ctx, true)
	}

	for _, m := range machines {
		if m.cancel != nil {
			m.cancel()
		}
		state.summary.Results = append(state.summary.Results, m.result)
	}
	state.summary.Finished = r.clock.Now()

	r.logger.Info("fleet run finished",
		"run", state.id,
		"succeeded", state.summary.Count(Succeeded),
		"failed", state.summary.Count(Failed),
		"abandoned", state.summary.Count(Abandoned),
		"excluded", state.summary.Count(Excluded),
		"skipped", state.summary.Count(Skipped),
	)
	if err := ctx.Err(); err != nil {
		return state.summary, fmt.Errorf("fleet: run interrupted: %w", err)
	}
	return state.summary, nil
}

// run is the state of one Run call. active and summary.Active are
// touched only by the goroutine executing Run.
type run struct {
	*Runner
	id      string
	summary *Summary
	active  map[string]*machine

	observerMu sync.Mutex
}

func (s *run) emit(event Event) {
	event.Time = s.clock.Now()
	event.RunID = s.id
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observer(event)
}

// recordActive appends the current active-set size.
func (s *run) recordActive() {
	s.summary.Active = append(s.summary.Active, len(s.active))
}

// connect dials every target concurrently. Machines that fail to
// connect are excluded; the rest form the initial active set.
func (s *run) connect(ctx context.Context, targets []Target) []*machine {
	machines := make([]*machine, len(targets))
	for index, target := range targets {
		m := &machine{index: index, target: target}
		m.result = Result{Machine: target.Name, Phase: PhaseConnect, Started: s.clock.Now()}
		m.ctx, m.cancel = ctx, nil
		if s.machineTimeout > 0 {
			m.ctx, m.cancel = context.WithTimeout(ctx, s.machineTimeout)
		}
		machines[index] = m
	}

	connected := make(chan *machine, len(machines))
	var group sync.WaitGroup
	for _, m := range machines {
		group.Go(func() {
			s.emit(Event{Machine: m.target.Name, Phase: PhaseConnect, Kind: EventPhase})
			controller, err := dialController(s.dialer.Dial(m.ctx, m.target))
			if err != nil {
				s.leave(m, Excluded, err)
			} else {
				m.controller = controller
			}
			connected <- m
		})
	}
	group.Wait()
	close(connected)

	for m := range connected {
		if !m.done {
			s.active[m.target.Name] = m
		}
	}
	s.recordActive()
	return machines
}

// closeAll ends every session. Close failures are logged by the
// controllers themselves.
func (s *run) closeAll(ctx context.Context, machines []*machine) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	var group sync.WaitGroup
	for _, m := range machines {
		if m.controller == nil {
			continue
		}
		group.Go(func() { m.controller.Close(closeCtx) })
	}
	group.Wait()
}

// ordered returns the active machines in target order.
func (s *run) ordered(filter func(*machine) bool) []*machine {
	var list []*machine
	for _, m := range s.active {
		if filter == nil || filter(m) {
			list = append(list, m)
		}
	}
	sortMachines(list)
	return list
}

// retire removes machines that left the run from the active set.
func (s *run) retire(members []*machine) {
	for _, m := range members {
		if m.done {
			delete(s.active, m.target.Name)
		}
	}
	s.recordActive()
}

// abandonActive removes every remaining machine because the run
// cannot continue.
func (s *run) abandonActive(err error) {
	members := s.ordered(nil)
	for _, m := range members {
		s.leave(m, Abandoned, err)
	}
	s.retire(members)
}

// runParallel runs every machine end to end in its own goroutine.
// Workers hand each finished machine back over a channel.
func (s *run) runParallel() {
	members := s.ordered(nil)
	finished := make(chan *machine)
	for _, m := range members {
		go func() {
			s.runMachine(m)
			finished <- m
		}()
	}
	for range members {
		m := <-finished
		delete(s.active, m.target.Name)
		s.recordActive()
	}
}

// runMachine executes every phase for one machine, with per-machine
// pauses and polling.
func (s *run) runMachine(m *machine) {
	for _, phase := range submitPhases {
		pause := s.step(m, phase)
		if m.done {
			return
		}
		if pause {
			if err := s.pause(m.ctx, m.target.Name, phase); err != nil {
				s.leave(m, Abandoned, err)
				return
			}
		}
	}
	for m.polling {
		s.poll(m)
		if m.done || !m.polling {
			break
		}
		if err := clock.Wait(m.ctx, s.clock, s.pollInterval); err != nil {
			s.leave(m, Abandoned, err)
		}
	}
	if !m.done {
		s.step(m, PhasePostCompletion)
	}
}

// runWaves executes each phase for all active machines before the next.
func (s *run) runWaves(ctx context.Context, serial bool) {
	for _, phase := range submitPhases {
		members := s.ordered(nil)
		if len(members) == 0 {
			return
		}
		s.emit(Event{Phase: phase, Kind: EventPhase, Message: fmt.Sprintf("%d machines", len(members))})

		reports := s.wave(members, serial, func(m *machine) bool { return s.step(m, phase) })
		s.retire(members)

		pause := false
		for _, report := range reports {
			if report.pause && !report.machine.done {
				pause = true
			}
		}
		if pause {
			if err := s.pause(ctx, "", phase); err != nil {
				s.abandonActive(err)
				return
			}
		}
	}

	for {
		pending := s.ordered(func(m *machine) bool { return m.polling })
		if len(pending) == 0 {
			break
		}
		s.wave(pending, serial, func(m *machine) bool {
			s.poll(m)
			return false
		})
		s.retire(pending)

		if len(s.ordered(func(m *machine) bool { return m.polling })) == 0 {
			break
		}
		if err := clock.Wait(ctx, s.clock, s.pollInterval); err != nil {
			s.abandonActive(err)
			return
		}
	}

	members := s.ordered(nil)
	if len(members) == 0 {
		return
	}
	if err := ctx.Err(); err != nil {
		s.abandonActive(err)
		return
	}
	s.emit(Event{Phase: PhasePostCompletion, Kind: EventPhase, Message: fmt.Sprintf("%d machines", len(members))})
	s.wave(members, serial, func(m *machine) bool {
		s.step(m, PhasePostCompletion)
		return false
	})
	s.retire(members)
}

type stepReport struct {
	machine *machine
	pause   bool
}

// wave runs fn for every member, concurrently unless serial, and
// returns once all have finished. Each machine is touched by exactly
// one goroutine.
func (s *run) wave(members []*machine, serial bool, fn func(*machine) bool) []stepReport {
	reports := make(chan stepReport, len(members))
	if serial {
		for _, m := range members {
			reports <- stepReport{machine: m, pause: fn(m)}
		}
	} else {
		var group sync.WaitGroup
		for _, m := range members {
			group.Go(func() { reports <- stepReport{machine: m, pause: fn(m)} })
		}
		group.Wait()
	}
	close(reports)

	collected := make([]stepReport, 0, len(members))
	for report := range reports {
		collected = append(collected, report)
	}
	return collected
}

// pause waits PausePeriod so controllers can settle. name is empty for
// a wave-wide pause.
func (s *run) pause(ctx context.Context, name string, after Phase) error {
	s.emit(Event{Machine: name, Phase: after, Kind: EventPause, Duration: s.pausePeriod})
	return clock.Wait(ctx, s.clock, s.pausePeriod)
}

// dialController rejects a nil controller returned without an error.
func dialController(controller redfish.Controller, err error) (redfish.Controller, error) {
	if err == nil && controller == nil {
		return nil, fmt.Errorf("fleet: dialer returned neither a controller nor an error")
	}
	return controller, err
}
