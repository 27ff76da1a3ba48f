// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/taskstate"
)

// submitPhases run before polling, in order.
var submitPhases = []Phase{
	PhaseValidate,
	PhasePrepare,
	PhasePreSubmit,
	PhaseSubmit,
	PhasePostSubmit,
}

// machine is one target's progress through a run. At any moment it is
// touched by a single goroutine: a worker during a phase, the run
// goroutine between phases.
type machine struct {
	index      int
	target     Target
	controller redfish.Controller
	task       Task
	ctx        context.Context
	cancel     context.CancelFunc
	result     Result

	// polling is true from a job submission until a terminal poll.
	polling     bool
	pollStarted bool
	pollStart   time.Time
	lastPercent int

	// done means the machine left the run; result.Outcome is final.
	done bool
}

func sortMachines(list []*machine) {
	slices.SortFunc(list, func(a, b *machine) int { return a.index - b.index })
}

// leave ends m's participation with outcome.
func (s *run) leave(m *machine, outcome Outcome, err error) {
	m.done = true
	m.polling = false
	m.result.Outcome = outcome
	m.result.Err = err
	m.result.Finished = s.clock.Now()
	if m.task != nil {
		m.result.JobID = m.task.JobID()
		m.result.Task = m.task.Ending()
	}
	s.emit(Event{
		Machine: m.target.Name,
		Phase:   m.result.Phase,
		Kind:    EventOutcome,
		Outcome: outcome,
		Err:     err,
		Task:    m.result.Task,
		Message: m.result.Reason(),
	})
}

// step runs one phase for m and reports whether m asked for a pause.
// Errors and panics from the task end m's participation; they never
// propagate.
func (s *run) step(m *machine, phase Phase) (pause bool) {
	m.result.Phase = phase
	s.emit(Event{Machine: m.target.Name, Phase: phase, Kind: EventPhase})

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome := Abandoned
			if phase == PhaseValidate {
				outcome = Excluded
			}
			s.leave(m, outcome, fmt.Errorf("fleet: %s panicked: %v", phase, recovered))
			pause = false
		}
	}()

	ctx := m.ctx
	switch phase {
	case PhaseValidate:
		task, err := s.factory(m.target, m.controller)
		if err != nil {
			s.leave(m, Excluded, err)
			return false
		}
		m.task = task
		if err := task.Validate(ctx); err != nil {
			s.leave(m, Excluded, err)
		}
		return false

	case PhasePrepare:
		needed, err := m.task.Prepare(ctx)
		switch {
		case err != nil:
			s.leave(m, Abandoned, err)
		case !needed:
			s.leave(m, Skipped, nil)
		}
		return false

	case PhasePreSubmit:
		pause, err := m.task.PreSubmit(ctx)
		if err != nil {
			s.leave(m, Abandoned, err)
			return false
		}
		return pause

	case PhaseSubmit:
		return s.submit(ctx, m)

	case PhasePostSubmit:
		pause, err := m.task.PostSubmit(ctx)
		if err != nil {
			s.leave(m, Abandoned, err)
			return false
		}
		return pause

	case PhasePostCompletion:
		if err := m.task.PostCompletion(ctx); err != nil {
			m.result.CleanupErr = err
			s.emit(Event{Machine: m.target.Name, Phase: phase, Kind: EventCleanup, Err: err})
		}
		ending := m.task.Ending()
		if ending != nil && ending.State == taskstate.Completed {
			s.leave(m, Succeeded, nil)
		} else {
			s.leave(m, Failed, nil)
		}
		return false
	}
	panic("fleet: unknown phase " + string(phase))
}

// submit starts the job. A task with no submission target has no
// asynchronous job: it is recorded as already completed and polling is
// skipped. Every real submission asks for a pause.
func (s *run) submit(ctx context.Context, m *machine) bool {
	target, body := m.task.Submission()
	if target == "" {
		m.task.SetEnding(&taskstate.Task{
			State:   taskstate.Completed,
			Status:  taskstate.StatusOK,
			Message: "no job submitted",
		})
		return false
	}

	jobID, err := m.controller.StartTask(ctx, target, body)
	if err != nil {
		s.leave(m, Abandoned, err)
		return false
	}
	m.task.SetJobID(jobID)
	m.result.JobID = jobID
	m.polling = true
	s.emit(Event{Machine: m.target.Name, Phase: PhaseSubmit, Kind: EventSubmitted, Message: jobID})
	return true
}

// poll reads the job once and emits one progress event. A terminal
// state stops polling; a job that outlives the poll timeout abandons
// the machine with ErrStuck.
func (s *run) poll(m *machine) {
	m.result.Phase = PhasePoll
	defer func() {
		if recovered := recover(); recovered != nil {
			s.leave(m, Abandoned, fmt.Errorf("fleet: poll panicked: %v", recovered))
		}
	}()

	if !m.pollStarted {
		m.pollStarted = true
		m.pollStart = s.clock.Now()
	}

	jobID := m.task.JobID()
	resource, err := m.controller.GetTask(m.ctx, jobID)
	if err != nil {
		s.leave(m, Abandoned, err)
		return
	}
	task, err := s.normalizer.Normalize(resource)
	if err != nil {
		s.leave(m, Abandoned, err)
		return
	}
	if task.ID == "" {
		task.ID = jobID
	}

	// Progress is never reported lower than already seen.
	if task.State == taskstate.Running && task.PercentComplete < m.lastPercent {
		task.PercentComplete = m.lastPercent
	}
	if task.PercentComplete > m.lastPercent {
		m.lastPercent = task.PercentComplete
	}

	snapshot := task
	s.emit(Event{
		Machine: m.target.Name,
		Phase:   PhasePoll,
		Kind:    EventProgress,
		Message: progressMessage(&snapshot),
		Task:    &snapshot,
	})

	if task.State.Terminal() {
		m.task.SetEnding(&task)
		m.polling = false
		return
	}

	if s.pollTimeout > 0 {
		elapsed := s.clock.Now().Sub(m.pollStart)
		if elapsed >= s.pollTimeout {
			s.leave(m, Abandoned, fmt.Errorf("%w: job %s still %s after %s", ErrStuck, jobID, task.State, elapsed))
		}
	}
}
