// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"log/slog"
	"time"

	"github.com/acmlab/bmcfleet/lib/taskstate"
)

// Phase names a step of the per-machine state machine.
type Phase string

const (
	PhaseConnect        Phase = "connect"
	PhaseValidate       Phase = "validate"
	PhasePrepare        Phase = "prepare"
	PhasePreSubmit      Phase = "pre-submit"
	PhaseSubmit         Phase = "submit"
	PhasePostSubmit     Phase = "post-submit"
	PhasePoll           Phase = "poll"
	PhasePostCompletion Phase = "post-completion"
)

// EventKind classifies an Event.
type EventKind string

const (
	// EventPhase marks the start of a wave or of a machine's phase.
	EventPhase EventKind = "phase"
	// EventPause is a settle wait.
	EventPause EventKind = "pause"
	// EventSubmitted carries the job id of a submission.
	EventSubmitted EventKind = "submitted"
	// EventProgress is one poll of a running job.
	EventProgress EventKind = "progress"
	// EventOutcome is a machine leaving the run.
	EventOutcome EventKind = "outcome"
	// EventCleanup is a post-completion failure.
	EventCleanup EventKind = "cleanup"
)

// Event reports something that happened during a run. Events are
// delivered as they happen, not batched.
type Event struct {
	Time    time.Time
	RunID   string
	Machine string // empty for run-wide events
	Phase   Phase
	Kind    EventKind
	Message string
	// Task is the job snapshot for progress and outcome events.
	Task *taskstate.Task
	// Outcome is set on EventOutcome.
	Outcome Outcome
	Err     error
	// Duration is the wait length for EventPause.
	Duration time.Duration
}

// Observer receives events. The runner never calls it concurrently.
type Observer func(Event)

// LogObserver writes events to logger, one record per event.
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(event Event) {
		attrs := []any{"run", event.RunID, "phase", string(event.Phase)}
		if event.Machine != "" {
			attrs = append(attrs, "machine", event.Machine)
		}

		switch event.Kind {
		case EventPhase:
			logger.Debug("phase started", attrs...)
		case EventPause:
			logger.Info("waiting for controllers to catch up", append(attrs, "duration", event.Duration)...)
		case EventSubmitted:
			logger.Info("job submitted", append(attrs, "job", event.Message)...)
		case EventProgress:
			attrs = append(attrs, "state", string(event.Task.State), "percent", event.Task.PercentComplete)
			logger.Info(event.Message, attrs...)
		case EventOutcome:
			attrs = append(attrs, "outcome", string(event.Outcome))
			if event.Task != nil {
				attrs = append(attrs, "state", string(event.Task.State), "status", string(event.Task.Status))
			}
			switch {
			case event.Err != nil:
				logger.Warn("machine left the run", append(attrs, "error", event.Err)...)
			case event.Outcome == Failed:
				logger.Warn("job failed", append(attrs, "message", event.Message)...)
			default:
				logger.Info("machine finished", attrs...)
			}
		case EventCleanup:
			logger.Error("post-completion cleanup failed", append(attrs, "error", event.Err)...)
		default:
			logger.Info(event.Message, attrs...)
		}
	}
}

// progressMessage is the operator-facing line for one poll.
func progressMessage(task *taskstate.Task) string {
	switch {
	case task.State == taskstate.Pending && task.VendorState == "Starting":
		return "machine is still starting up"
	case task.State == taskstate.Pending:
		return "task is scheduled/pending"
	case task.State == taskstate.Paused:
		return "task is paused"
	case task.State == taskstate.Unknown:
		return "task state not recognized"
	case task.State == taskstate.Completed:
		return "task completed"
	case task.State.Terminal():
		return "task ended: " + string(task.State)
	default:
		return "task in progress"
	}
}
