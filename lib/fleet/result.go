// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"fmt"
	"time"

	"github.com/acmlab/bmcfleet/lib/taskstate"
)

// Outcome is how a machine's participation in a run ended.
type Outcome string

const (
	// Excluded: connect, task construction, or Validate failed. No
	// side effect was attempted.
	Excluded Outcome = "excluded"
	// Skipped: Prepare reported nothing to do.
	Skipped Outcome = "skipped"
	// Abandoned: a phase after Validate failed, or the job never
	// reached a terminal state.
	Abandoned Outcome = "abandoned"
	// Succeeded: the job completed.
	Succeeded Outcome = "succeeded"
	// Failed: the job reached a terminal state other than Completed.
	Failed Outcome = "failed"
)

// Result is one machine's final record.
type Result struct {
	Machine string
	Outcome Outcome
	// Phase is the last phase the machine entered.
	Phase Phase
	// Err is the failure that removed the machine, for Excluded and
	// Abandoned.
	Err error
	// JobID is the submitted job, if any.
	JobID string
	// Task is the job's terminal state, for Succeeded and Failed.
	Task *taskstate.Task
	// CleanupErr is a PostCompletion failure. It does not change
	// Outcome.
	CleanupErr error
	Started    time.Time
	Finished   time.Time
}

// Reason is a one-line explanation of the outcome.
func (r Result) Reason() string {
	switch r.Outcome {
	case Excluded, Abandoned:
		if r.Err != nil {
			return fmt.Sprintf("%s: %v", r.Phase, r.Err)
		}
		return string(r.Phase)
	case Skipped:
		return "nothing to do"
	case Succeeded, Failed:
		if r.Task == nil {
			return ""
		}
		if r.Task.Message != "" {
			return fmt.Sprintf("%s: %s", r.Task.String(), r.Task.Message)
		}
		return r.Task.String()
	}
	return ""
}

// OK reports whether the machine ended without a job failure or
// abandonment. Skipped machines are OK.
func (r Result) OK() bool {
	return r.Outcome == Succeeded || r.Outcome == Skipped
}

// Summary is the record of one run.
type Summary struct {
	RunID    string
	Mode     Mode
	Started  time.Time
	Finished time.Time
	// Results has one entry per target, in target order.
	Results []Result
	// Active is the size of the active set after the connect phase,
	// then after each wave or poll round (Wave, Serial) or each
	// machine's exit (Parallel). It never increases.
	Active []int
}

// Count returns how many machines ended with outcome.
func (s *Summary) Count(outcome Outcome) int {
	count := 0
	for _, result := range s.Results {
		if result.Outcome == outcome {
			count++
		}
	}
	return count
}

// Result returns the record for machine.
func (s *Summary) Result(machine string) (Result, bool) {
	for _, result := range s.Results {
		if result.Machine == machine {
			return result, true
		}
	}
	return Result{}, false
}

// OK reports whether every machine succeeded or was skipped.
func (s *Summary) OK() bool {
	for _, result := range s.Results {
		if !result.OK() {
			return false
		}
	}
	return true
}
