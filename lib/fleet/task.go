// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/taskstate"
)

// ErrWrongVendor is returned by RequireVendor when the BMC belongs to a
// vendor the operation does not support.
var ErrWrongVendor = errors.New("fleet: unsupported BMC vendor")

// Task is one machine's share of an operation. The runner calls the
// methods in phase order and never concurrently for the same Task.
type Task interface {
	// Machine returns the machine name used in logs and results.
	Machine() string

	// Validate checks that the machine matches what the operation
	// assumes. It must not change machine state. A failure excludes
	// the machine before any side effect.
	Validate(ctx context.Context) error

	// Prepare builds the submission. needed=false means there is
	// nothing to do for this machine; it is skipped, not failed.
	Prepare(ctx context.Context) (needed bool, err error)

	// PreSubmit performs side effects required before submission.
	// pause asks for a settle period afterwards.
	PreSubmit(ctx context.Context) (pause bool, err error)

	// Submission returns the action target and request body. An empty
	// target means the operation has no asynchronous job.
	Submission() (target string, body any)

	// SetJobID records the id of the submitted job.
	SetJobID(id string)
	JobID() string

	// PostSubmit performs side effects that let the job run.
	PostSubmit(ctx context.Context) (pause bool, err error)

	// SetEnding records the job's terminal state.
	SetEnding(task *taskstate.Task)
	Ending() *taskstate.Task

	// PostCompletion cleans up after the job, whatever its result.
	PostCompletion(ctx context.Context) error
}

// Factory builds the Task for one connected machine. An error excludes
// the machine.
type Factory func(target Target, controller redfish.Controller) (Task, error)

// BaseTask provides the no-op phase defaults and the helpers common to
// operations. Operations embed it and override the phases they need.
type BaseTask struct {
	Target     Target
	Controller redfish.Controller
	Logger     *slog.Logger

	submitTarget string
	submitBody   any
	jobID        string
	jobIDSet     bool
	ending       *taskstate.Task
}

// NewBaseTask binds a BaseTask to one machine.
func NewBaseTask(target Target, controller redfish.Controller) BaseTask {
	logger := controller.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	return BaseTask{
		Target:     target,
		Controller: controller,
		Logger:     logger.With("machine", target.Name),
	}
}

func (b *BaseTask) Machine() string { return b.Target.Name }

func (b *BaseTask) Validate(context.Context) error { return nil }

func (b *BaseTask) Prepare(context.Context) (bool, error) { return true, nil }

func (b *BaseTask) PreSubmit(context.Context) (bool, error) { return false, nil }

// SetSubmission records the target and body returned by Submission.
func (b *BaseTask) SetSubmission(target string, body any) {
	b.submitTarget = target
	b.submitBody = body
}

func (b *BaseTask) Submission() (string, any) { return b.submitTarget, b.submitBody }

// SetJobID records id. Only the first call takes effect.
func (b *BaseTask) SetJobID(id string) {
	if b.jobIDSet {
		b.Logger.Warn("job id already set, ignoring", "job", b.jobID, "ignored", id)
		return
	}
	b.jobID = id
	b.jobIDSet = true
}

func (b *BaseTask) JobID() string { return b.jobID }

func (b *BaseTask) PostSubmit(context.Context) (bool, error) { return false, nil }

// SetEnding records task. Only the first call takes effect.
func (b *BaseTask) SetEnding(task *taskstate.Task) {
	if b.ending != nil {
		return
	}
	b.ending = task
}

func (b *BaseTask) Ending() *taskstate.Task { return b.ending }

func (b *BaseTask) PostCompletion(context.Context) error { return nil }

// EnsurePower brings the system to state ("On" or "Off", compared
// case-insensitively). Turning off is a forced power-off. Reports
// whether a reset was issued.
func (b *BaseTask) EnsurePower(ctx context.Context, state string) (bool, error) {
	var (
		result redfish.PowerResult
		err    error
	)
	switch {
	case strings.EqualFold(state, redfish.PowerStateOn):
		result, err = b.Controller.PowerOn(ctx)
	case strings.EqualFold(state, redfish.PowerStateOff):
		result, err = b.Controller.PowerOff(ctx)
	default:
		return false, fmt.Errorf("fleet: unknown power state %q", state)
	}
	if err != nil {
		return false, err
	}
	if result.Changed {
		b.Logger.Info("power state changed", "from", result.From, "reset", result.Reset)
	}
	return result.Changed, nil
}

// RequireVendor fails with ErrWrongVendor unless the service root
// names one of vendors (case-insensitive).
func (b *BaseTask) RequireVendor(ctx context.Context, vendors ...string) error {
	vendor, err := b.Controller.Vendor(ctx)
	if err != nil {
		return err
	}
	for _, want := range vendors {
		if strings.EqualFold(vendor, want) {
			return nil
		}
	}
	if vendor == "" {
		vendor = "unknown"
	}
	return fmt.Errorf("%w: %s (want %s)", ErrWrongVendor, vendor, strings.Join(vendors, " or "))
}
