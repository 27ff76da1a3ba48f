// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"context"
	"strings"

	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// PowerCycle forces every system off and powers it back on.
type PowerCycle struct {
	// SkipPoweredOff leaves systems that are already off alone.
	SkipPoweredOff bool
}

// Factory returns the fleet factory for p.
func (p PowerCycle) Factory() fleet.Factory {
	return func(target fleet.Target, controller redfish.Controller) (fleet.Task, error) {
		return &powerCycleTask{
			BaseTask: fleet.NewBaseTask(target, controller),
			skipOff:  p.SkipPoweredOff,
		}, nil
	}
}

type powerCycleTask struct {
	fleet.BaseTask
	skipOff bool
}

func (t *powerCycleTask) Prepare(ctx context.Context) (bool, error) {
	state, err := t.Controller.PowerState(ctx)
	if err != nil {
		return false, err
	}
	if t.skipOff && strings.EqualFold(state, redfish.PowerStateOff) {
		return false, nil
	}
	return true, nil
}

func (t *powerCycleTask) PreSubmit(ctx context.Context) (bool, error) {
	return t.EnsurePower(ctx, redfish.PowerStateOff)
}

func (t *powerCycleTask) PostSubmit(ctx context.Context) (bool, error) {
	return t.EnsurePower(ctx, redfish.PowerStateOn)
}
