// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"context"
	"fmt"
	"strings"

	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/idrac"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// DefaultShutdownType lets the job wait for the power-on issued after
// submission instead of rebooting the host itself.
const DefaultShutdownType = "NoReboot"

// ConfigImport applies a Server Configuration Profile to Dell machines.
type ConfigImport struct {
	Profile *Profile
	// ShutdownType is sent with the import. Empty means
	// DefaultShutdownType.
	ShutdownType string
	// Targets limits the components the import touches. Empty means
	// "ALL".
	Targets []string
}

// Factory returns the fleet factory for c. Controllers must come from
// idrac.Dialer.
func (c ConfigImport) Factory() fleet.Factory {
	return func(target fleet.Target, controller redfish.Controller) (fleet.Task, error) {
		if c.Profile == nil {
			return nil, fmt.Errorf("operation: config import has no profile")
		}
		client, err := idrac.FromController(controller)
		if err != nil {
			return nil, err
		}
		shutdown := c.ShutdownType
		if shutdown == "" {
			shutdown = DefaultShutdownType
		}
		return &configImportTask{
			BaseTask: fleet.NewBaseTask(target, controller),
			client:   client,
			profile:  c.Profile,
			shutdown: shutdown,
			targets:  c.Targets,
		}, nil
	}
}

type configImportTask struct {
	fleet.BaseTask
	client   *idrac.Client
	profile  *Profile
	shutdown string
	targets  []string

	originalPower string
}

func (t *configImportTask) Validate(ctx context.Context) error {
	if err := t.RequireVendor(ctx, idrac.Vendor); err != nil {
		return err
	}
	allowed, err := t.client.ImportShutdownTypes(ctx)
	if err != nil {
		return err
	}
	if len(allowed) > 0 && !containsFold(allowed, t.shutdown) {
		return fmt.Errorf("%w: shutdown type %s not in %s",
			redfish.ErrUnsupportedAction, t.shutdown, strings.Join(allowed, ", "))
	}
	return nil
}

func (t *configImportTask) Prepare(ctx context.Context) (bool, error) {
	state, err := t.Controller.PowerState(ctx)
	if err != nil {
		return false, err
	}
	t.originalPower = state

	target, err := t.client.ImportConfigurationTarget(ctx)
	if err != nil {
		return false, err
	}
	components := "ALL"
	if len(t.targets) > 0 {
		components = strings.Join(t.targets, ",")
	}
	t.SetSubmission(target, map[string]any{
		"ImportBuffer":    t.profile.Buffer,
		"ShareParameters": map[string]any{"Target": components},
		"ShutdownType":    t.shutdown,
	})
	t.Logger.Debug("config import prepared",
		"format", t.profile.Format,
		"components", t.profile.Components,
		"power", state,
	)
	return true, nil
}

func (t *configImportTask) PreSubmit(ctx context.Context) (bool, error) {
	return t.EnsurePower(ctx, redfish.PowerStateOff)
}

func (t *configImportTask) PostSubmit(ctx context.Context) (bool, error) {
	return t.EnsurePower(ctx, redfish.PowerStateOn)
}

// PostCompletion puts the system back in the power state it had
// before the import.
func (t *configImportTask) PostCompletion(ctx context.Context) error {
	if t.originalPower == "" {
		return nil
	}
	state := redfish.PowerStateOn
	if strings.EqualFold(t.originalPower, redfish.PowerStateOff) {
		state = redfish.PowerStateOff
	}
	_, err := t.EnsurePower(ctx, state)
	return err
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
