// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"context"
	"fmt"

	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// SimpleUpdateAction is the UpdateService action FirmwareUpdate submits.
const SimpleUpdateAction = "#UpdateService.SimpleUpdate"

// FirmwareUpdate installs a firmware image through the standard
// UpdateService.
type FirmwareUpdate struct {
	// ImageURI is where the BMC fetches the image. Machines are skipped
	// when it is empty.
	ImageURI string `json:"ImageURI"`
	// TransferProtocol is checked against the action's allow-list when
	// set.
	TransferProtocol string `json:"TransferProtocol,omitempty"`
	// Targets are the firmware inventory ids to update; empty lets the
	// BMC choose.
	Targets []string `json:"Targets,omitempty"`
}

// ReadFirmwareUpdate loads FirmwareUpdate parameters from a JSONC file.
func ReadFirmwareUpdate(path string) (FirmwareUpdate, error) {
	var update FirmwareUpdate
	if err := readJSONC(path, &update); err != nil {
		return FirmwareUpdate{}, err
	}
	return update, nil
}

// Factory returns the fleet factory for f.
func (f FirmwareUpdate) Factory() fleet.Factory {
	return func(target fleet.Target, controller redfish.Controller) (fleet.Task, error) {
		return &firmwareTask{
			BaseTask: fleet.NewBaseTask(target, controller),
			update:   f,
		}, nil
	}
}

type firmwareTask struct {
	fleet.BaseTask
	update FirmwareUpdate
	action redfish.Action
}

func (t *firmwareTask) Validate(ctx context.Context) error {
	root, err := t.Controller.ServiceRoot(ctx)
	if err != nil {
		return err
	}
	servicePath := root.Link("UpdateService")
	if servicePath == "" {
		return fmt.Errorf("%w: service root has no UpdateService", redfish.ErrUnsupportedAction)
	}
	service, err := t.Controller.Get(ctx, servicePath)
	if err != nil {
		return err
	}
	action, err := redfish.FindAction(service, SimpleUpdateAction)
	if err != nil {
		return err
	}
	if t.update.TransferProtocol != "" {
		if err := action.Check("TransferProtocol", t.update.TransferProtocol); err != nil {
			return err
		}
	}
	t.action = action
	return nil
}

func (t *firmwareTask) Prepare(context.Context) (bool, error) {
	if t.update.ImageURI == "" {
		return false, nil
	}
	body := map[string]any{"ImageURI": t.update.ImageURI}
	if t.update.TransferProtocol != "" {
		body["TransferProtocol"] = t.update.TransferProtocol
	}
	if len(t.update.Targets) > 0 {
		body["Targets"] = t.update.Targets
	}
	t.SetSubmission(t.action.Target, body)
	return true, nil
}
