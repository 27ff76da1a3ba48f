// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"context"
	"fmt"
	"strings"
)

// Power states as reported in ComputerSystem.PowerState.
const (
	PowerStateOn  = "On"
	PowerStateOff = "Off"
)

// Reset types used with the #ComputerSystem.Reset action.
const (
	ResetOn               = "On"
	ResetForceOff         = "ForceOff"
	ResetGracefulShutdown = "GracefulShutdown"
	ResetForceRestart     = "ForceRestart"
	ResetGracefulRestart  = "GracefulRestart"
)

// ResetActionName is the Redfish action that changes system power.
const ResetActionName = "#ComputerSystem.Reset"

// PowerResult describes what a power operation did.
type PowerResult struct {
	// Changed is false when the system was already in the requested
	// state and no reset was issued.
	Changed bool
	// From is the power state read before acting.
	From string
	// Reset is the reset type issued, or "" when nothing changed.
	Reset string
}

// PowerState returns the system's current power state. Always read
// from the BMC.
func (c *Client) PowerState(ctx context.Context) (string, error) {
	id, err := c.SystemID(ctx)
	if err != nil {
		return "", err
	}
	system, err := c.GetUncached(ctx, id)
	if err != nil {
		return "", err
	}
	state := system.String("PowerState")
	if state == "" {
		return "", fmt.Errorf("redfish: %s reports no PowerState: %w", id, ErrUnrecognized)
	}
	return state, nil
}

// PowerOn powers the system on unless it already is.
func (c *Client) PowerOn(ctx context.Context) (PowerResult, error) {
	return c.powerTo(ctx, PowerStateOn, ResetOn)
}

// PowerOff forces the system off unless it already is.
func (c *Client) PowerOff(ctx context.Context) (PowerResult, error) {
	return c.powerTo(ctx, PowerStateOff, ResetForceOff)
}

// Shutdown asks the operating system to shut down unless the system is
// already off.
func (c *Client) Shutdown(ctx context.Context) (PowerResult, error) {
	return c.powerTo(ctx, PowerStateOff, ResetGracefulShutdown)
}

// Reboot restarts a running system, forcibly or gracefully. A system
// that is off is left off.
func (c *Client) Reboot(ctx context.Context, force bool) (PowerResult, error) {
	state, err := c.PowerState(ctx)
	if err != nil {
		return PowerResult{}, err
	}
	if strings.EqualFold(state, PowerStateOff) {
		c.logger.Info("system is off, not rebooting", "endpoint", c.baseURL)
		return PowerResult{From: state}, nil
	}

	resetType := ResetGracefulRestart
	if force {
		resetType = ResetForceRestart
	}
	if err := c.resetSystem(ctx, resetType); err != nil {
		return PowerResult{From: state}, err
	}
	return PowerResult{Changed: true, From: state, Reset: resetType}, nil
}

func (c *Client) powerTo(ctx context.Context, desired, resetType string) (PowerResult, error) {
	state, err := c.PowerState(ctx)
	if err != nil {
		return PowerResult{}, err
	}
	if strings.EqualFold(state, desired) {
		c.logger.Info("system already in requested power state", "endpoint", c.baseURL, "state", state)
		return PowerResult{From: state}, nil
	}
	if err := c.resetSystem(ctx, resetType); err != nil {
		return PowerResult{From: state}, err
	}
	return PowerResult{Changed: true, From: state, Reset: resetType}, nil
}

// resetSystem invokes #ComputerSystem.Reset after checking that the
// system advertises the action and allows resetType.
func (c *Client) resetSystem(ctx context.Context, resetType string) error {
	id, err := c.SystemID(ctx)
	if err != nil {
		return err
	}
	system, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	action, err := FindAction(system, ResetActionName)
	if err != nil {
		return err
	}
	if err := action.Check("ResetType", resetType); err != nil {
		return err
	}

	c.logger.Info("resetting system", "endpoint", c.baseURL, "reset_type", resetType)
	_, err = c.PerformAction(ctx, action.Target, map[string]string{"ResetType": resetType})
	c.cache.Invalidate(c.resolve(id))
	return err
}
