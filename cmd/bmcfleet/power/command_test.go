// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package power

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli/clitest"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
)

func TestPowerCommandHasSubcommands(t *testing.T) {
	command := Command()
	var names []string
	for _, sub := range command.Subcommands {
		names = append(names, sub.Name)
	}
	want := []string{"state", "on", "off", "shutdown", "reboot"}
	if !slices.Equal(names, want) {
		t.Errorf("subcommands = %v, want %v", names, want)
	}
}

func TestRunState(t *testing.T) {
	on := redfishtest.NewServer(t, redfishtest.Config{})
	off := redfishtest.NewServer(t, redfishtest.Config{PowerState: "Off"})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r650-07": on, "r750-02": off})

	var buf bytes.Buffer
	err := runState(context.Background(), &stateParams{}, []string{"r650-07", "r750-02"}, clitest.Logger(), &buf)
	if err != nil {
		t.Fatalf("runState: %v", err)
	}
	if buf.String() != "r650-07: On\nr750-02: Off\n" {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	params := &stateParams{JSONOutput: cli.JSONOutput{OutputJSON: true}}
	if err := runState(context.Background(), params, []string{"r750-02"}, clitest.Logger(), &buf); err != nil {
		t.Fatalf("runState --json: %v", err)
	}
	var states []machineState
	if err := json.Unmarshal(buf.Bytes(), &states); err != nil {
		t.Fatalf("decoding JSON output: %v", err)
	}
	if len(states) != 1 || states[0].PowerState != "Off" {
		t.Errorf("states = %+v", states)
	}
}

func TestRunChange_Idempotent(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{PowerState: "Off"})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r650-07": server})

	powerOff := func(ctx context.Context, controller redfish.Controller, _ bool) (redfish.PowerResult, error) {
		return controller.PowerOff(ctx)
	}
	powerOn := func(ctx context.Context, controller redfish.Controller, _ bool) (redfish.PowerResult, error) {
		return controller.PowerOn(ctx)
	}

	var buf bytes.Buffer
	if err := runChange(context.Background(), &cli.Session{}, []string{"r650-07"}, clitest.Logger(), &buf, "Off", false, powerOff); err != nil {
		t.Fatalf("power off: %v", err)
	}
	if buf.String() != "r650-07: already Off\n" || len(server.Resets()) != 0 {
		t.Errorf("power off of an off machine: output %q resets %v", buf.String(), server.Resets())
	}

	buf.Reset()
	if err := runChange(context.Background(), &cli.Session{}, []string{"r650-07"}, clitest.Logger(), &buf, "On", false, powerOn); err != nil {
		t.Fatalf("power on: %v", err)
	}
	if buf.String() != "r650-07: On (was Off)\n" || server.PowerState() != "On" {
		t.Errorf("power on: output %q state %s", buf.String(), server.PowerState())
	}
}

func TestRebootCommand_Force(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r750-02": server})

	command := rebootCommand()
	if err := command.Execute(context.Background(), []string{"--force", "r750-02"}); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	if resets := server.Resets(); !slices.Equal(resets, []string{"ForceRestart"}) {
		t.Errorf("resets = %v", resets)
	}
}

func TestRunReboot_OffMachineLeftOff(t *testing.T) {
	off := redfishtest.NewServer(t, redfishtest.Config{PowerState: "Off"})
	on := redfishtest.NewServer(t, redfishtest.Config{})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r650-07": on, "r750-02": off})

	var buf bytes.Buffer
	if err := runReboot(context.Background(), &changeParams{}, []string{"r650-07", "r750-02"}, clitest.Logger(), &buf); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	if resets := off.Resets(); len(resets) != 0 || off.PowerState() != "Off" {
		t.Errorf("off machine: resets %v, state %s", resets, off.PowerState())
	}
	if resets := on.Resets(); !slices.Equal(resets, []string{"GracefulRestart"}) {
		t.Errorf("running machine: resets %v", resets)
	}
	want := "r650-07: GracefulRestart (was On)\nr750-02: Off, left as is\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestRunChange_FailureReported(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{ResetTypes: []string{"On", "GracefulShutdown"}})
	clitest.Inventory(t, map[string]*redfishtest.Server{"r650-07": server})

	var buf bytes.Buffer
	err := runChange(context.Background(), &cli.Session{}, []string{"r650-07"}, clitest.Logger(), &buf, "Off", false,
		func(ctx context.Context, controller redfish.Controller, _ bool) (redfish.PowerResult, error) {
			return controller.PowerOff(ctx)
		})
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("unsupported reset type should fail the command, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output for a failed machine: %q", buf.String())
	}
}
