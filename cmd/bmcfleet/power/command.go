// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package power

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// Command returns the "power" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "power",
		Summary: "Read or change host power state",
		Description: `Read or change the host power state of machines through their BMCs.

Machines are handled one at a time. A machine that fails is reported
and the remaining machines still run; the exit code is non-zero if any
machine failed.`,
		Subcommands: []*cli.Command{
			stateCommand(),
			changeCommand("on", "Power machines on", "On", func(ctx context.Context, controller redfish.Controller, _ bool) (redfish.PowerResult, error) {
				return controller.PowerOn(ctx)
			}),
			changeCommand("off", "Force machines off", "Off", func(ctx context.Context, controller redfish.Controller, _ bool) (redfish.PowerResult, error) {
				return controller.PowerOff(ctx)
			}),
			changeCommand("shutdown", "Shut machines down gracefully", "Off", func(ctx context.Context, controller redfish.Controller, _ bool) (redfish.PowerResult, error) {
				return controller.Shutdown(ctx)
			}),
			rebootCommand(),
		},
		Examples: []cli.Example{
			{Description: "Show power state", Command: "bmcfleet power state r650-07 r750-02"},
			{Description: "Force a machine off using the admin account", Command: "bmcfleet power off -A r650-07"},
			{Description: "Force a restart", Command: "bmcfleet power reboot --force r750-02"},
		},
	}
}

type stateParams struct {
	cli.Session
	cli.JSONOutput
}

// machineState is one line of "power state" output.
type machineState struct {
	Machine    string `json:"machine"`
	PowerState string `json:"power_state,omitempty"`
	Error      string `json:"error,omitempty"`
}

func stateCommand() *cli.Command {
	var params stateParams
	return &cli.Command{
		Name:    "state",
		Summary: "Show host power state",
		Usage:   "bmcfleet power state [flags] <machine>...",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runState(ctx, &params, args, logger, os.Stdout)
		},
	}
}

func runState(ctx context.Context, params *stateParams, names []string, logger *slog.Logger, w io.Writer) error {
	environment, err := params.Open(names, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	var states []machineState
	runErr := environment.ForEach(ctx, false, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		state, err := controller.PowerState(ctx)
		if err != nil {
			states = append(states, machineState{Machine: target.Name, Error: err.Error()})
			return err
		}
		states = append(states, machineState{Machine: target.Name, PowerState: state})
		return nil
	})

	if done, err := params.EmitJSON(w, states); done {
		if err != nil {
			return err
		}
		return runErr
	}
	for _, state := range states {
		if state.Error != "" {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", state.Machine, state.PowerState)
	}
	return runErr
}

type changeParams struct {
	cli.Session
	Force bool `json:"-" flag:"force" desc:"force an immediate restart instead of a graceful one"`
}

type changeFunc func(ctx context.Context, controller redfish.Controller, force bool) (redfish.PowerResult, error)

func changeCommand(name, summary, desired string, change changeFunc) *cli.Command {
	var params cli.Session
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("bmcfleet power %s [flags] <machine>...", name),
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runChange(ctx, &params, args, logger, os.Stdout, desired, false, change)
		},
	}
}

func rebootCommand() *cli.Command {
	var params changeParams
	return &cli.Command{
		Name:    "reboot",
		Summary: "Restart machines",
		Description: `Restart machines gracefully, or immediately with --force. A machine
that is powered off is left off.`,
		Usage:  "bmcfleet power reboot [flags] <machine>...",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runReboot(ctx, &params, args, logger, os.Stdout)
		},
	}
}

func runReboot(ctx context.Context, params *changeParams, names []string, logger *slog.Logger, w io.Writer) error {
	return runChange(ctx, &params.Session, names, logger, w, "", params.Force,
		func(ctx context.Context, controller redfish.Controller, force bool) (redfish.PowerResult, error) {
			return controller.Reboot(ctx, force)
		})
}

func runChange(ctx context.Context, session *cli.Session, names []string, logger *slog.Logger, w io.Writer, desired string, force bool, change changeFunc) error {
	environment, err := session.Open(names, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.ForEach(ctx, false, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		result, err := change(ctx, controller, force)
		if err != nil {
			return err
		}
		if !result.Changed {
			if desired == "" {
				fmt.Fprintf(w, "%s: %s, left as is\n", target.Name, result.From)
				return nil
			}
			fmt.Fprintf(w, "%s: already %s\n", target.Name, desired)
			return nil
		}
		fmt.Fprintf(w, "%s: %s (was %s)\n", target.Name, result.Reset, result.From)
		return nil
	})
}
