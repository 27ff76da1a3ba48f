// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/operation"
)

// Command returns the "job" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "job",
		Summary: "Run fleet operations across machines",
		Description: `Run a multi-phase operation across many machines.

Each machine is connected, validated, prepared, submitted, and polled
until its BMC job ends. A machine that fails at any point is dropped
from the run without affecting the others.

Modes:
  parallel  each machine runs all phases on its own
  wave      every machine finishes a phase before any starts the next
  serial    like wave, one machine at a time`,
		Subcommands: []*cli.Command{
			configImportCommand(),
			firmwareUpdateCommand(),
			powerCycleCommand(),
		},
		Examples: []cli.Example{
			{Description: "Apply a BIOS profile in waves and keep a report", Command: "bmcfleet job config-import --report run.json bios.json r650-07 r750-02"},
			{Description: "Update firmware on every machine in parallel", Command: "bmcfleet job firmware-update --mode parallel --image-uri http://depot/bmc.exe r650-07 r750-02"},
			{Description: "Power-cycle machines one at a time", Command: "bmcfleet job power-cycle --mode serial r650-07 r750-02"},
		},
	}
}

type configImportParams struct {
	RunParams
	ShutdownType string   `json:"-" flag:"shutdown-type" desc:"import shutdown type (default NoReboot)"`
	Targets      []string `json:"-" flag:"targets" desc:"profile components to apply (default ALL)"`
}

func configImportCommand() *cli.Command {
	var params configImportParams
	return &cli.Command{
		Name:    "config-import",
		Summary: "Apply a Server Configuration Profile to Dell machines",
		Description: `Apply a Server Configuration Profile (JSON, JSONC, or XML) to Dell iDRAC
machines. Each machine is powered off before the import is submitted,
powered on so the import can run, and returned to its original power
state when the job ends.`,
		Usage:  "bmcfleet job config-import [flags] <profile> <machine>...",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runConfigImport(ctx, &params, args, logger, os.Stdout)
		},
	}
}

func runConfigImport(ctx context.Context, params *configImportParams, args []string, logger *slog.Logger, w io.Writer) error {
	if len(args) < 2 {
		return cli.Validation("expected <profile> <machine>...")
	}
	profile, err := operation.ReadProfile(args[0])
	if err != nil {
		return cli.Validation("%w", err)
	}
	op := operation.ConfigImport{
		Profile:      profile,
		ShutdownType: params.ShutdownType,
		Targets:      params.Targets,
	}
	return params.run(ctx, "config-import", op.Factory(), true, args[1:], logger, w)
}

type firmwareUpdateParams struct {
	RunParams
	Options          string   `json:"-" flag:"options" desc:"JSONC file with ImageURI, TransferProtocol, and Targets"`
	ImageURI         string   `json:"-" flag:"image-uri" desc:"image location the BMC downloads from"`
	TransferProtocol string   `json:"-" flag:"transfer-protocol" desc:"protocol for the image download"`
	Targets          []string `json:"-" flag:"targets" desc:"firmware inventory ids to update"`
}

func firmwareUpdateCommand() *cli.Command {
	var params firmwareUpdateParams
	return &cli.Command{
		Name:    "firmware-update",
		Summary: "Install a firmware image through the UpdateService",
		Description: `Install a firmware image with the standard UpdateService SimpleUpdate
action. Parameters come from --options, overridden by the individual
flags. Machines are skipped when no image URI is given.`,
		Usage:  "bmcfleet job firmware-update [flags] <machine>...",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			update, err := params.update()
			if err != nil {
				return err
			}
			return params.run(ctx, "firmware-update", update.Factory(), false, args, logger, os.Stdout)
		},
	}
}

func (p *firmwareUpdateParams) update() (operation.FirmwareUpdate, error) {
	var update operation.FirmwareUpdate
	if p.Options != "" {
		var err error
		update, err = operation.ReadFirmwareUpdate(p.Options)
		if err != nil {
			return operation.FirmwareUpdate{}, cli.Validation("%w", err)
		}
	}
	if p.ImageURI != "" {
		update.ImageURI = p.ImageURI
	}
	if p.TransferProtocol != "" {
		update.TransferProtocol = p.TransferProtocol
	}
	if len(p.Targets) > 0 {
		update.Targets = p.Targets
	}
	return update, nil
}

type powerCycleParams struct {
	RunParams
	SkipOff bool `json:"-" flag:"skip-off" desc:"leave machines that are already off alone"`
}

func powerCycleCommand() *cli.Command {
	var params powerCycleParams
	return &cli.Command{
		Name:    "power-cycle",
		Summary: "Force machines off and power them back on",
		Usage:   "bmcfleet job power-cycle [flags] <machine>...",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			op := operation.PowerCycle{SkipPoweredOff: params.SkipOff}
			return params.run(ctx, "power-cycle", op.Factory(), false, args, logger, os.Stdout)
		},
	}
}
