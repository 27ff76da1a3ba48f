// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/idrac"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// Command returns the "machine" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:        "machine",
		Summary:     "Describe machines",
		Subcommands: []*cli.Command{infoCommand()},
	}
}

type infoParams struct {
	cli.Session
	cli.JSONOutput
}

// machineInfo is one machine's entry in the info output.
type machineInfo struct {
	Name string `json:"name" yaml:"name"`

	idrac.SystemInfo `yaml:",inline"`
}

func infoCommand() *cli.Command {
	var params infoParams
	return &cli.Command{
		Name:    "info",
		Summary: "Show model, firmware, and network ports",
		Description: `Read hardware details from each Dell iDRAC: model, service tag,
firmware versions, and every Ethernet port with its MAC address.
Output is YAML shaped for pasting into the machines file, or JSON with
--json.`,
		Usage:  "bmcfleet machine info [flags] <machine>...",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runInfo(ctx, &params, args, logger, os.Stdout)
		},
	}
}

func runInfo(ctx context.Context, params *infoParams, names []string, logger *slog.Logger, w io.Writer) error {
	environment, err := params.Open(names, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	var infos []machineInfo
	err = environment.ForEach(ctx, true, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		client, err := idrac.FromController(controller)
		if err != nil {
			return err
		}
		info, err := client.SystemInfo(ctx)
		if err != nil {
			return err
		}
		infos = append(infos, machineInfo{Name: target.Name, SystemInfo: info})
		return nil
	})
	if len(infos) > 0 {
		if emitErr := emit(params, infos, w); emitErr != nil {
			return emitErr
		}
	}
	return err
}

func emit(params *infoParams, infos []machineInfo, w io.Writer) error {
	if done, err := params.EmitJSON(w, infos); done {
		return err
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(infos); err != nil {
		return err
	}
	return encoder.Close()
}
