// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete bmcfleet command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	accountcmd "github.com/acmlab/bmcfleet/cmd/bmcfleet/account"
	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	jobcmd "github.com/acmlab/bmcfleet/cmd/bmcfleet/job"
	licensecmd "github.com/acmlab/bmcfleet/cmd/bmcfleet/license"
	machinecmd "github.com/acmlab/bmcfleet/cmd/bmcfleet/machine"
	powercmd "github.com/acmlab/bmcfleet/cmd/bmcfleet/power"
	resourcecmd "github.com/acmlab/bmcfleet/cmd/bmcfleet/resource"
	"github.com/acmlab/bmcfleet/lib/version"
)

// Root builds and returns the complete bmcfleet command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bmcfleet",
		Description: `bmcfleet: manage lab servers through their BMCs.

Machines are named as in the lab inventory ($ACM_LAB_MACHINE_INFO) and
log in with credentials from $ACM_LAB_MACHINE_CREDS, which may be
age-encrypted. Settings come from --config or $BMCFLEET_CONFIG.`,
		Subcommands: []*cli.Command{
			powercmd.Command(),
			accountcmd.Command(),
			jobcmd.Command(),
			licensecmd.Command(),
			resourcecmd.Command(),
			machinecmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Printf("bmcfleet %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Check which machines are powered on",
				Command:     "bmcfleet power state r650-07 r750-02",
			},
			{
				Description: "Apply a BIOS profile across a rack, one wave at a time",
				Command:     "bmcfleet job config-import --report run.json bios.json r650-01 r650-02 r650-03",
			},
			{
				Description: "Add an operator account as the BMC admin",
				Command:     "bmcfleet account create --as-admin --role Operator r650-07 oncall",
			},
		},
	}
}
