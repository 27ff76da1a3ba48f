// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package license

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/idrac"
	"github.com/acmlab/bmcfleet/lib/inventory"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

var adminLogin = cli.LoginDefaults{User: inventory.UserAdmin}

// Command returns the "license" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "license",
		Summary: "Manage iDRAC licenses",
		Subcommands: []*cli.Command{
			listCommand(),
			installCommand(),
			removeCommand(),
		},
		Examples: []cli.Example{
			{Description: "Install a license on two machines", Command: "bmcfleet license install ome-advanced.xml r650-07 r650-08"},
			{Description: "Show installed licenses", Command: "bmcfleet license list r650-07"},
		},
	}
}

type listParams struct {
	cli.Session
	cli.JSONOutput
}

type licenseView struct {
	Machine       string   `json:"machine"`
	EntitlementID string   `json:"entitlement_id"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	EvalDays      int      `json:"eval_days_remaining,omitempty"`
	Devices       []string `json:"assigned_devices,omitempty"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List installed licenses",
		Usage:   "bmcfleet license list [flags] <machine>...",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runList(ctx, &params, args, logger, os.Stdout)
		},
	}
}

func runList(ctx context.Context, params *listParams, names []string, logger *slog.Logger, w io.Writer) error {
	environment, err := params.Open(names, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	var views []licenseView
	err = environment.ForEach(ctx, true, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		client, err := idrac.FromController(controller)
		if err != nil {
			return err
		}
		licenses, err := client.ListLicenses(ctx)
		if err != nil {
			return err
		}
		for _, license := range licenses {
			views = append(views, licenseView{
				Machine:       target.Name,
				EntitlementID: license.EntitlementID,
				Type:          license.Type,
				Description:   license.Description,
				EvalDays:      license.EvalDaysRemaining,
				Devices:       license.AssignedDevices,
			})
			if !params.OutputJSON {
				fmt.Fprintf(w, "%s: %s  %s\n", target.Name, license.EntitlementID, license.Summary())
			}
		}
		if len(licenses) == 0 && !params.OutputJSON {
			fmt.Fprintf(w, "%s: no licenses\n", target.Name)
		}
		return nil
	})
	if _, emitErr := params.EmitJSON(w, views); emitErr != nil {
		return emitErr
	}
	return err
}

func installCommand() *cli.Command {
	var params cli.Session
	return &cli.Command{
		Name:    "install",
		Summary: "Install a license file",
		Description: `Install a Dell license file on each machine. Machines that already
have the license's entitlement are reported and left alone.`,
		Usage:  "bmcfleet license install [flags] <license-file> <machine>...",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 2 {
				return cli.Validation("expected <license-file> <machine>...")
			}
			return runInstall(ctx, &params, args[0], args[1:], logger, os.Stdout)
		},
	}
}

func runInstall(ctx context.Context, session *cli.Session, path string, names []string, logger *slog.Logger, w io.Writer) error {
	file, err := idrac.ReadLicenseFile(path)
	if err != nil {
		return cli.Validation("%w", err)
	}
	environment, err := session.Open(names, adminLogin, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.ForEach(ctx, true, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		client, err := idrac.FromController(controller)
		if err != nil {
			return err
		}
		err = client.InstallLicense(ctx, file)
		switch {
		case errors.Is(err, redfish.ErrAlreadyExists):
			fmt.Fprintf(w, "%s: %s is already installed\n", target.Name, file.EntitlementID)
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintf(w, "%s: installed %s (%s)\n", target.Name, file.EntitlementID, file.Description)
		return nil
	})
}

func removeCommand() *cli.Command {
	var params cli.Session
	return &cli.Command{
		Name:    "remove",
		Summary: "Remove an installed license",
		Usage:   "bmcfleet license remove [flags] <entitlement-id> <machine>...",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 2 {
				return cli.Validation("expected <entitlement-id> <machine>...")
			}
			return runRemove(ctx, &params, args[0], args[1:], logger, os.Stdout)
		},
	}
}

func runRemove(ctx context.Context, session *cli.Session, entitlementID string, names []string, logger *slog.Logger, w io.Writer) error {
	environment, err := session.Open(names, adminLogin, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.ForEach(ctx, true, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		client, err := idrac.FromController(controller)
		if err != nil {
			return err
		}
		if err := client.RemoveLicense(ctx, entitlementID); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: removed %s\n", target.Name, entitlementID)
		return nil
	})
}
