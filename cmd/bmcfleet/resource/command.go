// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/snapshot"
)

// Command returns the "resource" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "resource",
		Summary: "Read raw Redfish resources",
		Subcommands: []*cli.Command{
			getCommand(),
			dumpCommand(),
			showCommand(),
		},
		Examples: []cli.Example{
			{Description: "Read the system resource", Command: "bmcfleet resource get r650-07 Systems/System.Embedded.1"},
			{Description: "Capture the whole tree for a bug report", Command: "bmcfleet resource dump --output r650-07.snap r650-07"},
			{Description: "List the paths in a capture", Command: "bmcfleet resource show r650-07.snap"},
		},
	}
}

// resourcePath makes path absolute. Relative paths are under the
// service root.
func resourcePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/redfish/v1/" + strings.TrimPrefix(path, "redfish/v1/")
}

func getCommand() *cli.Command {
	var params cli.Session
	return &cli.Command{
		Name:    "get",
		Summary: "Print one resource as JSON",
		Description: `Read one resource, bypassing the client cache, and print it as JSON.
Paths not starting with "/" are relative to /redfish/v1/.`,
		Usage:  "bmcfleet resource get [flags] <machine> <path>",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("expected <machine> <path>")
			}
			return runGet(ctx, &params, args[0], args[1], logger, os.Stdout)
		},
	}
}

func runGet(ctx context.Context, session *cli.Session, machine, path string, logger *slog.Logger, w io.Writer) error {
	environment, err := session.Open([]string{machine}, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.One(ctx, false, func(ctx context.Context, _ fleet.Target, controller redfish.Controller) error {
		resource, err := controller.GetUncached(ctx, resourcePath(path))
		if err != nil {
			return cli.Classify(err)
		}
		return cli.WriteJSON(w, resource)
	})
}

type dumpParams struct {
	cli.Session
	Output       string   `json:"-" flag:"output,o" desc:"snapshot file to write (default <machine>.snap)"`
	Compression  string   `json:"-" flag:"compression" desc:"payload compression: zstd, lz4, or none" default:"zstd"`
	Start        string   `json:"-" flag:"start" desc:"path to start the walk from (default the service root)"`
	Exclude      []string `json:"-" flag:"exclude" desc:"path prefixes not to visit (replaces the defaults)"`
	MaxResources int      `json:"-" flag:"max-resources" desc:"stop after reading this many resources"`
}

func dumpCommand() *cli.Command {
	var params dumpParams
	return &cli.Command{
		Name:    "dump",
		Summary: "Capture a machine's resource tree to a file",
		Description: `Walk every resource reachable from the service root (or --start) and
write them to a compressed snapshot file. Read failures are recorded in
the snapshot rather than aborting the walk. Log services, registries,
and sessions are skipped unless --exclude replaces the defaults.`,
		Usage:  "bmcfleet resource dump [flags] <machine>",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one <machine>")
			}
			return runDump(ctx, &params, args[0], logger, os.Stdout)
		},
	}
}

func runDump(ctx context.Context, params *dumpParams, machine string, logger *slog.Logger, w io.Writer) error {
	tag, err := snapshot.ParseCompressionTag(params.Compression)
	if err != nil {
		return cli.Validation("--compression: %w", err)
	}
	environment, err := params.Open([]string{machine}, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	options := snapshot.Options{Start: params.Start, MaxResources: params.MaxResources}
	if len(params.Exclude) > 0 {
		options.Exclude = params.Exclude
	}

	return environment.One(ctx, false, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		captured, err := snapshot.Collect(ctx, target.Name, controller, options)
		if err != nil {
			return err
		}
		output := params.Output
		if output == "" {
			output = target.Name + ".snap"
		}
		sum, err := captured.WriteFile(output, tag)
		if err != nil {
			return cli.Internal("%w", err)
		}
		fmt.Fprintf(w, "%s: %d resources, %d errors -> %s (%s)\n",
			target.Name, len(captured.Resources), len(captured.Errors), output, sum.Short())
		if captured.Truncated {
			fmt.Fprintf(w, "%s: walk stopped early, raise --max-resources for the full tree\n", target.Name)
		}
		return nil
	})
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:    "show",
		Summary: "Inspect a snapshot file",
		Description: `Without a path, list the captured paths and failed reads. With a path,
print that resource as JSON.`,
		Usage: "bmcfleet resource show <snapshot-file> [path]",
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 1 || len(args) > 2 {
				return cli.Validation("expected <snapshot-file> [path]")
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			return runShow(args[0], path, os.Stdout)
		},
	}
}

func runShow(file, path string, w io.Writer) error {
	captured, sum, err := snapshot.ReadFile(file)
	if err != nil {
		return cli.Validation("%w", err)
	}
	if path != "" {
		resource, ok := captured.Resources[resourcePath(path)]
		if !ok {
			return cli.NotFound("%s is not in the snapshot", resourcePath(path))
		}
		return cli.WriteJSON(w, resource)
	}

	fmt.Fprintf(w, "machine %s (%s), taken %s, digest %s\n",
		captured.Machine, captured.Endpoint, captured.Taken.Format("2006-01-02 15:04:05 MST"), sum.Short())
	for _, entry := range captured.Paths() {
		fmt.Fprintln(w, entry)
	}
	for _, failed := range slices.Sorted(maps.Keys(captured.Errors)) {
		fmt.Fprintf(w, "%s: error: %s\n", failed, captured.Errors[failed])
	}
	return nil
}
