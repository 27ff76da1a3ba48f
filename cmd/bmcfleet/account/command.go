// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/inventory"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// adminLogin is the login default of every command that changes the
// account table.
var adminLogin = cli.LoginDefaults{User: inventory.UserAdmin, UseDefaultEntry: true}

// Command returns the "account" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "account",
		Summary: "Manage BMC local accounts",
		Description: `List and manage the local accounts of a machine's BMC.

Accounts live in numbered slots. Slot 1 is reserved by the BMC. New
accounts take the first empty slot; the protected account (root by
default, see client.protected_account) cannot be deleted.

Roles are administrator, operator, readonly, and none.`,
		Subcommands: []*cli.Command{
			listCommand(),
			getCommand(),
			createCommand(),
			deleteCommand(),
			passwdCommand(),
		},
		Examples: []cli.Example{
			{Description: "List accounts", Command: "bmcfleet account list r650-07"},
			{Description: "Create an operator account, prompting for its password", Command: "bmcfleet account create --role operator r650-07 ci-runner"},
			{Description: "Change a password from a file", Command: "bmcfleet account passwd --new-password-file ./pw r650-07 ci-runner"},
		},
	}
}

// accountView is the JSON form of an account.
type accountView struct {
	Slot     int    `json:"slot"`
	UserName string `json:"user_name"`
	Role     string `json:"role"`
	Enabled  bool   `json:"enabled"`
	Locked   bool   `json:"locked"`
}

func view(account redfish.Account) accountView {
	return accountView{
		Slot:     account.Slot,
		UserName: account.UserName,
		Role:     string(account.RoleID),
		Enabled:  account.Enabled,
		Locked:   account.Locked,
	}
}

type listParams struct {
	cli.Session
	cli.JSONOutput
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List populated account slots",
		Usage:   "bmcfleet account list [flags] <machine>",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one machine")
			}
			return runList(ctx, &params, args[0], logger, os.Stdout)
		},
	}
}

func runList(ctx context.Context, params *listParams, machine string, logger *slog.Logger, w io.Writer) error {
	environment, err := params.Open([]string{machine}, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.One(ctx, false, func(ctx context.Context, _ fleet.Target, controller redfish.Controller) error {
		accounts, err := controller.ListAccounts(ctx)
		if err != nil {
			return cli.Classify(err)
		}
		views := make([]accountView, 0, len(accounts))
		for _, account := range accounts {
			views = append(views, view(account))
		}
		if done, err := params.EmitJSON(w, views); done {
			return err
		}
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "SLOT\tUSER\tROLE\tENABLED\n")
		for _, account := range views {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", account.Slot, account.UserName, account.Role, account.Enabled)
		}
		return tw.Flush()
	})
}

type getParams struct {
	cli.Session
	cli.JSONOutput
}

func getCommand() *cli.Command {
	var params getParams
	return &cli.Command{
		Name:    "get",
		Summary: "Show one account",
		Usage:   "bmcfleet account get [flags] <machine> <username>",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("expected <machine> <username>")
			}
			return runGet(ctx, &params, args[0], args[1], logger, os.Stdout)
		},
	}
}

func runGet(ctx context.Context, params *getParams, machine, username string, logger *slog.Logger, w io.Writer) error {
	environment, err := params.Open([]string{machine}, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.One(ctx, false, func(ctx context.Context, _ fleet.Target, controller redfish.Controller) error {
		account, err := controller.GetAccount(ctx, username)
		if err != nil {
			return cli.Classify(err)
		}
		if done, err := params.EmitJSON(w, view(account)); done {
			return err
		}
		fmt.Fprintf(w, "user:    %s\nslot:    %d\nrole:    %s\nenabled: %v\nlocked:  %v\n",
			account.UserName, account.Slot, account.RoleID, account.Enabled, account.Locked)
		return nil
	})
}

type createParams struct {
	cli.Session
	Role            string `json:"-" flag:"role" desc:"account role: administrator, operator, readonly, or none (required)"`
	NewPasswordFile string `json:"-" flag:"new-password-file" desc:"read the new account's password from a file"`
}

func createCommand() *cli.Command {
	var params createParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create an account in the first empty slot",
		Description: `Create an account in the first empty slot. The password is taken from
the third argument, --new-password-file, or an interactive prompt.`,
		Usage:  "bmcfleet account create [flags] --role <role> <machine> <username> [<password>]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 2 || len(args) > 3 {
				return cli.Validation("expected <machine> <username> [<password>]")
			}
			role, err := redfish.ParseRole(params.Role)
			if err != nil {
				return cli.Validation("--role: %w", err)
			}
			password, err := cli.PasswordArgument(argument(args, 2), params.NewPasswordFile, "Password for "+args[1])
			if err != nil {
				return err
			}
			defer password.Close()
			return runCreate(ctx, &params.Session, args[0], args[1], password, role, logger, os.Stdout)
		},
	}
}

func runCreate(ctx context.Context, session *cli.Session, machine, username string, password *credential.Secret, role redfish.Role, logger *slog.Logger, w io.Writer) error {
	environment, err := session.Open([]string{machine}, adminLogin, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.One(ctx, false, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		account, err := controller.CreateAccount(ctx, username, password, role)
		if err != nil {
			return cli.Classify(err)
		}
		fmt.Fprintf(w, "%s: created %s in slot %d with role %s\n", target.Name, account.UserName, account.Slot, account.RoleID)
		return nil
	})
}

func deleteCommand() *cli.Command {
	var params cli.Session
	return &cli.Command{
		Name:    "delete",
		Summary: "Disable and clear an account",
		Usage:   "bmcfleet account delete [flags] <machine> <username>",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("expected <machine> <username>")
			}
			return runDelete(ctx, &params, args[0], args[1], logger, os.Stdout)
		},
	}
}

func runDelete(ctx context.Context, session *cli.Session, machine, username string, logger *slog.Logger, w io.Writer) error {
	environment, err := session.Open([]string{machine}, adminLogin, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.One(ctx, false, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		if err := controller.DeleteAccount(ctx, username); err != nil {
			return cli.Classify(err)
		}
		fmt.Fprintf(w, "%s: deleted %s\n", target.Name, username)
		return nil
	})
}

type passwdParams struct {
	cli.Session
	NewPasswordFile string `json:"-" flag:"new-password-file" desc:"read the new password from a file"`
}

func passwdCommand() *cli.Command {
	var params passwdParams
	return &cli.Command{
		Name:    "passwd",
		Summary: "Set an account's password",
		Usage:   "bmcfleet account passwd [flags] <machine> <username> [<password>]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 2 || len(args) > 3 {
				return cli.Validation("expected <machine> <username> [<password>]")
			}
			password, err := cli.PasswordArgument(argument(args, 2), params.NewPasswordFile, "New password for "+args[1])
			if err != nil {
				return err
			}
			defer password.Close()
			return runPasswd(ctx, &params.Session, args[0], args[1], password, logger, os.Stdout)
		},
	}
}

func runPasswd(ctx context.Context, session *cli.Session, machine, username string, password *credential.Secret, logger *slog.Logger, w io.Writer) error {
	environment, err := session.Open([]string{machine}, adminLogin, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	return environment.One(ctx, false, func(ctx context.Context, target fleet.Target, controller redfish.Controller) error {
		if err := controller.SetPassword(ctx, username, password); err != nil {
			return cli.Classify(err)
		}
		fmt.Fprintf(w, "%s: password set for %s\n", target.Name, username)
		return nil
	})
}

// argument returns args[index], or "" when there are fewer args.
func argument(args []string, index int) string {
	if index < len(args) {
		return args[index]
	}
	return ""
}
