// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/acmlab/bmcfleet/lib/config"
	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/idrac"
	"github.com/acmlab/bmcfleet/lib/inventory"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/sealed"
)

// AdminCredentialsEnv, when set to any non-empty value, makes commands
// without a preferred standard user log in as admin.
const AdminCredentialsEnv = "ACM_LAB_USE_BMC_ADMIN_CREDS"

// Session is the shared connection parameter set. Embed it in a
// command's params struct to get the config, identity, verbosity, and
// login flags.
type Session struct {
	ConfigFile      string `json:"-" flag:"config" desc:"configuration file (default $BMCFLEET_CONFIG)"`
	IdentityFile    string `json:"-" flag:"identity" desc:"age identity file for an encrypted credentials file"`
	Verbose         bool   `json:"-" flag:"verbose,v" desc:"log at debug level"`
	Username        string `json:"-" flag:"username,u" desc:"BMC login name (requires --password or --password-file)"`
	Password        string `json:"-" flag:"password,p" desc:"BMC login password"`
	PasswordFile    string `json:"-" flag:"password-file" desc:"read the BMC login password from a file"`
	UseDefaultCreds bool   `json:"-" flag:"use-default-creds,D" desc:"log in with the default standard credentials"`
	AsAdmin         bool   `json:"-" flag:"as-admin,A" desc:"log in with the admin standard credentials"`
	AsRoot          bool   `json:"-" flag:"as-root,R" desc:"log in with the root standard credentials"`
	AsMgmt          bool   `json:"-" flag:"as-mgmt,M" desc:"log in with the mgmt standard credentials"`
}

// LogLevel implements the level hook Execute consults.
func (s *Session) LogLevel() slog.Level {
	if s.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// LoadConfig reads --config, else $BMCFLEET_CONFIG, else the defaults.
func (s *Session) LoadConfig() (*config.Config, error) {
	if s.ConfigFile != "" {
		return config.LoadFile(s.ConfigFile)
	}
	if os.Getenv(config.EnvVar) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// LoginDefaults are a command's preferences when no login flag is
// given.
type LoginDefaults struct {
	// User is the standard user to fall back on. Empty leaves the
	// choice to AdminCredentialsEnv.
	User inventory.StandardUser
	// UseDefaultEntry lets the command reach machines the inventory
	// does not list. Implies the default standard user when nothing
	// else picks one.
	UseDefaultEntry bool
}

// Login turns the login flags into an inventory login. Flag precedence
// is --use-default-creds, --as-root, --as-mgmt, --as-admin. The caller
// owns the returned Password.
func (s *Session) Login(defaults LoginDefaults) (inventory.Login, error) {
	login := inventory.Login{UseDefaultEntry: defaults.UseDefaultEntry}

	hasPassword := s.Password != "" || s.PasswordFile != ""
	if (s.Username != "") != hasPassword {
		return inventory.Login{}, Validation("--username and --password (or --password-file) must be given together")
	}
	if s.Password != "" && s.PasswordFile != "" {
		return inventory.Login{}, Validation("--password and --password-file are mutually exclusive")
	}

	switch {
	case s.UseDefaultCreds:
		login.User = inventory.UserDefault
	case s.AsRoot:
		login.User = inventory.UserRoot
	case s.AsMgmt:
		login.User = inventory.UserMgmt
	case s.AsAdmin:
		login.User = inventory.UserAdmin
	case defaults.User != "":
		login.User = defaults.User
	case os.Getenv(AdminCredentialsEnv) != "":
		login.User = inventory.UserAdmin
	}
	if defaults.UseDefaultEntry && login.User == "" {
		login.User = inventory.UserDefault
	}

	if s.Username != "" {
		var password *credential.Secret
		var err error
		if s.PasswordFile != "" {
			password, err = ReadSecretFile(s.PasswordFile)
		} else {
			password, err = credential.NewSecretFromString(s.Password)
		}
		if err != nil {
			return inventory.Login{}, err
		}
		login.Username = s.Username
		login.Password = password
	}
	return login, nil
}

// Environment is everything a command needs to reach its machines.
type Environment struct {
	Config  *config.Config
	Targets []fleet.Target
	Logger  *slog.Logger
}

// Open loads the config and inventory and resolves names into targets.
// The inventory itself is closed before Open returns; the targets hold
// their own password copies until Close.
func (s *Session) Open(names []string, defaults LoginDefaults, logger *slog.Logger) (*Environment, error) {
	if len(names) == 0 {
		return nil, Validation("at least one machine name is required")
	}
	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, Validation("%w", err)
	}
	options, err := cfg.InventoryOptions()
	if err != nil {
		return nil, Validation("%w", err)
	}
	identityFile := s.IdentityFile
	if identityFile == "" {
		identityFile = cfg.Inventory.IdentityFile
	}
	if identityFile != "" {
		options.Identities, err = sealed.ReadIdentities(identityFile)
		if err != nil {
			return nil, Validation("reading identity file: %w", err)
		}
	}

	login, err := s.Login(defaults)
	if err != nil {
		return nil, err
	}
	if login.Password != nil {
		defer login.Password.Close()
	}

	inv, err := inventory.Load(options)
	if err != nil {
		return nil, Internal("%w", err)
	}
	defer inv.Close()

	targets, err := inv.ResolveAll(names, login)
	if err != nil {
		if errors.Is(err, inventory.ErrUnknownMachine) || errors.Is(err, inventory.ErrNoCredentials) {
			return nil, Validation("%w", err)
		}
		return nil, Internal("%w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Environment{Config: cfg, Targets: targets, Logger: logger}, nil
}

// Close releases the target passwords.
func (e *Environment) Close() {
	inventory.CloseTargets(e.Targets)
}

// RedfishConfig is the configured client settings with the
// environment's logger.
func (e *Environment) RedfishConfig() redfish.Config {
	base := e.Config.RedfishConfig()
	base.Logger = e.Logger
	return base
}

// Dialer connects targets as generic Redfish services, or as iDRACs
// when dell is set.
func (e *Environment) Dialer(dell bool) fleet.DialFunc {
	if dell {
		return idrac.Dialer(e.RedfishConfig())
	}
	return fleet.RedfishDialer(e.RedfishConfig())
}

// ForEach connects to each target in turn and calls fn with the open
// controller. A machine that fails is logged and the rest still run;
// the returned error counts the failures.
func (e *Environment) ForEach(ctx context.Context, dell bool, fn func(ctx context.Context, target fleet.Target, controller redfish.Controller) error) error {
	dial := e.Dialer(dell)
	var failed []string
	for _, target := range e.Targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := e.each(ctx, dial, target, fn)
		if err != nil {
			e.Logger.Error("machine failed", "machine", target.Name, "error", err)
			failed = append(failed, target.Name)
		}
	}
	switch {
	case len(failed) == 0:
		return nil
	case len(e.Targets) == 1:
		return &ExitError{Code: 1}
	default:
		return fmt.Errorf("%d of %d machines failed: %v", len(failed), len(e.Targets), failed)
	}
}

// One connects to the environment's single target and returns fn's
// error unchanged.
func (e *Environment) One(ctx context.Context, dell bool, fn func(ctx context.Context, target fleet.Target, controller redfish.Controller) error) error {
	if len(e.Targets) != 1 {
		return Validation("expected exactly one machine, got %d", len(e.Targets))
	}
	return e.each(ctx, e.Dialer(dell), e.Targets[0], fn)
}

func (e *Environment) each(ctx context.Context, dial fleet.DialFunc, target fleet.Target, fn func(context.Context, fleet.Target, redfish.Controller) error) error {
	controller, err := dial(ctx, target)
	if err != nil {
		return err
	}
	defer controller.Close(context.WithoutCancel(ctx))
	return fn(ctx, target, controller)
}
