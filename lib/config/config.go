// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/inventory"
	"github.com/acmlab/bmcfleet/lib/netutil"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/taskstate"
)

// EnvVar names the configuration file when --config is not given.
const EnvVar = "BMCFLEET_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for trying operations against lab machines.
	Development Environment = "development"
	// Production is for fleet-wide runs.
	Production Environment = "production"
)

// Duration is a time.Duration written in YAML as "15s", "2h", ...
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the bmcfleet configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Inventory names the machine database files.
	Inventory InventoryConfig `yaml:"inventory"`

	// Client configures Redfish sessions.
	Client ClientConfig `yaml:"client"`

	// Runner configures fleet runs.
	Runner RunnerConfig `yaml:"runner"`

	// TaskState configures job-state normalization.
	TaskState TaskStateConfig `yaml:"taskstate"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Client *ClientConfig `yaml:"client,omitempty"`
	Runner *RunnerConfig `yaml:"runner,omitempty"`
}

// InventoryConfig names the inventory files. Empty paths fall back to
// the ACM_LAB_MACHINE_INFO and ACM_LAB_MACHINE_CREDS variables.
type InventoryConfig struct {
	MachinesFile    string `yaml:"machines_file"`
	CredentialsFile string `yaml:"credentials_file"`
	// IdentityFile holds the age keys for an encrypted credentials file.
	IdentityFile string `yaml:"identity_file"`
}

// ClientConfig configures Redfish sessions.
type ClientConfig struct {
	// VerifyTLS checks BMC certificates. Default: false (BMCs ship
	// self-signed certificates).
	VerifyTLS *bool `yaml:"verify_tls,omitempty"`

	// RequestTimeout bounds each HTTP request. Default: 60s
	RequestTimeout Duration `yaml:"request_timeout"`

	// RetryDelay is the wait before retrying a "not ready" failure.
	// Default: 5s
	RetryDelay Duration `yaml:"retry_delay"`

	// RetryableMessageIDs are the message keys that trigger a retry.
	RetryableMessageIDs []string `yaml:"retryable_message_ids"`

	// ProtectedAccount is never deleted. Default: root
	ProtectedAccount string `yaml:"protected_account"`

	// AccountScan is "first-empty" or "full". Default: first-empty
	AccountScan string `yaml:"account_scan"`
}

// RunnerConfig configures fleet runs.
type RunnerConfig struct {
	// Mode is "parallel", "wave", or "serial". Default: wave
	Mode string `yaml:"mode"`

	// PausePeriod is the settle time after state-changing phases.
	// Default: 15s
	PausePeriod Duration `yaml:"pause_period"`

	// PollInterval is the wait between job polls. Default: 15s
	PollInterval Duration `yaml:"poll_interval"`

	// PollTimeout abandons jobs that have not ended. 0 means no limit.
	// Default: 2h
	PollTimeout *Duration `yaml:"poll_timeout,omitempty"`

	// MachineTimeout bounds one machine's whole run. 0 means no limit.
	MachineTimeout Duration `yaml:"machine_timeout"`
}

// TaskStateConfig configures job-state normalization.
type TaskStateConfig struct {
	// SuccessMessageIDs are Dell message keys that mark a failed job
	// as completed.
	SuccessMessageIDs []string `yaml:"success_message_ids"`
}

// Default returns the default configuration.
func Default() *Config {
	pollTimeout := Duration(fleet.DefaultPollTimeout)
	return &Config{
		Environment: Development,
		Client: ClientConfig{
			RequestTimeout:      Duration(netutil.DefaultRequestTimeout),
			RetryDelay:          Duration(redfish.DefaultRetryDelay),
			RetryableMessageIDs: append([]string(nil), redfish.DefaultRetryableMessageIDs...),
			ProtectedAccount:    redfish.DefaultProtectedAccount,
			AccountScan:         string(redfish.ScanFirstEmpty),
		},
		Runner: RunnerConfig{
			Mode:         string(fleet.Wave),
			PausePeriod:  Duration(fleet.DefaultPausePeriod),
			PollInterval: Duration(fleet.DefaultPollInterval),
			PollTimeout:  &pollTimeout,
		},
		TaskState: TaskStateConfig{
			SuccessMessageIDs: append([]string(nil), taskstate.DefaultSuccessMessageIDs...),
		},
	}
}

// Load loads configuration from the file named by BMCFLEET_CONFIG.
// There is no fallback; if the variable is not set, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your bmcfleet.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production defaults: one machine at a time unless the file
		// says otherwise.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Runner: &RunnerConfig{Mode: string(fleet.Serial)},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Client != nil {
		if overrides.Client.VerifyTLS != nil {
			c.Client.VerifyTLS = overrides.Client.VerifyTLS
		}
		if overrides.Client.RequestTimeout != 0 {
			c.Client.RequestTimeout = overrides.Client.RequestTimeout
		}
		if overrides.Client.RetryDelay != 0 {
			c.Client.RetryDelay = overrides.Client.RetryDelay
		}
		if overrides.Client.RetryableMessageIDs != nil {
			c.Client.RetryableMessageIDs = overrides.Client.RetryableMessageIDs
		}
		if overrides.Client.ProtectedAccount != "" {
			c.Client.ProtectedAccount = overrides.Client.ProtectedAccount
		}
		if overrides.Client.AccountScan != "" {
			c.Client.AccountScan = overrides.Client.AccountScan
		}
	}

	if overrides.Runner != nil {
		if overrides.Runner.Mode != "" {
			c.Runner.Mode = overrides.Runner.Mode
		}
		if overrides.Runner.PausePeriod != 0 {
			c.Runner.PausePeriod = overrides.Runner.PausePeriod
		}
		if overrides.Runner.PollInterval != 0 {
			c.Runner.PollInterval = overrides.Runner.PollInterval
		}
		if overrides.Runner.PollTimeout != nil {
			c.Runner.PollTimeout = overrides.Runner.PollTimeout
		}
		if overrides.Runner.MachineTimeout != 0 {
			c.Runner.MachineTimeout = overrides.Runner.MachineTimeout
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// inventory paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Inventory.MachinesFile = expandVars(c.Inventory.MachinesFile, vars)
	c.Inventory.CredentialsFile = expandVars(c.Inventory.CredentialsFile, vars)
	c.Inventory.IdentityFile = expandVars(c.Inventory.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Client.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("client.request_timeout must not be negative"))
	}
	if c.Client.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("client.retry_delay must not be negative"))
	}
	if _, err := redfish.ParseAccountScan(c.Client.AccountScan); err != nil {
		errs = append(errs, fmt.Errorf("client.account_scan: %w", err))
	}
	if _, err := fleet.ParseMode(c.Runner.Mode); err != nil {
		errs = append(errs, fmt.Errorf("runner.mode: %w", err))
	}
	if c.Runner.PausePeriod < 0 {
		errs = append(errs, fmt.Errorf("runner.pause_period must not be negative"))
	}
	if c.Runner.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("runner.poll_interval must be positive"))
	}
	if c.Runner.PollTimeout != nil && *c.Runner.PollTimeout < 0 {
		errs = append(errs, fmt.Errorf("runner.poll_timeout must not be negative"))
	}
	if c.Runner.MachineTimeout < 0 {
		errs = append(errs, fmt.Errorf("runner.machine_timeout must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RedfishConfig returns the client settings. Endpoint and Login are
// left for the caller.
func (c *Config) RedfishConfig() redfish.Config {
	verify := c.Client.VerifyTLS != nil && *c.Client.VerifyTLS
	scan, _ := redfish.ParseAccountScan(c.Client.AccountScan)
	return redfish.Config{
		HTTPClient:          netutil.NewHTTPClient(verify, time.Duration(c.Client.RequestTimeout)),
		RetryDelay:          time.Duration(c.Client.RetryDelay),
		RetryableMessageIDs: c.Client.RetryableMessageIDs,
		ProtectedAccount:    c.Client.ProtectedAccount,
		AccountScan:         scan,
	}
}

// Normalizer returns the task-state normalizer the config describes.
func (c *Config) Normalizer() *taskstate.Normalizer {
	return taskstate.New(taskstate.Config{SuccessMessageIDs: c.TaskState.SuccessMessageIDs})
}

// ApplyRunner copies the runner settings into config. A zero
// poll_timeout becomes an unlimited poll.
func (c *Config) ApplyRunner(config *fleet.Config) error {
	mode, err := fleet.ParseMode(c.Runner.Mode)
	if err != nil {
		return err
	}
	config.Mode = mode
	config.PausePeriod = time.Duration(c.Runner.PausePeriod)
	config.PollInterval = time.Duration(c.Runner.PollInterval)
	config.MachineTimeout = time.Duration(c.Runner.MachineTimeout)
	switch {
	case c.Runner.PollTimeout == nil:
		config.PollTimeout = fleet.DefaultPollTimeout
	case *c.Runner.PollTimeout == 0:
		config.PollTimeout = -1
	default:
		config.PollTimeout = time.Duration(*c.Runner.PollTimeout)
	}
	if config.Normalizer == nil {
		config.Normalizer = c.Normalizer()
	}
	return nil
}

// InventoryOptions returns the inventory file paths, falling back to
// the inventory environment variables for unset paths. Identities
// are not loaded.
func (c *Config) InventoryOptions() (inventory.Options, error) {
	options := inventory.Options{
		MachinesFile:    c.Inventory.MachinesFile,
		CredentialsFile: c.Inventory.CredentialsFile,
	}
	if options.MachinesFile == "" {
		options.MachinesFile = os.Getenv(inventory.MachinesEnv)
	}
	if options.CredentialsFile == "" {
		options.CredentialsFile = os.Getenv(inventory.CredentialsEnv)
	}
	if options.MachinesFile == "" {
		return inventory.Options{}, fmt.Errorf("no machines file: set inventory.machines_file or %s", inventory.MachinesEnv)
	}
	if options.CredentialsFile == "" {
		return inventory.Options{}, fmt.Errorf("no credentials file: set inventory.credentials_file or %s", inventory.CredentialsEnv)
	}
	return options, nil
}
