// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/report"
)

// RunParams are the orchestration flags shared by every job command.
// Zero values leave the configured runner settings alone.
type RunParams struct {
	cli.Session
	Mode           string        `json:"-" flag:"mode" desc:"scheduling mode: parallel, wave, or serial (default from config)"`
	Report         string        `json:"-" flag:"report" desc:"also write the run report to this file (.json, .cbor, or text)"`
	PausePeriod    time.Duration `json:"-" flag:"pause" desc:"settle wait after power changes and submission"`
	PollInterval   time.Duration `json:"-" flag:"poll-interval" desc:"wait between job polls"`
	PollTimeout    time.Duration `json:"-" flag:"poll-timeout" desc:"abandon a job still running after this long"`
	MachineTimeout time.Duration `json:"-" flag:"machine-timeout" desc:"bound each machine's whole run"`
}

// runner builds the fleet runner for operation from the configuration
// and the flag overrides.
func (p *RunParams) runner(environment *cli.Environment, factory fleet.Factory, dell bool, logger *slog.Logger) (*fleet.Runner, error) {
	config := fleet.Config{
		Factory: factory,
		Dialer:  environment.Dialer(dell),
		Logger:  logger,
	}
	if err := environment.Config.ApplyRunner(&config); err != nil {
		return nil, cli.Validation("%w", err)
	}
	if p.Mode != "" {
		mode, err := fleet.ParseMode(p.Mode)
		if err != nil {
			return nil, cli.Validation("--mode: %w", err)
		}
		config.Mode = mode
	}
	if p.PausePeriod > 0 {
		config.PausePeriod = p.PausePeriod
	}
	if p.PollInterval > 0 {
		config.PollInterval = p.PollInterval
	}
	if p.PollTimeout > 0 {
		config.PollTimeout = p.PollTimeout
	}
	if p.MachineTimeout > 0 {
		config.MachineTimeout = p.MachineTimeout
	}
	runner, err := fleet.New(config)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return runner, nil
}

// run executes operation on the named machines and reports the result
// to w and, with --report, to a file.
func (p *RunParams) run(ctx context.Context, operation string, factory fleet.Factory, dell bool, names []string, logger *slog.Logger, w io.Writer) error {
	environment, err := p.Open(names, cli.LoginDefaults{}, logger)
	if err != nil {
		return err
	}
	defer environment.Close()

	runner, err := p.runner(environment, factory, dell, logger)
	if err != nil {
		return err
	}
	summary, runErr := runner.Run(ctx, environment.Targets)
	if summary == nil {
		return cli.Validation("%w", runErr)
	}

	result := report.FromSummary(operation, summary)
	if err := result.WriteText(w); err != nil {
		return err
	}
	if p.Report != "" {
		if err := result.WriteFile(p.Report); err != nil {
			return cli.Internal("writing report: %w", err)
		}
		logger.Info("run report written", "path", p.Report, "run", result.RunID)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return &cli.ExitError{Code: 130}
		}
		return runErr
	}
	if !result.OK() {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
