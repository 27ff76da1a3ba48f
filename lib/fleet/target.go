// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// Target is one machine to run against. The caller owns Password and
// closes it after the run.
type Target struct {
	// Name identifies the machine in logs and results.
	Name string
	// Endpoint is the BMC base URL, e.g. "https://10.1.2.3".
	Endpoint string
	Username string
	Password *credential.Secret
}

// Login returns the target's credential. The password is shared with
// the Target, not copied.
func (t Target) Login() credential.Credential {
	return credential.Credential{Username: t.Username, Password: t.Password}
}

// Dialer opens a controller for a target.
type Dialer interface {
	Dial(ctx context.Context, target Target) (redfish.Controller, error)
}

// DialFunc adapts a function to a Dialer.
type DialFunc func(ctx context.Context, target Target) (redfish.Controller, error)

func (f DialFunc) Dial(ctx context.Context, target Target) (redfish.Controller, error) {
	return f(ctx, target)
}

// RedfishDialer connects generic Redfish clients. base supplies
// everything but the endpoint and login; its Logger is scoped with the
// machine name.
func RedfishDialer(base redfish.Config) DialFunc {
	return func(ctx context.Context, target Target) (redfish.Controller, error) {
		config := base
		config.Endpoint = target.Endpoint
		config.Login = target.Login()
		logger := base.Logger
		if logger == nil {
			logger = slog.Default()
		}
		config.Logger = logger.With("machine", target.Name)

		client, err := redfish.Connect(ctx, config)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func checkTargets(targets []Target) error {
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if target.Name == "" {
			return fmt.Errorf("fleet: target with endpoint %q has no name", target.Endpoint)
		}
		if seen[target.Name] {
			return fmt.Errorf("fleet: machine %q listed twice", target.Name)
		}
		seen[target.Name] = true
	}
	return nil
}
