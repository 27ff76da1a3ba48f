// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package idrac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acmlab/bmcfleet/lib/fleet"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// Dialer returns a fleet dialer that opens iDRAC sessions. Machines
// whose BMC is not an iDRAC fail to connect and are excluded.
func Dialer(base redfish.Config) fleet.DialFunc {
	return func(ctx context.Context, target fleet.Target) (redfish.Controller, error) {
		config := base
		config.Endpoint = target.Endpoint
		config.Login = target.Login()
		logger := base.Logger
		if logger == nil {
			logger = slog.Default()
		}
		config.Logger = logger.With("machine", target.Name)

		client, err := Connect(ctx, config)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// FromController returns controller as an iDRAC client, or an error
// wrapping ErrNotIDRAC when it was not opened by Connect.
func FromController(controller redfish.Controller) (*Client, error) {
	client, ok := controller.(*Client)
	if !ok {
		return nil, fmt.Errorf("%w: %s was not opened as an iDRAC", ErrNotIDRAC, controller.Endpoint())
	}
	return client, nil
}
