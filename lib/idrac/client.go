// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package idrac

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/acmlab/bmcfleet/lib/redfish"
)

// Vendor is the service root Vendor value of every iDRAC.
const Vendor = "Dell"

// ImportConfigurationAction is the manager OEM action that applies a
// Server Configuration Profile.
const ImportConfigurationAction = "#OemManager.ImportSystemConfiguration"

// ErrNotIDRAC is returned by Connect when the BMC is not a Dell iDRAC.
var ErrNotIDRAC = errors.New("idrac: BMC is not a Dell iDRAC")

// Client is a session on one iDRAC.
type Client struct {
	*redfish.Client
}

var _ redfish.Controller = (*Client)(nil)

// Connect opens a session on an iDRAC. An endpoint without a scheme
// gets "https://"; any other scheme is rejected. Failures are
// *redfish.ConnectionError.
func Connect(ctx context.Context, config redfish.Config) (*Client, error) {
	endpoint, err := httpsEndpoint(config.Endpoint)
	if err != nil {
		return nil, &redfish.ConnectionError{Endpoint: config.Endpoint, Step: "configuration", Err: err}
	}
	config.Endpoint = endpoint

	client, err := redfish.Connect(ctx, config)
	if err != nil {
		return nil, err
	}

	vendor, err := client.Vendor(ctx)
	if err == nil && vendor != Vendor {
		err = fmt.Errorf("%w: service root reports vendor %q", ErrNotIDRAC, vendor)
	}
	if err != nil {
		client.Close(ctx)
		return nil, &redfish.ConnectionError{Endpoint: endpoint, Step: "vendor check", Err: err}
	}
	return &Client{Client: client}, nil
}

func httpsEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "https" {
		return "", fmt.Errorf("iDRAC endpoints must use https, got %q", parsed.Scheme)
	}
	return endpoint, nil
}

// ManagerID returns the iDRAC's FQDD, e.g. "iDRAC.Embedded.1".
func (c *Client) ManagerID(ctx context.Context) (string, error) {
	manager, err := c.SystemManager(ctx)
	if err != nil {
		return "", err
	}
	id := manager.String("Id")
	if id == "" {
		return "", fmt.Errorf("idrac: manager %s has no Id: %w", manager.ID(), redfish.ErrUnrecognized)
	}
	return id, nil
}

// ImportConfigurationTarget returns the target of the Server
// Configuration Profile import action on the system's manager.
func (c *Client) ImportConfigurationTarget(ctx context.Context) (string, error) {
	manager, err := c.SystemManager(ctx)
	if err != nil {
		return "", err
	}
	action, err := redfish.FindAction(manager, ImportConfigurationAction)
	if err != nil {
		return "", err
	}
	return action.Target, nil
}

// ImportShutdownTypes returns the advertised ShutdownType values of the
// import action; nil when no allow-list is advertised.
func (c *Client) ImportShutdownTypes(ctx context.Context) ([]string, error) {
	manager, err := c.SystemManager(ctx)
	if err != nil {
		return nil, err
	}
	action, err := redfish.FindAction(manager, ImportConfigurationAction)
	if err != nil {
		return nil, err
	}
	return action.Allowed["ShutdownType"], nil
}
