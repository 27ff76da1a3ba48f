// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"context"
	"log/slog"

	"github.com/acmlab/bmcfleet/lib/credential"
)

// Controller is the operation set the fleet orchestrator and its tasks
// use to drive one BMC. *Client implements it for standard Redfish
// services; vendor families wrap a Client to add their extensions.
type Controller interface {
	// Endpoint returns the BMC base URL.
	Endpoint() string
	// Logger returns the logger scoped to this controller.
	Logger() *slog.Logger

	ServiceRoot(ctx context.Context) (Resource, error)
	Vendor(ctx context.Context) (string, error)
	System(ctx context.Context) (Resource, error)
	SystemManager(ctx context.Context) (Resource, error)

	Get(ctx context.Context, id string) (Resource, error)
	GetUncached(ctx context.Context, id string) (Resource, error)
	Update(ctx context.Context, id string, partial any) error
	Delete(ctx context.Context, id string) error
	StartTask(ctx context.Context, target string, body any) (string, error)
	GetTask(ctx context.Context, id string) (Resource, error)
	PerformAction(ctx context.Context, target string, body any) (Resource, error)

	ListMemberIDs(ctx context.Context, collection string) ([]string, error)
	ListMembers(ctx context.Context, collection string) ([]Resource, error)
	FindMemberByName(ctx context.Context, collection string, names ...string) (Resource, error)

	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, name string) (Account, error)
	CreateAccount(ctx context.Context, name string, password *credential.Secret, role Role) (Account, error)
	DeleteAccount(ctx context.Context, name string) error
	SetPassword(ctx context.Context, name string, password *credential.Secret) error

	PowerState(ctx context.Context) (string, error)
	PowerOn(ctx context.Context) (PowerResult, error)
	PowerOff(ctx context.Context) (PowerResult, error)
	Reboot(ctx context.Context, force bool) (PowerResult, error)
	Shutdown(ctx context.Context) (PowerResult, error)

	// Close ends the session. Best-effort: failures are logged.
	Close(ctx context.Context)
}

var _ Controller = (*Client)(nil)
