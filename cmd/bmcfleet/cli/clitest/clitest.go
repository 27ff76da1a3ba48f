// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package clitest sets up inventories of fake BMCs for command tests.
package clitest

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/acmlab/bmcfleet/lib/inventory"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
	"github.com/acmlab/bmcfleet/lib/testutil"
)

// Credentials is the credentials file Inventory writes. Every standard
// user logs in as the fake BMC's default account.
const Credentials = `global:
  bmc:
    username: root
    password: calvin
  bmc-admin:
    username: root
    password: calvin
  bmc-default:
    username: root
    password: calvin
`

// Inventory writes a machines file with one entry per server, plus
// Credentials, and points the inventory environment variables at them.
// BMCFLEET_CONFIG is cleared so commands use the default config.
func Inventory(t *testing.T, servers map[string]*redfishtest.Server) {
	t.Helper()

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var machines strings.Builder
	machines.WriteString("machines:\n")
	for _, name := range names {
		server := servers[name]
		fmt.Fprintf(&machines, "  - name: %s\n    bmc:\n      address: %s\n      redfish: %s\n",
			name, server.Listener.Addr(), server.URL)
	}

	t.Setenv("BMCFLEET_CONFIG", "")
	t.Setenv(inventory.MachinesEnv, testutil.WriteFile(t, "machines.yaml", machines.String()))
	t.Setenv(inventory.CredentialsEnv, testutil.WriteFile(t, "creds.yaml", Credentials))
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
