// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli"
	"github.com/acmlab/bmcfleet/cmd/bmcfleet/cli/clitest"
	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
)

func fakeMachine(t *testing.T, config redfishtest.Config) *redfishtest.Server {
	t.Helper()
	server := redfishtest.NewServer(t, config)
	clitest.Inventory(t, map[string]*redfishtest.Server{"r650-07": server})
	return server
}

func secret(t *testing.T, value string) *credential.Secret {
	t.Helper()
	s, err := credential.NewSecretFromString(value)
	if err != nil {
		t.Fatalf("NewSecretFromString: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func requireCategory(t *testing.T, err error, category cli.ErrorCategory) {
	t.Helper()
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != category {
		t.Fatalf("error = %v, want category %s", err, category)
	}
}

func TestRunList(t *testing.T) {
	fakeMachine(t, redfishtest.Config{Accounts: map[int]string{2: "root", 3: "ci-runner"}})

	var buf bytes.Buffer
	if err := runList(context.Background(), &listParams{}, "r650-07", clitest.Logger(), &buf); err != nil {
		t.Fatalf("runList: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "SLOT") || !strings.Contains(lines[2], "ci-runner") {
		t.Errorf("output:\n%s", buf.String())
	}

	buf.Reset()
	params := &listParams{JSONOutput: cli.JSONOutput{OutputJSON: true}}
	if err := runList(context.Background(), params, "r650-07", clitest.Logger(), &buf); err != nil {
		t.Fatalf("runList --json: %v", err)
	}
	var views []accountView
	if err := json.Unmarshal(buf.Bytes(), &views); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(views) != 2 || views[1].Slot != 3 || views[1].Role != "Administrator" {
		t.Errorf("views = %+v", views)
	}
}

func TestRunGet(t *testing.T) {
	fakeMachine(t, redfishtest.Config{})

	var buf bytes.Buffer
	if err := runGet(context.Background(), &getParams{}, "r650-07", "root", clitest.Logger(), &buf); err != nil {
		t.Fatalf("runGet: %v", err)
	}
	if !strings.Contains(buf.String(), "slot:    2") {
		t.Errorf("output = %q", buf.String())
	}

	err := runGet(context.Background(), &getParams{}, "r650-07", "nobody", clitest.Logger(), &buf)
	requireCategory(t, err, cli.CategoryNotFound)
}

func TestRunCreate(t *testing.T) {
	server := fakeMachine(t, redfishtest.Config{})

	var buf bytes.Buffer
	err := runCreate(context.Background(), &cli.Session{}, "r650-07", "ci-runner", secret(t, "s3cret"), redfish.RoleOperator, clitest.Logger(), &buf)
	if err != nil {
		t.Fatalf("runCreate: %v", err)
	}
	if buf.String() != "r650-07: created ci-runner in slot 3 with role Operator\n" {
		t.Errorf("output = %q", buf.String())
	}
	slot := server.Account(3)
	if slot["UserName"] != "ci-runner" || slot["RoleId"] != "Operator" || slot["Enabled"] != true {
		t.Errorf("slot 3 = %v", slot)
	}

	err = runCreate(context.Background(), &cli.Session{}, "r650-07", "ci-runner", secret(t, "again"), redfish.RoleOperator, clitest.Logger(), &buf)
	requireCategory(t, err, cli.CategoryConflict)
}

func TestRunCreate_DefaultEntry(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{})
	clitest.Inventory(t, map[string]*redfishtest.Server{"default": server})

	var buf bytes.Buffer
	err := runCreate(context.Background(), &cli.Session{}, "r660-99", "ci-runner", secret(t, "s3cret"), redfish.RoleReadOnly, clitest.Logger(), &buf)
	if err != nil {
		t.Fatalf("machine missing from the inventory should use the default entry: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "r660-99: created") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunDelete(t *testing.T) {
	server := fakeMachine(t, redfishtest.Config{Accounts: map[int]string{2: "root", 4: "old-ci"}})

	var buf bytes.Buffer
	if err := runDelete(context.Background(), &cli.Session{}, "r650-07", "old-ci", clitest.Logger(), &buf); err != nil {
		t.Fatalf("runDelete: %v", err)
	}
	if slot := server.Account(4); slot["UserName"] != "" || slot["Enabled"] != false {
		t.Errorf("slot 4 after delete = %v", slot)
	}

	err := runDelete(context.Background(), &cli.Session{}, "r650-07", "root", clitest.Logger(), &buf)
	requireCategory(t, err, cli.CategoryConflict)
	if !errors.Is(err, redfish.ErrForbidden) {
		t.Errorf("protected account: %v", err)
	}
}

func TestRunPasswd(t *testing.T) {
	server := fakeMachine(t, redfishtest.Config{Accounts: map[int]string{2: "root", 3: "ci-runner"}})

	var buf bytes.Buffer
	if err := runPasswd(context.Background(), &cli.Session{}, "r650-07", "ci-runner", secret(t, "rotated"), clitest.Logger(), &buf); err != nil {
		t.Fatalf("runPasswd: %v", err)
	}
	var patched bool
	for _, request := range server.Requests() {
		if request.Method == "PATCH" && request.Path == redfishtest.AccountsPath+"/3" && request.Body["Password"] == "rotated" {
			patched = true
		}
	}
	if !patched {
		t.Error("password PATCH not sent to slot 3")
	}
}

func TestCreateCommand_Validation(t *testing.T) {
	command := createCommand()
	err := command.Execute(context.Background(), []string{"--role", "superuser", "r650-07", "ci-runner", "pw"})
	requireCategory(t, err, cli.CategoryValidation)

	err = command.Execute(context.Background(), []string{"--role", "operator", "r650-07"})
	requireCategory(t, err, cli.CategoryValidation)
}
