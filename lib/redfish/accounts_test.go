// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/redfish"
	"github.com/acmlab/bmcfleet/lib/redfish/redfishtest"
)

func secret(t *testing.T, value string) *credential.Secret {
	t.Helper()
	s, err := credential.NewSecretFromString(value)
	if err != nil {
		t.Fatalf("NewSecretFromString: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAccount_FirstEmptySlot(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{
		Accounts: map[int]string{2: "root", 3: "alice", 4: "bob"},
	})
	client, _ := connect(t, server)

	account, err := client.CreateAccount(context.Background(), "carol", secret(t, "hunter2"), redfish.RoleOperator)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if account.Slot != 5 {
		t.Fatalf("slot: got %d, want 5", account.Slot)
	}

	slot := server.Account(5)
	if slot["UserName"] != "carol" || slot["RoleId"] != "Operator" || slot["Enabled"] != true {
		t.Errorf("slot 5 after create: %v", slot)
	}
	if slot["PasswordSet"] != true {
		t.Error("password was not sent")
	}
	if server.CountMethod(http.MethodPatch) != 1 {
		t.Errorf("PATCH count: got %d, want 1", server.CountMethod(http.MethodPatch))
	}
	// The scan stops at the first empty slot.
	if count := server.Count(http.MethodGet, redfishtest.AccountsPath+"/6"); count != 0 {
		t.Errorf("slot 6 was read %d times past the first empty slot", count)
	}
}

func TestCreateAccount_AlreadyExists(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{
		Accounts: map[int]string{2: "root", 3: "alice", 4: "bob"},
	})
	client, _ := connect(t, server)

	_, err := client.CreateAccount(context.Background(), "alice", secret(t, "hunter2"), redfish.RoleOperator)
	if !errors.Is(err, redfish.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if patches := server.CountMethod(http.MethodPatch); patches != 0 {
		t.Fatalf("failed create mutated %d slots", patches)
	}
}

func TestCreateAccount_NoCapacity(t *testing.T) {
	accounts := make(map[int]string)
	for slot := 2; slot <= redfishtest.Slots; slot++ {
		accounts[slot] = "user" + string(rune('a'+slot))
	}
	server := redfishtest.NewServer(t, redfishtest.Config{Accounts: accounts})
	client, _ := connect(t, server)

	_, err := client.CreateAccount(context.Background(), "carol", secret(t, "hunter2"), redfish.RoleReadOnly)
	if !errors.Is(err, redfish.ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}
	if server.CountMethod(http.MethodPatch) != 0 {
		t.Fatal("failed create mutated a slot")
	}
}

func TestCreateAccount_ReservedSlotSkipped(t *testing.T) {
	// Slot 1 is empty but reserved; slot 2 is the first usable one.
	server := redfishtest.NewServer(t, redfishtest.Config{Accounts: map[int]string{}})
	client, _ := connect(t, server)

	account, err := client.CreateAccount(context.Background(), "carol", secret(t, "pw"), redfish.RoleAdministrator)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if account.Slot != 2 {
		t.Fatalf("slot: got %d, want 2", account.Slot)
	}
}

func TestCreateAccount_ScanModes(t *testing.T) {
	// "alice" sits after a gap. The first-empty heuristic cannot see
	// her; the full scan can.
	accounts := map[int]string{2: "root", 3: "bob", 6: "alice"}

	t.Run("first-empty", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{Accounts: accounts})
		client, _ := connect(t, server)
		account, err := client.CreateAccount(context.Background(), "alice", secret(t, "pw"), redfish.RoleOperator)
		if err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
		if account.Slot != 4 {
			t.Errorf("slot: got %d, want 4", account.Slot)
		}
	})

	t.Run("full", func(t *testing.T) {
		server := redfishtest.NewServer(t, redfishtest.Config{Accounts: accounts})
		client, _ := connect(t, server, func(config *redfish.Config) {
			config.AccountScan = redfish.ScanFull
		})
		_, err := client.CreateAccount(context.Background(), "alice", secret(t, "pw"), redfish.RoleOperator)
		if !errors.Is(err, redfish.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if server.CountMethod(http.MethodPatch) != 0 {
			t.Fatal("full scan mutated a slot")
		}
	})
}

func TestListAndGetAccount(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{
		Accounts: map[int]string{2: "root", 3: "alice"},
	})
	client, _ := connect(t, server)
	ctx := context.Background()

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0].UserName != "root" || accounts[1].UserName != "alice" {
		t.Fatalf("ListAccounts: got %+v", accounts)
	}
	if accounts[1].Slot != 3 || accounts[1].RoleID != redfish.RoleAdministrator || !accounts[1].Enabled {
		t.Errorf("alice: got %+v", accounts[1])
	}

	account, err := client.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if account.Path != redfishtest.AccountsPath+"/3" {
		t.Errorf("Path: got %q", account.Path)
	}
	if _, err := client.GetAccount(ctx, "nobody"); !errors.Is(err, redfish.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{
		Accounts: map[int]string{2: "root", 3: "alice"},
	})
	client, _ := connect(t, server)
	ctx := context.Background()

	if err := client.DeleteAccount(ctx, "root"); !errors.Is(err, redfish.ErrForbidden) {
		t.Fatalf("deleting root: expected ErrForbidden, got %v", err)
	}
	if err := client.DeleteAccount(ctx, "nobody"); !errors.Is(err, redfish.ErrNotFound) {
		t.Fatalf("deleting missing account: expected ErrNotFound, got %v", err)
	}

	if err := client.DeleteAccount(ctx, "alice"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	var patches []map[string]any
	for _, request := range server.Requests() {
		if request.Method == http.MethodPatch {
			patches = append(patches, request.Body)
		}
	}
	if len(patches) != 2 {
		t.Fatalf("got %d PATCHes, want 2", len(patches))
	}
	if patches[0]["Enabled"] != false || patches[0]["RoleId"] != "None" {
		t.Errorf("first PATCH: %v", patches[0])
	}
	if _, hasName := patches[0]["UserName"]; hasName {
		t.Errorf("first PATCH cleared the name: %v", patches[0])
	}
	if name, ok := patches[1]["UserName"]; !ok || name != "" || len(patches[1]) != 1 {
		t.Errorf("second PATCH: %v", patches[1])
	}

	// The slot is reusable and the cache does not resurrect alice.
	if _, err := client.GetAccount(ctx, "alice"); !errors.Is(err, redfish.ErrNotFound) {
		t.Errorf("alice still visible after delete: %v", err)
	}
}

func TestDeleteAccount_ProtectedAccountConfigurable(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{
		Accounts: map[int]string{2: "root", 3: "admin"},
	})
	client, _ := connect(t, server, func(config *redfish.Config) {
		config.ProtectedAccount = "admin"
	})
	if err := client.DeleteAccount(context.Background(), "admin"); !errors.Is(err, redfish.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := client.DeleteAccount(context.Background(), "root"); err != nil {
		t.Fatalf("deleting root with a different protected account: %v", err)
	}
}

func TestSetPassword(t *testing.T) {
	server := redfishtest.NewServer(t, redfishtest.Config{
		Accounts: map[int]string{2: "root", 3: "alice"},
	})
	client, _ := connect(t, server)

	if err := client.SetPassword(context.Background(), "alice", secret(t, "new-password")); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	requests := server.Requests()
	last := requests[len(requests)-1]
	if last.Method != http.MethodPatch || last.Path != redfishtest.AccountsPath+"/3" {
		t.Fatalf("last request: %s %s", last.Method, last.Path)
	}
	if last.Body["Password"] != "new-password" || len(last.Body) != 1 {
		t.Errorf("PATCH body: %v", last.Body)
	}
	if err := client.SetPassword(context.Background(), "nobody", secret(t, "x")); !errors.Is(err, redfish.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  redfish.Role
	}{
		{"administrator", redfish.RoleAdministrator},
		{"Operator", redfish.RoleOperator},
		{"readonly", redfish.RoleReadOnly},
		{"none", redfish.RoleNone},
	}
	for _, test := range tests {
		got, err := redfish.ParseRole(test.input)
		if err != nil || got != test.want {
			t.Errorf("ParseRole(%q): got %q, %v", test.input, got, err)
		}
	}
	if _, err := redfish.ParseRole("superuser"); err == nil {
		t.Error("ParseRole accepted an unknown role")
	}
}

func TestParseAccountScan(t *testing.T) {
	for input, want := range map[string]redfish.AccountScan{
		"":            redfish.ScanFirstEmpty,
		"first-empty": redfish.ScanFirstEmpty,
		"full":        redfish.ScanFull,
	} {
		got, err := redfish.ParseAccountScan(input)
		if err != nil || got != want {
			t.Errorf("ParseAccountScan(%q): got %q, %v", input, got, err)
		}
	}
	if _, err := redfish.ParseAccountScan("random"); err == nil {
		t.Error("ParseAccountScan accepted an unknown mode")
	}
}
