// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/acmlab/bmcfleet/lib/credential"
)

// Role is a Redfish account RoleId.
type Role string

// Standard Redfish roles.
const (
	RoleAdministrator Role = "Administrator"
	RoleOperator      Role = "Operator"
	RoleReadOnly      Role = "ReadOnly"
	RoleNone          Role = "None"
)

// ParseRole accepts a role name case-insensitively ("administrator",
// "operator", "readonly", "none") and returns the Redfish RoleId.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "administrator", "admin":
		return RoleAdministrator, nil
	case "operator":
		return RoleOperator, nil
	case "readonly", "read-only":
		return RoleReadOnly, nil
	case "none":
		return RoleNone, nil
	default:
		return "", fmt.Errorf("redfish: unknown role %q (expected administrator, operator, readonly, or none)", name)
	}
}

// AccountScan selects how CreateAccount searches the slot table.
type AccountScan string

const (
	// ScanFirstEmpty stops at the first empty slot. BMCs observed so
	// far fill slots contiguously from the front, so a name can only
	// appear before the first gap. This is the default.
	ScanFirstEmpty AccountScan = "first-empty"
	// ScanFull reads every slot, so a name that appears after a gap
	// is still detected.
	ScanFull AccountScan = "full"
)

// ParseAccountScan validates a scan mode name. "" means ScanFirstEmpty.
func ParseAccountScan(name string) (AccountScan, error) {
	switch AccountScan(name) {
	case "", ScanFirstEmpty:
		return ScanFirstEmpty, nil
	case ScanFull:
		return ScanFull, nil
	default:
		return "", fmt.Errorf("redfish: unknown account scan mode %q (expected %s or %s)", name, ScanFirstEmpty, ScanFull)
	}
}

// Account is one populated slot of the BMC's account table.
type Account struct {
	// Slot is the numeric slot id (the account resource's Id).
	Slot int
	// Path is the account resource's @odata.id.
	Path     string
	UserName string
	RoleID   Role
	Enabled  bool
	Locked   bool
}

func accountFromResource(id string, resource Resource) Account {
	account := Account{
		Slot:     slotOf(id, resource),
		Path:     id,
		UserName: resource.String("UserName"),
		RoleID:   Role(resource.String("RoleId")),
	}
	account.Enabled, _ = resource["Enabled"].(bool)
	account.Locked, _ = resource["Locked"].(bool)
	return account
}

// slotOf returns the account's numeric Id, falling back to the last
// path segment. Returns 0 when neither is numeric.
func slotOf(id string, resource Resource) int {
	if slot, ok := resource.Int("Id"); ok {
		return slot
	}
	slot, err := strconv.Atoi(path.Base(id))
	if err != nil {
		return 0
	}
	return slot
}

// reservedSlot reports whether slot is unusable for new accounts. Slot
// 1 (and anything numbered below it) is reserved by the BMC.
func reservedSlot(slot int) bool {
	return slot <= 1
}

// accountsPath returns the account collection path from the
// AccountService resource.
func (c *Client) accountsPath(ctx context.Context) (string, error) {
	servicePath := c.serviceLink("AccountService")
	service, err := c.Get(ctx, servicePath)
	if err != nil {
		return "", err
	}
	if link := service.Link("Accounts"); link != "" {
		return link, nil
	}
	return servicePath + "/Accounts", nil
}

// slotScan is the result of walking the account table.
type slotScan struct {
	// found is the slot holding the wanted name, if seen.
	found *Account
	// empty is the first usable empty slot, if seen.
	empty *Account
	// accounts lists every populated slot visited.
	accounts []Account
}

// scanSlots walks the account table in member order. With stopAtEmpty
// the walk ends at the first usable empty slot or at the wanted name,
// whichever comes first.
func (c *Client) scanSlots(ctx context.Context, want string, stopAtEmpty bool) (*slotScan, error) {
	collection, err := c.accountsPath(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := c.ListMemberIDs(ctx, collection)
	if err != nil {
		return nil, err
	}

	scan := &slotScan{}
	for _, id := range ids {
		resource, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		account := accountFromResource(id, resource)

		if account.UserName != "" {
			scan.accounts = append(scan.accounts, account)
			if want != "" && account.UserName == want && scan.found == nil {
				scan.found = &account
				if stopAtEmpty {
					return scan, nil
				}
			}
			continue
		}

		if !reservedSlot(account.Slot) && scan.empty == nil {
			scan.empty = &account
			if stopAtEmpty {
				return scan, nil
			}
		}
	}
	return scan, nil
}

// ListAccounts returns every populated account slot in slot order.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	scan, err := c.scanSlots(ctx, "", false)
	if err != nil {
		return nil, err
	}
	return scan.accounts, nil
}

// GetAccount returns the account named name, or an error wrapping
// ErrNotFound.
func (c *Client) GetAccount(ctx context.Context, name string) (Account, error) {
	scan, err := c.scanSlots(ctx, name, false)
	if err != nil {
		return Account{}, err
	}
	if scan.found == nil {
		return Account{}, fmt.Errorf("redfish: account %q: %w", name, ErrNotFound)
	}
	return *scan.found, nil
}

// CreateAccount fills an empty slot with a new, enabled account. Fails
// with ErrAlreadyExists if the name is already in use and ErrNoCapacity
// if no slot is free. The slot table is not modified on failure.
func (c *Client) CreateAccount(ctx context.Context, name string, password *credential.Secret, role Role) (Account, error) {
	if name == "" {
		return Account{}, fmt.Errorf("redfish: account name is required")
	}
	if password == nil || password.Len() == 0 {
		return Account{}, fmt.Errorf("redfish: password for account %q is required", name)
	}

	scan, err := c.scanSlots(ctx, name, c.accountScan != ScanFull)
	if err != nil {
		return Account{}, err
	}
	if scan.found != nil {
		return Account{}, fmt.Errorf("redfish: account %q in slot %d: %w", name, scan.found.Slot, ErrAlreadyExists)
	}
	if scan.empty == nil {
		return Account{}, fmt.Errorf("redfish: no empty account slot for %q: %w", name, ErrNoCapacity)
	}

	slot := scan.empty
	c.logger.Info("creating BMC account", "endpoint", c.baseURL, "user", name, "slot", slot.Slot, "role", role)
	err = c.Update(ctx, slot.Path, map[string]any{
		"UserName": name,
		"Password": password.String(),
		"RoleId":   string(role),
		"Enabled":  true,
	})
	if err != nil {
		return Account{}, err
	}
	return Account{Slot: slot.Slot, Path: slot.Path, UserName: name, RoleID: role, Enabled: true}, nil
}

// DeleteAccount empties the slot holding name. The protected account is
// refused with ErrForbidden. Deletion is two updates: some BMCs reject
// a single request that clears the name together with the role.
func (c *Client) DeleteAccount(ctx context.Context, name string) error {
	if name == c.protectedAccount {
		return fmt.Errorf("redfish: account %q may not be deleted: %w", name, ErrForbidden)
	}
	account, err := c.GetAccount(ctx, name)
	if err != nil {
		return err
	}

	c.logger.Info("deleting BMC account", "endpoint", c.baseURL, "user", name, "slot", account.Slot)
	if err := c.Update(ctx, account.Path, map[string]any{
		"Enabled": false,
		"RoleId":  string(RoleNone),
	}); err != nil {
		return fmt.Errorf("redfish: disabling account %q: %w", name, err)
	}
	if err := c.Update(ctx, account.Path, map[string]any{"UserName": ""}); err != nil {
		return fmt.Errorf("redfish: clearing account %q: %w", name, err)
	}
	return nil
}

// SetPassword changes the password of the account named name.
func (c *Client) SetPassword(ctx context.Context, name string, password *credential.Secret) error {
	if password == nil || password.Len() == 0 {
		return fmt.Errorf("redfish: new password for account %q is required", name)
	}
	account, err := c.GetAccount(ctx, name)
	if err != nil {
		return err
	}
	c.logger.Info("setting BMC account password", "endpoint", c.baseURL, "user", name, "slot", account.Slot)
	return c.Update(ctx, account.Path, map[string]any{"Password": password.String()})
}
