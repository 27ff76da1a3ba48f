// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package idrac

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/acmlab/bmcfleet/lib/redfish"
)

const (
	importLicenseAction = "#DellLicenseManagementService.ImportLicense"
	deleteLicenseAction = "#DellLicenseManagementService.DeleteLicense"
)

// License is a license installed on an iDRAC.
type License struct {
	// Path is the license resource id.
	Path          string
	EntitlementID string
	Description   string
	// Type is "Perpetual", "Evaluation", "Lease", ...
	Type string
	// EvalDaysRemaining is meaningful for evaluation licenses.
	EvalDaysRemaining int
	AssignedDevices   []string
}

func licenseFromResource(resource redfish.Resource) License {
	license := License{
		Path:          resource.ID(),
		EntitlementID: resource.String("EntitlementID"),
		Type:          resource.String("LicenseType"),
	}
	if descriptions, ok := resource["LicenseDescription"].([]any); ok && len(descriptions) > 0 {
		license.Description, _ = descriptions[0].(string)
	}
	if days, ok := resource.Int("EvalLicenseTimeRemainingDays"); ok {
		license.EvalDaysRemaining = days
	}
	if devices, ok := resource["AssignedDevices"].([]any); ok {
		for _, device := range devices {
			if name, ok := device.(string); ok {
				license.AssignedDevices = append(license.AssignedDevices, name)
			}
		}
	}
	return license
}

// Summary is a one-line description for operators.
func (l License) Summary() string {
	if l.Type == "Evaluation" {
		if l.EvalDaysRemaining == 0 {
			return fmt.Sprintf("expired evaluation license for %s", l.Description)
		}
		return fmt.Sprintf("active evaluation license for %s (%d days remaining)", l.Description, l.EvalDaysRemaining)
	}
	return fmt.Sprintf("%s license for %s", l.Type, l.Description)
}

type licenseStore struct {
	managerID  string
	collection string
	service    string
}

// licenseStore locates the Dell license collection and management
// service through the manager's OEM links.
func (c *Client) licenseStore(ctx context.Context) (licenseStore, error) {
	manager, err := c.SystemManager(ctx)
	if err != nil {
		return licenseStore{}, err
	}
	store := licenseStore{
		managerID:  manager.String("Id"),
		collection: manager.Link("Links", "Oem", "Dell", "DellLicenseCollection"),
		service:    manager.Link("Links", "Oem", "Dell", "DellLicenseManagementService"),
	}
	if store.managerID == "" || store.collection == "" || store.service == "" {
		return licenseStore{}, fmt.Errorf("%w: manager %s does not link the Dell license service", redfish.ErrUnsupportedAction, manager.ID())
	}
	return store, nil
}

// ListLicenses returns the licenses assigned to this iDRAC.
func (c *Client) ListLicenses(ctx context.Context) ([]License, error) {
	store, err := c.licenseStore(ctx)
	if err != nil {
		return nil, err
	}
	return c.listLicenses(ctx, store)
}

func (c *Client) listLicenses(ctx context.Context, store licenseStore) ([]License, error) {
	resources, err := c.ListMembers(ctx, store.collection)
	if err != nil {
		return nil, err
	}
	var licenses []License
	for _, resource := range resources {
		license := licenseFromResource(resource)
		if slices.Contains(license.AssignedDevices, store.managerID) {
			licenses = append(licenses, license)
		}
	}
	return licenses, nil
}

// FindLicense returns the installed license with entitlementID, or an
// error wrapping redfish.ErrNotFound.
func (c *Client) FindLicense(ctx context.Context, entitlementID string) (License, error) {
	store, err := c.licenseStore(ctx)
	if err != nil {
		return License{}, err
	}
	return c.findLicense(ctx, store, entitlementID)
}

func (c *Client) findLicense(ctx context.Context, store licenseStore, entitlementID string) (License, error) {
	licenses, err := c.listLicenses(ctx, store)
	if err != nil {
		return License{}, err
	}
	for _, license := range licenses {
		if license.EntitlementID == entitlementID {
			return license, nil
		}
	}
	return License{}, fmt.Errorf("idrac: license %s: %w", entitlementID, redfish.ErrNotFound)
}

// InstallLicense imports file. An already installed entitlement fails
// with redfish.ErrAlreadyExists and the installed license's summary.
func (c *Client) InstallLicense(ctx context.Context, file *LicenseFile) error {
	store, err := c.licenseStore(ctx)
	if err != nil {
		return err
	}
	existing, err := c.findLicense(ctx, store, file.EntitlementID)
	if err == nil {
		return fmt.Errorf("idrac: %s already installed: %w", existing.Summary(), redfish.ErrAlreadyExists)
	}
	if !errors.Is(err, redfish.ErrNotFound) {
		return err
	}

	target, err := c.licenseAction(ctx, store, importLicenseAction)
	if err != nil {
		return err
	}
	_, err = c.PerformAction(ctx, target, map[string]any{
		"FQDD":          store.managerID,
		"ImportOptions": "Force",
		"LicenseFile":   file.Encoded(),
	})
	if err != nil {
		return fmt.Errorf("idrac: importing license %s: %w", file.EntitlementID, err)
	}
	c.Logger().Info("license installed",
		"entitlement", file.EntitlementID,
		"description", file.Description,
		"digest", file.Digest.Short(),
	)
	return nil
}

// RemoveLicense deletes the installed license with entitlementID. A
// license that is not installed fails with redfish.ErrNotFound.
func (c *Client) RemoveLicense(ctx context.Context, entitlementID string) error {
	store, err := c.licenseStore(ctx)
	if err != nil {
		return err
	}
	license, err := c.findLicense(ctx, store, entitlementID)
	if err != nil {
		return err
	}

	target, err := c.licenseAction(ctx, store, deleteLicenseAction)
	if err != nil {
		return err
	}
	_, err = c.PerformAction(ctx, target, map[string]any{
		"FQDD":          store.managerID,
		"DeleteOptions": "Force",
		"EntitlementID": entitlementID,
	})
	if err != nil {
		return fmt.Errorf("idrac: deleting license %s: %w", entitlementID, err)
	}
	c.Cache().Invalidate(license.Path)
	c.Logger().Info("license removed", "entitlement", entitlementID, "description", license.Description)
	return nil
}

func (c *Client) licenseAction(ctx context.Context, store licenseStore, name string) (string, error) {
	service, err := c.Get(ctx, store.service)
	if err != nil {
		return "", err
	}
	action, err := redfish.FindAction(service, name)
	if err != nil {
		return "", err
	}
	return action.Target, nil
}
