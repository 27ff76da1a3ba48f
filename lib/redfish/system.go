// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"context"
	"fmt"
	"net/http"
)

// ServiceRoot returns the service root fetched during Connect.
func (c *Client) ServiceRoot(context.Context) (Resource, error) {
	return c.serviceRoot, nil
}

// Vendor returns the service root's Vendor property ("Dell", "HPE",
// ...), or "" when the BMC does not report one.
func (c *Client) Vendor(context.Context) (string, error) {
	return c.serviceRoot.String("Vendor"), nil
}

// serviceLink returns the @odata.id of a top-level service named in the
// service root, falling back to <root>/<name>.
func (c *Client) serviceLink(name string) string {
	if link := c.serviceRoot.Link(name); link != "" {
		return link
	}
	return c.rootPath + "/" + name
}

// SystemID returns the id of the single computer system this BMC
// manages. The id is learned once per client.
func (c *Client) SystemID(ctx context.Context) (string, error) {
	c.mu.Lock()
	known := c.systemID
	c.mu.Unlock()
	if known != "" {
		return known, nil
	}

	id, err := c.singleMember(ctx, c.serviceLink("Systems"), "computer systems")
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.systemID = id
	c.mu.Unlock()
	c.logger.Debug("discovered system", "endpoint", c.baseURL, "system", id)
	return id, nil
}

// System returns the computer system resource, from the cache when
// present. Use GetUncached(SystemID) for volatile properties.
func (c *Client) System(ctx context.Context) (Resource, error) {
	id, err := c.SystemID(ctx)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, id)
}

// SystemManager returns the manager (the BMC itself) of the computer
// system: Links.ManagedBy[0] when advertised, otherwise the single
// member of the Managers collection.
func (c *Client) SystemManager(ctx context.Context) (Resource, error) {
	c.mu.Lock()
	known := c.managerID
	c.mu.Unlock()
	if known != "" {
		return c.Get(ctx, known)
	}

	system, err := c.System(ctx)
	if err != nil {
		return nil, err
	}

	var id string
	if links := system.Object("Links"); links != nil {
		if managedBy, ok := links["ManagedBy"].([]any); ok && len(managedBy) > 0 {
			if first, ok := managedBy[0].(map[string]any); ok {
				id, _ = first["@odata.id"].(string)
			}
		}
	}
	if id == "" {
		id, err = c.singleMember(ctx, c.serviceLink("Managers"), "managers")
		if err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.managerID = id
	c.mu.Unlock()
	return c.Get(ctx, id)
}

// singleMember returns the only member of collection. A BMC manages
// one machine, so zero or several members means the client is talking
// to something it does not understand.
func (c *Client) singleMember(ctx context.Context, collection, what string) (string, error) {
	ids, err := c.ListMemberIDs(ctx, collection)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		quantity := "no"
		if len(ids) > 1 {
			quantity = "multiple"
		}
		return "", &RequestError{Method: http.MethodGet, Path: c.resolve(collection),
			Message: fmt.Sprintf("%s %s found, expected exactly one", quantity, what)}
	}
	return ids[0], nil
}
