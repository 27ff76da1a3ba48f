// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"context"
	"fmt"
	"strings"
)

// ListMemberIDs returns the member ids of a collection in the order the
// BMC lists them. The collection itself is read uncached: membership
// changes as accounts, jobs, and sessions come and go.
func (c *Client) ListMemberIDs(ctx context.Context, collection string) ([]string, error) {
	resource, err := c.GetUncached(ctx, collection)
	if err != nil {
		return nil, err
	}
	if _, ok := resource["Members"]; !ok {
		return nil, fmt.Errorf("redfish: %s is not a collection: %w", c.resolve(collection), ErrUnrecognized)
	}
	return resource.Members(), nil
}

// ListMembers returns every member resource of a collection, in order.
// Member resources go through the cache.
func (c *Client) ListMembers(ctx context.Context, collection string) ([]Resource, error) {
	ids, err := c.ListMemberIDs(ctx, collection)
	if err != nil {
		return nil, err
	}
	members := make([]Resource, 0, len(ids))
	for _, id := range ids {
		member, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

// FindMemberByName returns the first member whose Name (or, failing
// that, Id) equals any of names. Fails with ErrNotFound if none
// matches.
func (c *Client) FindMemberByName(ctx context.Context, collection string, names ...string) (Resource, error) {
	members, err := c.ListMembers(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		for _, name := range names {
			if member.String("Name") == name || member.String("Id") == name {
				return member, nil
			}
		}
	}
	return nil, fmt.Errorf("redfish: no member of %s named %s: %w",
		c.resolve(collection), strings.Join(names, " or "), ErrNotFound)
}
