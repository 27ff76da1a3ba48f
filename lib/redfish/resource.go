// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Resource is a Redfish JSON document. Resources returned by the client
// may be shared with its cache: treat them as read-only.
type Resource map[string]any

// ID returns the resource's @odata.id.
func (r Resource) ID() string {
	id, _ := r["@odata.id"].(string)
	return id
}

// Type returns the resource's @odata.type.
func (r Resource) Type() string {
	odataType, _ := r["@odata.type"].(string)
	return odataType
}

// String returns the string property key, or "" if absent or not a
// string.
func (r Resource) String(key string) string {
	value, _ := r[key].(string)
	return value
}

// Object returns the nested object at the given key path, or nil.
func (r Resource) Object(keys ...string) Resource {
	current := map[string]any(r)
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return Resource(current)
}

// Link returns the @odata.id of the reference object at the given key
// path, e.g. Link("Systems") on a service root or
// Link("Links", "Sessions").
func (r Resource) Link(keys ...string) string {
	return r.Object(keys...).ID()
}

// Members returns the @odata.id of every entry in a collection's
// Members array, in order.
func (r Resource) Members() []string {
	members, _ := r["Members"].([]any)
	ids := make([]string, 0, len(members))
	for _, member := range members {
		if object, ok := member.(map[string]any); ok {
			if id, ok := object["@odata.id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Int returns the numeric property key truncated to an int. JSON
// numbers decode as float64; string values holding digits (some BMCs
// report percentages that way) are accepted too.
func (r Resource) Int(key string) (int, bool) {
	switch value := r[key].(type) {
	case float64:
		return int(value), true
	case json.Number:
		parsed, err := value.Int64()
		return int(parsed), err == nil
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSuffix(value, "%"), "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// Action describes one entry of a resource's Actions object.
type Action struct {
	// Name is the action key, e.g. "#ComputerSystem.Reset".
	Name string
	// Target is the path to POST to.
	Target string
	// Allowed maps a parameter name to its advertised allowable values
	// (from "<Parameter>@Redfish.AllowableValues").
	Allowed map[string][]string
}

// FindAction looks up the named action on r, in Actions or, for vendor
// actions, in Actions.Oem. Returns an error wrapping
// ErrUnsupportedAction if r does not advertise it or advertises it
// without a target.
func FindAction(r Resource, name string) (Action, error) {
	entry := r.Object("Actions", name)
	if entry == nil {
		entry = r.Object("Actions", "Oem", name)
	}
	if entry == nil {
		return Action{}, fmt.Errorf("%w: %s does not provide %s", ErrUnsupportedAction, describe(r), name)
	}
	target := entry.String("target")
	if target == "" {
		return Action{}, fmt.Errorf("%w: %s advertises %s without a target", ErrUnsupportedAction, describe(r), name)
	}

	action := Action{Name: name, Target: target, Allowed: make(map[string][]string)}
	const suffix = "@Redfish.AllowableValues"
	for key, value := range entry {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		list, _ := value.([]any)
		values := make([]string, 0, len(list))
		for _, item := range list {
			if text, ok := item.(string); ok {
				values = append(values, text)
			}
		}
		action.Allowed[strings.TrimSuffix(key, suffix)] = values
	}
	return action, nil
}

// Check verifies that value is an allowed argument for parameter. A
// parameter without an advertised allow-list accepts any value.
func (a Action) Check(parameter, value string) error {
	values, advertised := a.Allowed[parameter]
	if !advertised {
		return nil
	}
	for _, allowed := range values {
		if allowed == value {
			return nil
		}
	}
	return fmt.Errorf("%w: %s does not allow %s=%s (allowed: %s)",
		ErrUnsupportedAction, a.Name, parameter, value, strings.Join(values, ", "))
}

func describe(r Resource) string {
	if id := r.ID(); id != "" {
		return id
	}
	return "resource"
}

func decodeObject(body []byte) (map[string]any, bool) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, false
	}
	var document map[string]any
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, false
	}
	return document, true
}

// pathOf reduces a Location header value (absolute URL or path) to its
// path component.
func pathOf(location string) string {
	if location == "" {
		return ""
	}
	if parsed, err := url.Parse(location); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return location
}
