// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/acmlab/bmcfleet/lib/clock"
	"github.com/acmlab/bmcfleet/lib/redfish"
)

// DefaultMaxResources bounds a walk when Options.MaxResources is zero.
const DefaultMaxResources = 2000

// DefaultExclude lists subtrees skipped unless Options.Exclude is set.
// Schema files and message registries are large and identical across
// machines of a model.
var DefaultExclude = []string{
	"/redfish/v1/JsonSchemas",
	"/redfish/v1/Registries",
	"/redfish/v1/SessionService/Sessions",
}

// Snapshot is a captured resource tree.
type Snapshot struct {
	Machine  string    `cbor:"machine"`
	Endpoint string    `cbor:"endpoint"`
	Taken    time.Time `cbor:"taken"`
	// Root is the path the walk started from.
	Root string `cbor:"root"`
	// Resources maps each path to the resource read there.
	Resources map[string]redfish.Resource `cbor:"resources"`
	// Errors maps each path whose read failed to the error text.
	Errors map[string]string `cbor:"errors,omitempty"`
	// Truncated is set when the walk stopped at MaxResources.
	Truncated bool `cbor:"truncated,omitempty"`
}

// Paths returns the captured paths in sorted order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Resources))
	for path := range s.Resources {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// Options configures Collect.
type Options struct {
	// Start is the path the walk begins at. Default is the service
	// root.
	Start string
	// Exclude lists path prefixes not to visit. Nil means
	// DefaultExclude; an empty non-nil slice excludes nothing.
	Exclude []string
	// MaxResources bounds the number of reads. Default
	// DefaultMaxResources.
	MaxResources int
	// Clock stamps the snapshot. Default clock.Real().
	Clock clock.Clock
}

// Collect walks the resource tree of controller. Only context
// cancellation aborts the walk; other read failures are recorded in
// Snapshot.Errors.
func Collect(ctx context.Context, machine string, controller redfish.Controller, options Options) (*Snapshot, error) {
	if options.Exclude == nil {
		options.Exclude = DefaultExclude
	}
	if options.MaxResources <= 0 {
		options.MaxResources = DefaultMaxResources
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}

	root, err := controller.ServiceRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: reading service root: %w", machine, err)
	}
	rootPath := normalize(root.ID())
	if rootPath == "" {
		rootPath = "/redfish/v1"
	}
	start := rootPath
	if options.Start != "" {
		start = normalize(options.Start)
		if !strings.HasPrefix(start, "/") {
			start = rootPath + "/" + start
		}
	}

	snapshot := &Snapshot{
		Machine:   machine,
		Endpoint:  controller.Endpoint(),
		Taken:     options.Clock.Now().UTC(),
		Root:      start,
		Resources: make(map[string]redfish.Resource),
		Errors:    make(map[string]string),
	}
	logger := controller.Logger()

	queue := []string{start}
	queued := map[string]bool{start: true}
	for len(queue) > 0 {
		if len(snapshot.Resources)+len(snapshot.Errors) >= options.MaxResources {
			snapshot.Truncated = true
			logger.Warn("snapshot truncated", "limit", options.MaxResources, "pending", len(queue))
			break
		}
		path := queue[0]
		queue = queue[1:]

		resource, err := controller.GetUncached(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("snapshot: %s: %w", machine, ctx.Err())
			}
			logger.Debug("snapshot read failed", "path", path, "error", err)
			snapshot.Errors[path] = err.Error()
			continue
		}
		snapshot.Resources[path] = resource

		for _, link := range links(resource) {
			if queued[link] || !within(link, rootPath) || excluded(link, options.Exclude) {
				continue
			}
			queued[link] = true
			queue = append(queue, link)
		}
	}

	if len(snapshot.Errors) == 0 {
		snapshot.Errors = nil
	}
	logger.Info("snapshot collected", "resources", len(snapshot.Resources), "truncated", snapshot.Truncated)
	return snapshot, nil
}

// links returns every @odata.id below resource, normalized and sorted,
// without the resource's own id.
func links(resource redfish.Resource) []string {
	self := normalize(resource.ID())
	found := make(map[string]bool)
	var walk func(value any, top bool)
	walk = func(value any, top bool) {
		switch value := value.(type) {
		case map[string]any:
			for key, child := range value {
				if key == "@odata.id" {
					if id, ok := child.(string); ok && !top {
						found[normalize(id)] = true
					}
					continue
				}
				walk(child, false)
			}
		case redfish.Resource:
			walk(map[string]any(value), top)
		case []any:
			for _, child := range value {
				walk(child, false)
			}
		}
	}
	walk(map[string]any(resource), true)

	delete(found, self)
	delete(found, "")
	result := make([]string, 0, len(found))
	for link := range found {
		result = append(result, link)
	}
	slices.Sort(result)
	return result
}

// normalize drops a JSON pointer fragment and trailing slashes.
func normalize(id string) string {
	id, _, _ = strings.Cut(id, "#")
	trimmed := strings.TrimRight(id, "/")
	if trimmed == "" && id != "" {
		return "/"
	}
	return trimmed
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}

func excluded(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if within(path, strings.TrimRight(prefix, "/")) {
			return true
		}
	}
	return false
}
