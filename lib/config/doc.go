// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for bmcfleet.
//
// Configuration is loaded from a single file specified by either the
// BMCFLEET_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Commands run without either use
// [Default].
//
// The file supports environment-specific sections (development,
// production) that override base client and runner values when
// [Config].Environment matches. Production defaults to serial runs.
//
// ${HOME} and ${VAR:-default} patterns are expanded in the inventory
// paths after loading. No other environment variables override config
// values.
//
// Key exports:
//
//   - [Config] -- Inventory, Client, Runner, TaskState sections
//   - [Default] -- the documented defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.RedfishConfig], [Config.ApplyRunner],
//     [Config.InventoryOptions] -- settings for the libraries
package config
