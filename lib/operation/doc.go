// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package operation provides the fleet operations bmcfleet ships:
//
//   - [ConfigImport] applies a Dell Server Configuration Profile. The
//     system is powered off before submission and powered on after it
//     so Lifecycle Controller picks the job up; the original power state
//     is restored once the job ends.
//   - [FirmwareUpdate] submits UpdateService.SimpleUpdate with an image
//     URI and polls the resulting task.
//   - [PowerCycle] powers the system off and back on. It has no
//     asynchronous job.
//
// Each operation is a value whose Factory method returns a
// [fleet.Factory]. Request parameters can be authored as JSONC files
// (JSON with comments and trailing commas).
package operation
