// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for bmcfleet packages:
// channel waits with a hang timeout and fixture files in temporary
// directories. The fake BMC lives in lib/redfish/redfishtest.
package testutil
