// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package idrac is the Dell iDRAC family of BMC controllers.
//
// [Client] wraps a generic [redfish.Client] and satisfies
// [redfish.Controller], so fleet operations can use either. It adds the
// iDRAC-only surface bmcfleet needs: the license store behind the
// manager's Dell OEM links, and the Server Configuration Profile
// import action used by configuration jobs.
//
// Connections are HTTPS-only; the service root must report vendor
// "Dell".
package idrac
