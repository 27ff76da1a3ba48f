// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package redfish is a session-authenticated client for the Redfish
// management API exposed by server BMCs.
//
// [Connect] performs the three-step handshake every BMC expects: an
// unauthenticated GET of /redfish to discover the versioned root, an
// unauthenticated GET of the service root (cached, since it is needed
// to locate sub-services before any session exists), and a POST to the
// session collection. The session token and session resource id come
// back in response headers (X-Auth-Token and Location), never in the
// body. [Client.Close] deletes the session on a best-effort basis.
//
// Resources are plain JSON documents ([Resource]) addressed by their
// @odata.id path. Reads go through a per-client [Cache] that is
// invalidated, never merged, on PATCH and DELETE of the same path;
// volatile state such as power status and job progress is always read
// with [Client.GetUncached].
//
// The client encodes a few compatibility rules learned from production
// BMCs:
//
//   - HTTP 200 is not a reliable success signal. A 200 response whose
//     body carries an "error" object is a failure. Other 2xx codes are
//     accepted without looking at the body.
//   - A small set of vendor message ids means "controller busy, try
//     again shortly". Requests failing with one of them are retried
//     exactly once after [Config.RetryDelay].
//   - Account storage is a fixed slot table. New accounts go into the
//     first empty slot; by default the scan stops there (see
//     [AccountScan]).
//
// [Controller] is the operation set that the fleet orchestrator and
// operations depend on. [*Client] is the implementation for generic
// Redfish BMCs; vendor families embed it (see package idrac).
//
// All protocol failures are [*RequestError] values carrying the HTTP
// status and the best message the BMC offered. Sentinel errors
// ([ErrNotFound], [ErrAlreadyExists], [ErrNoCapacity], [ErrForbidden],
// [ErrUnsupportedAction], [ErrUnrecognized]) classify local failures;
// test for them with errors.Is.
package redfish
