// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides bmcfleet's standard CBOR encoding configuration.
//
// bmcfleet writes two serialization formats:
//
//   - JSON for anything an operator reads or a BMC receives: request
//     bodies, CLI output, and JSON run reports.
//   - CBOR for machine-read artifacts: binary run reports and resource
//     snapshots.
//
// This package holds the shared CBOR modes so every artifact encodes
// identically. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same report always produces the same
// bytes, which keeps snapshot digests stable.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Stream helpers wrap files and compressors:
//
//	encoder := codec.NewEncoder(writer)
//	decoder := codec.NewDecoder(reader)
//
// # Struct Tags
//
// Types serialized to both JSON and CBOR carry only `json` tags;
// fxamacker/cbor reads them when `cbor` tags are absent. Types that are
// only ever CBOR use `cbor` tags. Never put both on one field.
package codec
