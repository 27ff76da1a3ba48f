// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for bmcfleet.
//
// Version information is injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/acmlab/bmcfleet/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without it, the VCS revision recorded by the Go toolchain is used.
package version
