// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential holds BMC login material: account passwords read
// from the inventory or the command line, and the session tokens a BMC
// hands back after login.
//
// [Secret] keeps its bytes in an anonymous mmap region outside the Go
// heap, excluded from core dumps and zeroed on Close. The region is
// also mlocked against swap when the process's RLIMIT_MEMLOCK allows;
// [Secret.Locked] reports whether that succeeded. A fleet run holds a
// password and a session token per machine, so exhausting a small
// memlock budget is expected on unprivileged hosts and is not an error.
//
// [Credential] pairs a username with its password Secret. Closing a
// Credential closes the password.
package credential
