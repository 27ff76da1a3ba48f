// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for BMC
// credential files. It wraps filippo.io/age for the operations
// bmcfleet needs: generate x25519 keypairs, encrypt a credentials file
// to one or more recipients, and decrypt it with an identity file.
//
// Encrypted files are ASCII-armored. [Decrypt] accepts both armored
// and binary age files. Private keys are held in [credential.Secret]
// values; decrypted plaintext is returned as a byte slice the caller
// zeroes with [Zero] once it has been parsed.
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair
//   - [Encrypt] -- encrypt to age public key recipients
//   - [ReadIdentities] / [ParseIdentities] -- load private keys
//   - [Decrypt] / [IsEncrypted] -- decrypt a credentials file
//
// Used by lib/inventory to read encrypted credentials and by the
// bmcfleet machine seal command.
package sealed
