// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed digest.
type Digest [32]byte

// Domain is a BLAKE3 key separating digest uses.
type Domain [32]byte

// Domains. The key bytes are the ASCII domain name zero-padded to 32
// bytes; changing them invalidates every recorded digest.
var (
	License  = newDomain("bmcfleet.license")
	Snapshot = newDomain("bmcfleet.snapshot")
)

func newDomain(name string) Domain {
	if len(name) > len(Domain{}) {
		panic("digest: domain name longer than 32 bytes: " + name)
	}
	var domain Domain
	copy(domain[:], name)
	return domain
}

func newHasher(domain Domain) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(domain[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// Sum returns the domain digest of data.
func Sum(domain Domain, data []byte) Digest {
	hasher := newHasher(domain)
	hasher.Write(data)
	var result Digest
	copy(result[:], hasher.Sum(nil))
	return result
}

// Reader returns the domain digest of everything read from r.
func Reader(domain Domain, r io.Reader) (Digest, error) {
	hasher := newHasher(domain)
	if _, err := io.Copy(hasher, r); err != nil {
		return Digest{}, err
	}
	var result Digest
	copy(result[:], hasher.Sum(nil))
	return result, nil
}

// File streams the file at path through the domain hash.
func File(domain Domain, path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	result, err := Reader(domain, file)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return result, nil
}

// String returns the hex form of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for log lines.
func (d Digest) Short() string {
	return d.String()[:12]
}

// Parse parses a 64-character hex digest.
func Parse(hexString string) (Digest, error) {
	var result Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return result, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(result) {
		return result, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(result))
	}
	copy(result[:], decoded)
	return result, nil
}
