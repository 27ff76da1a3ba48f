// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/acmlab/bmcfleet/lib/atomicfile"
	"github.com/acmlab/bmcfleet/lib/codec"
	"github.com/acmlab/bmcfleet/lib/digest"
)

const (
	magic         = "BMCSNAP"
	formatVersion = 1
	headerSize    = len(magic) + 1 + 1 + 8 + len(digest.Digest{})
)

// ErrCorrupt is returned by Decode when the payload does not match the
// stored digest.
var ErrCorrupt = errors.New("snapshot: payload does not match its digest")

// Encode serializes s into the container format and returns the
// digest of its CBOR payload. When tag would not shrink the payload it
// is stored uncompressed.
func (s *Snapshot) Encode(tag CompressionTag) ([]byte, digest.Digest, error) {
	payload, err := codec.Marshal(s)
	if err != nil {
		return nil, digest.Digest{}, fmt.Errorf("snapshot: encoding: %w", err)
	}
	sum := digest.Sum(digest.Snapshot, payload)

	compressed, used, err := compress(payload, tag)
	if err != nil {
		return nil, digest.Digest{}, err
	}

	var buffer bytes.Buffer
	buffer.Grow(headerSize + len(compressed))
	buffer.WriteString(magic)
	buffer.WriteByte(formatVersion)
	buffer.WriteByte(byte(used))
	buffer.Write(binary.BigEndian.AppendUint64(nil, uint64(len(payload))))
	buffer.Write(sum[:])
	buffer.Write(compressed)
	return buffer.Bytes(), sum, nil
}

// Decode parses a container, verifies its digest, and returns the
// snapshot with that digest.
func Decode(data []byte) (*Snapshot, digest.Digest, error) {
	if len(data) < headerSize || string(data[:len(magic)]) != magic {
		return nil, digest.Digest{}, fmt.Errorf("snapshot: not a snapshot file")
	}
	header := data[len(magic):headerSize]
	if version := header[0]; version != formatVersion {
		return nil, digest.Digest{}, fmt.Errorf("snapshot: unsupported format version %d", version)
	}
	tag := CompressionTag(header[1])
	size := binary.BigEndian.Uint64(header[2:10])
	if size > math.MaxInt32 {
		return nil, digest.Digest{}, fmt.Errorf("snapshot: payload size %d is implausible", size)
	}
	var stored digest.Digest
	copy(stored[:], header[10:])

	payload, err := decompress(data[headerSize:], tag, int(size))
	if err != nil {
		return nil, digest.Digest{}, err
	}
	if digest.Sum(digest.Snapshot, payload) != stored {
		return nil, digest.Digest{}, ErrCorrupt
	}

	var snapshot Snapshot
	if err := codec.Unmarshal(payload, &snapshot); err != nil {
		return nil, digest.Digest{}, fmt.Errorf("snapshot: decoding: %w", err)
	}
	return &snapshot, stored, nil
}

// WriteFile encodes s to path with mode 0600. Snapshots can include
// account names and network configuration.
func (s *Snapshot) WriteFile(path string, tag CompressionTag) (digest.Digest, error) {
	data, sum, err := s.Encode(tag)
	if err != nil {
		return digest.Digest{}, err
	}
	if err := atomicfile.Write(path, data, 0o600); err != nil {
		return digest.Digest{}, fmt.Errorf("snapshot: %w", err)
	}
	return sum, nil
}

// ReadFile decodes the snapshot at path.
func ReadFile(path string) (*Snapshot, digest.Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, digest.Digest{}, fmt.Errorf("snapshot: %w", err)
	}
	snapshot, sum, err := Decode(data)
	if err != nil {
		return nil, digest.Digest{}, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, sum, nil
}
