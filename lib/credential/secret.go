// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Secret holds sensitive bytes in mmap-backed memory. A Secret must not
// be copied after creation. After Close, reading the contents panics.
type Secret struct {
	mu     sync.Mutex
	data   []byte
	length int
	locked bool
	closed bool
}

// NewSecret copies source into protected memory and zeroes source.
// An empty source is rejected: BMC passwords and tokens are never
// empty, so an empty value always indicates a configuration mistake.
func NewSecret(source []byte) (*Secret, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("credential: cannot protect an empty secret")
	}

	data, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("credential: mmap failed: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("credential: madvise(MADV_DONTDUMP) failed: %w", err)
	}
	locked := unix.Mlock(data) == nil

	copy(data, source)
	for index := range source {
		source[index] = 0
	}

	return &Secret{data: data, length: len(source), locked: locked}, nil
}

// NewSecretFromString protects a string value. The string itself stays
// on the heap until collected; use this only at boundaries that hand
// out strings (YAML decoding, flag parsing).
func NewSecretFromString(value string) (*Secret, error) {
	return NewSecret([]byte(value))
}

// String returns a heap copy of the secret for APIs that need a string,
// such as a JSON login body or an HTTP header value.
func (s *Secret) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("credential: read from closed secret")
	}
	return string(s.data[:s.length])
}

// Equal reports whether the secret holds exactly value.
func (s *Secret) Equal(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("credential: read from closed secret")
	}
	return string(s.data[:s.length]) == value
}

// Len returns the length of the secret.
func (s *Secret) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.length
}

// Locked reports whether the backing memory is mlocked.
func (s *Secret) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Close zeroes and releases the memory. Idempotent.
func (s *Secret) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for index := range s.data {
		s.data[index] = 0
	}

	var firstError error
	if s.locked {
		if err := unix.Munlock(s.data); err != nil {
			firstError = fmt.Errorf("credential: munlock failed: %w", err)
		}
	}
	if err := unix.Munmap(s.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("credential: munmap failed: %w", err)
	}
	s.data = nil
	return firstError
}

// Credential is a BMC login: a username and its password.
type Credential struct {
	Username string
	Password *Secret
}

// New builds a Credential, protecting password.
func New(username, password string) (Credential, error) {
	if username == "" {
		return Credential{}, fmt.Errorf("credential: username is required")
	}
	secret, err := NewSecretFromString(password)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: protecting password for %q: %w", username, err)
	}
	return Credential{Username: username, Password: secret}, nil
}

// Close releases the password. Safe on a zero Credential.
func (c Credential) Close() error {
	if c.Password == nil {
		return nil
	}
	return c.Password.Close()
}
