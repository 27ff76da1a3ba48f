// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O utilities shared by the BMC
// clients.
//
// Response helpers (ReadResponse, DecodeResponse) bound body reads at
// MaxResponseSize so a misbehaving controller cannot exhaust memory.
// BMC documents are small JSON objects; large downloads (firmware
// images, exported profiles) never travel through these helpers.
//
// NewHTTPClient builds the HTTP client used to talk to BMCs, which
// almost always present self-signed certificates.
package netutil

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxResponseSize is the bound on JSON response body reads: 32 MB.
// A large account table or job queue is a few hundred kilobytes.
const MaxResponseSize int64 = 32 << 20

// DefaultRequestTimeout bounds a single HTTP exchange with a BMC.
// iDRAC can take tens of seconds to answer while its Lifecycle
// Controller is busy.
const DefaultRequestTimeout = 60 * time.Second

// ReadResponse reads a response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// NewHTTPClient returns an HTTP client for BMC traffic. With verify
// false, server certificates are not checked. A zero timeout means
// DefaultRequestTimeout.
func NewHTTPClient(verify bool, timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !verify, //nolint:gosec // BMC certificates are self-signed
		MinVersion:         tls.VersionTLS12,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
