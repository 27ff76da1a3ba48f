// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"status":"ok"}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"status":"ok"}` {
			t.Fatalf("got %q, want %q", data, `{"status":"ok"}`)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 0 {
			t.Fatalf("expected empty, got %d bytes", len(data))
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		_, err := ReadResponse(&failReader{})
		if err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"name":"test","count":42}`))
		var result struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		if err := DecodeResponse(body, &result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Name != "test" {
			t.Fatalf("name: got %q, want %q", result.Name, "test")
		}
		if result.Count != 42 {
			t.Fatalf("count: got %d, want %d", result.Count, 42)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if err := DecodeResponse(bytes.NewReader([]byte(`not json`)), &struct{}{}); err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if err := DecodeResponse(&failReader{}, &struct{}{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewHTTPClient(false, 0)
		if client.Timeout != DefaultRequestTimeout {
			t.Fatalf("timeout: got %v, want %v", client.Timeout, DefaultRequestTimeout)
		}
		transport, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("transport: got %T, want *http.Transport", client.Transport)
		}
		if !transport.TLSClientConfig.InsecureSkipVerify {
			t.Fatal("expected certificate verification to be disabled")
		}
	})

	t.Run("verify", func(t *testing.T) {
		client := NewHTTPClient(true, 5*time.Second)
		if client.Timeout != 5*time.Second {
			t.Fatalf("timeout: got %v, want 5s", client.Timeout)
		}
		transport := client.Transport.(*http.Transport)
		if transport.TLSClientConfig.InsecureSkipVerify {
			t.Fatal("expected certificate verification to be enabled")
		}
	})
}

// failReader always returns an error on Read.
type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
