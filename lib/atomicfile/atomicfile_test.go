// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")

	if err := Write(path, []byte("first\n"), 0o600); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, []byte("second\n"), 0o600); err != nil {
		t.Fatalf("Write (replace): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "second\n" {
		t.Errorf("content = %q, want %q", data, "second\n")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
}

func TestWriteFunc_FailureLeavesOriginal(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "run.json")
	if err := Write(path, []byte("original\n"), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}

	failure := errors.New("encoder failed")
	err := WriteFunc(path, 0o644, func(w io.Writer) error {
		fmt.Fprintln(w, "partial")
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("WriteFunc error = %v, want %v", err, failure)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "original\n" {
		t.Errorf("original was replaced: %q", data)
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %v", entries)
	}
}

func TestWrite_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "run.json")
	if err := Write(path, []byte("x"), 0o600); err == nil {
		t.Fatal("Write into a missing directory succeeded")
	}
}
