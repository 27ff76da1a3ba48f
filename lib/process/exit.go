// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Exit ends the process for the error a command returned. nil exits
// 0. An error with an ExitCode() method has already reported itself
// and exits silently with that code. Otherwise the error is printed
// and the code comes from a Code() method in its chain, else 1.
func Exit(err error) {
	os.Exit(report(os.Stderr, err))
}

// report prints err as Exit would and returns the exit code.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var silent interface{ ExitCode() int }
	if errors.As(err, &silent) {
		return silent.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return 1
}
