// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"crypto/subtle"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/acmlab/bmcfleet/lib/credential"
)

// ReadPassword prompts on the terminal with echo disabled. With confirm,
// the password is read twice and must match.
func ReadPassword(prompt string, confirm bool) (*credential.Secret, error) {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return nil, Validation("no terminal available for an interactive password prompt (use --password-file)")
	}

	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	first, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}
	if len(first) == 0 {
		return nil, Validation("password is empty")
	}

	if confirm {
		fmt.Fprintf(os.Stderr, "Confirm %s: ", prompt)
		second, err := term.ReadPassword(stdinFd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			zero(first)
			return nil, Internal("reading password confirmation: %w", err)
		}
		match := subtle.ConstantTimeCompare(first, second) == 1
		zero(second)
		if !match {
			zero(first)
			return nil, Validation("passwords do not match")
		}
	}

	return credential.NewSecret(first)
}

// ReadSecretFile reads a secret from path, stripping trailing newlines.
func ReadSecretFile(path string) (*credential.Secret, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Internal("reading %s: %w", path, err)
	}
	trimmed := data
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '\n' || trimmed[len(trimmed)-1] == '\r') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if len(trimmed) == 0 {
		zero(data)
		return nil, Validation("file %s is empty (after stripping trailing newlines)", path)
	}
	secret, err := credential.NewSecret(trimmed)
	zero(data)
	return secret, err
}

// PasswordArgument resolves a password given as an optional positional
// argument, a file, or an interactive prompt, in that order. "-" as the
// argument forces the prompt.
func PasswordArgument(argument, file, prompt string) (*credential.Secret, error) {
	switch {
	case argument != "" && argument != "-":
		return credential.NewSecretFromString(argument)
	case file != "":
		return ReadSecretFile(file)
	default:
		return ReadPassword(prompt, true)
	}
}

func zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
