// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "abc", 1},
		{"abc", "bac", 2}, // transposition counts as two edits
		{"kitten", "sitting", 3},
		{"license", "licnese", 2},
		{"account", "acount", 1},
		{"reboot", "rebot", 1},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if reverse := levenshtein(test.b, test.a); reverse != got {
				t.Errorf("levenshtein is not symmetric: %d vs %d", got, reverse)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "power"},
		{Name: "account"},
		{Name: "job"},
		{Name: "license"},
		{Name: "resource"},
		{Name: "machine"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"pwoer", "power"},
		{"acount", "account"},
		{"accounts", "account"},
		{"licence", "license"},
		{"resourse", "resource"},
		{"mashine", "machine"},
		{"zzzzzzzzz", ""},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got := suggestCommand(test.input, commands)
			if got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("report", "", "")
		flagSet.String("mode", "", "")
		flagSet.String("compression", "", "")
		flagSet.Bool("as-admin", false, "")
		flagSet.Bool("json", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"close typo", []string{"--reprot"}, "--report"},
		{"hyphenated", []string{"--as-amdin"}, "--as-admin"},
		{"with equals", []string{"--compresion=lz4"}, "--compression"},
		{"after known flag", []string{"--json", "--mdoe", "wave"}, "--mode"},
		{"nothing close", []string{"--zzzzzzzzz"}, ""},
		{"no flags", []string{"r650-07"}, ""},
		{"shorthand ignored", []string{"-x"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := suggestFlag(test.args, makeFlagSet())
			if got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
