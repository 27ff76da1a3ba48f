// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/acmlab/bmcfleet/cmd/bmcfleet/commands"
	"github.com/acmlab/bmcfleet/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().Execute(ctx, os.Args[1:])
	stop()
	process.Exit(err)
}
