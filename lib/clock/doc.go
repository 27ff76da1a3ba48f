// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the waits that
// BMC automation is full of: the retry delay after a "controller not
// ready" response, the catch-up pause after power changes and job
// submission, and the interval between job status polls.
//
// Production code takes a Clock and uses Real(). Tests use Fake(),
// whose waits complete immediately while virtual time advances by the
// requested duration. The fake records every wait so a test can assert
// how many pauses a run took and how long they were, without sleeping.
//
// Code that waits should select on the channel from After together
// with ctx.Done() so a cancelled run stops promptly:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-c.After(interval):
//	}
package clock
