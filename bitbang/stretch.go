// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// waitClock must be called right after SCL is released. It waits for a device
// that stretches the clock, UM10204 section 3.1.9.
//
// Time is accounted in polling intervals rather than with a wall clock, so the
// timeout is at least StretchTimeout.
func (d *Dev) waitClock() error {
	// Give the line time to rise so normal rise time is not mistaken for
	// stretching.
	d.delay(d.t.Response)
	if d.scl.read() == gpio.High {
		return nil
	}
	d.stats.ClockStretches++
	for elapsed := time.Duration(0); elapsed < d.t.StretchTimeout; elapsed += d.t.StretchPoll {
		d.delay(d.t.StretchPoll)
		if d.scl.read() == gpio.High {
			return nil
		}
	}
	d.stats.ClockStretchTimeouts++
	return fmt.Errorf("%w: SCL still low after %s", ErrClockTimeout, d.t.StretchTimeout)
}
