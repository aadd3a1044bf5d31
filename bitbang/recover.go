// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// recoveryPulses is the largest number of clocks a device may need to finish
// a byte it was sending, UM10204 section 3.1.16.
const recoveryPulses = 9

// busState classifies the line levels when the bus is expected to be idle.
type busState uint8

const (
	busIdle      busState = iota // SDA and SCL high
	busDataHeld                  // SDA low; a device is out of sync
	busClockHeld                 // SCL low; a device stopped responding
	busLocked                    // SDA and SCL low
	busUnknown                   // levels could not be sampled consistently
)

func (s busState) String() string {
	switch s {
	case busIdle:
		return "idle"
	case busDataHeld:
		return "SDA held low"
	case busClockHeld:
		return "SCL held low"
	case busLocked:
		return "locked"
	default:
		return "unknown"
	}
}

func classify(sda, scl gpio.Level) busState {
	s, c := bool(sda), bool(scl)
	switch {
	case s && c:
		return busIdle
	case !s && c:
		return busDataHeld
	case s && !c:
		return busClockHeld
	default:
		return busLocked
	}
}

// sample reads both lines twice and returns their state. A line changing
// between the two reads is sampled once more before giving up.
func (d *Dev) sample() busState {
	for try := 0; try < 2; try++ {
		sda1, scl1 := d.sda.read(), d.scl.read()
		sda2, scl2 := d.sda.read(), d.scl.read()
		if sda1 == sda2 && scl1 == scl2 {
			return classify(sda1, scl1)
		}
	}
	return busUnknown
}

// checkIdle verifies the bus is idle and tries to recover it when a device
// holds SDA low.
func (d *Dev) checkIdle() error {
	switch s := d.sample(); s {
	case busIdle:
		return nil
	case busDataHeld:
		for i := 0; i < recoveryPulses; i++ {
			if err := d.pulse(); err != nil {
				return err
			}
			if d.sda.read() == gpio.High {
				d.stats.BusResets++
				return nil
			}
		}
		d.stats.DevicesHung++
		return fmt.Errorf("%w: still low after %d clock pulses", ErrDeviceHung, recoveryPulses)
	case busClockHeld:
		// The device holds the clock; pulsing it is pointless.
		d.stats.ClockStretchTimeouts++
		return fmt.Errorf("%w: %s", ErrClockTimeout, s)
	case busLocked:
		d.stats.BusLockups++
		return ErrBusLockup
	default:
		d.stats.UnknownBusErrors++
		return ErrUnknownBusState
	}
}

// pulse generates one clock cycle, ending with SCL released.
func (d *Dev) pulse() error {
	d.assert(d.scl)
	d.delay(d.t.Low)
	d.release(d.scl)
	d.delay(d.t.High)
	if err := d.waitClock(); err != nil {
		return err
	}
	return d.ioErr
}
