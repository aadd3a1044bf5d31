// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

// start issues a START condition, UM10204 section 3.1.4: SDA falls while SCL
// is high.
//
// Ends with SDA and SCL asserted low.
func (d *Dev) start() error {
	if d.held() {
		// The master already owns the bus.
		return nil
	}
	d.assert(d.sda)
	d.delay(d.t.HoldStart)
	d.assert(d.scl)
	d.delay(d.t.Low)
	if d.ioErr != nil {
		return d.ioErr
	}
	if d.idle() {
		d.stats.FailedStarts++
		return ErrStartCondition
	}
	d.stats.Starts++
	return nil
}

// stop issues a STOP condition: SDA rises while SCL is high. It then checks
// that no device is still holding a line.
//
// Ends with SDA and SCL released.
func (d *Dev) stop() error {
	if d.idle() {
		return nil
	}
	d.release(d.scl)
	d.delay(d.t.SetupStop)
	d.release(d.sda)
	d.delay(d.t.BusFree)
	if d.ioErr != nil {
		d.stats.FailedStops++
		return d.ioErr
	}
	if err := d.checkIdle(); err != nil {
		d.stats.FailedStops++
		return err
	}
	d.stats.Stops++
	return nil
}

// repeatedStart issues a START without releasing the bus first, to change the
// transfer direction.
func (d *Dev) repeatedStart() error {
	if !d.held() {
		return ErrRepeatedStart
	}
	// SDA first, otherwise this is a STOP.
	d.release(d.sda)
	d.release(d.scl)
	if err := d.waitClock(); err != nil {
		return err
	}
	d.delay(d.t.SetupRepeatedStart)
	if err := d.start(); err != nil {
		return err
	}
	d.stats.RepeatedStarts++
	return nil
}

// releaseLines lets go of both lines without generating a STOP pattern. It is
// used once a device took over the clock.
func (d *Dev) releaseLines() {
	d.release(d.scl)
	d.release(d.sda)
}
