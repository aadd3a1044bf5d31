// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

const (
	flagWrite = 0
	flagRead  = 1
)

// writeByte shifts b out MSB first and returns true if the receiver
// acknowledged it. A NACK is not an error at this level.
//
// Expects SCL low. Ends with SDA and SCL asserted low.
func (d *Dev) writeByte(b byte) (bool, error) {
	// Page 9, section 3.1.3: SDA must be stable while SCL is high.
	for i := 7; i >= 0; i-- {
		if b&(1<<uint(i)) != 0 {
			d.release(d.sda)
		} else {
			d.assert(d.sda)
		}
		d.delay(d.t.Low)
		d.release(d.scl)
		if err := d.waitClock(); err != nil {
			return false, err
		}
		d.delay(d.t.High)
		d.assert(d.scl)
	}
	// Page 10, section 3.1.6: the 9th clock is the acknowledge.
	d.release(d.sda)
	d.delay(d.t.Low)
	d.release(d.scl)
	if err := d.waitClock(); err != nil {
		return false, err
	}
	ack := d.sda.read() == gpio.Low
	d.delay(d.t.High)
	d.assert(d.scl)
	d.assert(d.sda)
	return ack, d.ioErr
}

// readByte shifts a byte in MSB first, then acknowledges it when more bytes
// are expected or NACKs it when it is the last one.
//
// Expects SCL low. Ends with SCL asserted low; SDA is asserted low after a NACK
// so a STOP can follow.
func (d *Dev) readByte(ack bool) (byte, error) {
	var b byte
	d.release(d.sda)
	for i := 7; i >= 0; i-- {
		d.release(d.scl)
		if err := d.waitClock(); err != nil {
			return 0, err
		}
		d.delay(d.t.High)
		if d.sda.read() == gpio.High {
			b |= 1 << uint(i)
		}
		d.assert(d.scl)
		d.delay(d.t.Low)
	}
	if d.ioErr != nil {
		return 0, d.ioErr
	}
	// The transmitter must let go of SDA for the acknowledge bit. The STOP
	// that follows counts the hung device.
	if d.sda.read() == gpio.Low {
		return 0, fmt.Errorf("%w: not released for acknowledge", ErrDeviceHung)
	}
	if ack {
		d.assert(d.sda)
	}
	d.release(d.scl)
	if err := d.waitClock(); err != nil {
		return 0, err
	}
	d.delay(d.t.High)
	d.assert(d.scl)
	d.delay(d.t.Low)
	if !ack {
		d.assert(d.sda)
	}
	return b, d.ioErr
}

// writeAddress sends the address frame of a 7-bit address, UM10204 section
// 3.1.10.
func (d *Dev) writeAddress(addr uint16, read bool) (bool, error) {
	flag := byte(flagWrite)
	if read {
		flag = flagRead
	}
	return d.writeByte(byte(addr)<<1 | flag)
}
