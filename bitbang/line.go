// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Drive is the state the master puts a line in.
//
// A line is never driven high.
type Drive uint8

const (
	// Released leaves the line floating; the pull-up brings it high unless a
	// device pulls it low.
	Released Drive = iota
	// AssertedLow sinks the line to ground.
	AssertedLow
)

func (d Drive) String() string {
	switch d {
	case Released:
		return "Released"
	case AssertedLow:
		return "AssertedLow"
	default:
		return fmt.Sprintf("Drive(%d)", uint8(d))
	}
}

// line emulates an open-drain output on a GPIO.
type line struct {
	p    gpio.PinIO
	pull gpio.Pull
}

func (l *line) drive(d Drive) error {
	switch d {
	case Released:
		return l.p.In(l.pull, gpio.NoEdge)
	case AssertedLow:
		return l.p.Out(gpio.Low)
	default:
		return fmt.Errorf("%w: line drive %s", ErrInvalidArgument, d)
	}
}

func (l *line) read() gpio.Level {
	return l.p.Read()
}

// set drives l and keeps the first pin error of the current operation.
func (d *Dev) set(l *line, s Drive) {
	if err := l.drive(s); err != nil && d.ioErr == nil {
		d.ioErr = fmt.Errorf("bitbang: %s: %w", l.p, err)
	}
}

func (d *Dev) release(l *line) {
	d.set(l, Released)
}

func (d *Dev) assert(l *line) {
	d.set(l, AssertedLow)
}

// idle returns true when both lines read high.
func (d *Dev) idle() bool {
	return d.sda.read() == gpio.High && d.scl.read() == gpio.High
}

// held returns true when both lines read low.
func (d *Dev) held() bool {
	return d.sda.read() == gpio.Low && d.scl.read() == gpio.Low
}
