// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbangtest

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

type phase uint8

const (
	phaseIdle   phase = iota // not addressed, ignores the clock
	phaseRecv                // shifting a byte in
	phaseAckOut              // acknowledging a received byte
	phaseSend                // shifting a byte out
	phaseAckIn               // waiting for the master acknowledge
)

// Target is a simulated device with 256 byte wide registers.
//
// A write selects a register with its first byte and stores the following
// bytes in consecutive registers. A read returns consecutive registers from
// the selected one.
type Target struct {
	// Addr is the 7-bit address the target answers to.
	Addr uint16
	// Regs is the register file.
	Regs [256]byte

	// NACKRegister refuses every register address.
	NACKRegister bool
	// NACKData refuses the written data byte at this 1-based position in a
	// transaction. 0 accepts everything.
	NACKData int
	// WriteOnly refuses to be addressed for a read.
	WriteOnly bool
	// Stretch is how long the target holds SCL low after each received byte,
	// before acknowledging it.
	Stretch time.Duration
	// Hang keeps SDA low forever once the first byte was sent.
	Hang bool

	b         *Bus
	phase     phase
	addressed bool
	read      bool
	shift     byte
	count     int
	ptr       byte
	ptrSet    bool
	data      int
	out       byte
	sda       bool
	hung      bool
	masterAck bool
	holdUntil time.Duration
}

func (t *Target) start() {
	t.phase = phaseRecv
	t.addressed = false
	t.shift = 0
	t.count = 0
	t.data = 0
	t.sda = false
}

func (t *Target) stop() {
	t.phase = phaseIdle
	t.addressed = false
	t.ptrSet = false
	t.sda = false
}

func (t *Target) rise(sda gpio.Level) {
	switch t.phase {
	case phaseRecv:
		t.shift <<= 1
		if sda {
			t.shift |= 1
		}
		t.count++
	case phaseAckIn:
		t.masterAck = sda == gpio.Low
	}
}

func (t *Target) fall() {
	switch t.phase {
	case phaseRecv:
		if t.count == 8 {
			t.received(t.shift)
		}
	case phaseAckOut:
		t.sda = false
		if t.read {
			t.load()
			t.phase = phaseSend
		} else {
			t.phase = phaseRecv
			t.shift = 0
			t.count = 0
		}
	case phaseSend:
		t.count++
		if t.count < 8 {
			t.sda = t.out&(0x80>>uint(t.count)) == 0
			return
		}
		if t.Hang {
			t.hung = true
		}
		t.sda = false
		t.phase = phaseAckIn
	case phaseAckIn:
		if t.masterAck {
			t.load()
			t.phase = phaseSend
			return
		}
		t.sda = false
		t.phase = phaseIdle
	}
}

// received handles a complete byte and decides whether to acknowledge it.
func (t *Target) received(b byte) {
	ack := true
	switch {
	case !t.addressed:
		t.read = b&1 == 1
		ack = uint16(b>>1) == t.Addr && !(t.read && t.WriteOnly)
		t.addressed = ack
	case !t.ptrSet:
		if ack = !t.NACKRegister; ack {
			t.ptr = b
			t.ptrSet = true
		}
	default:
		t.data++
		if ack = t.data != t.NACKData; ack {
			t.Regs[t.ptr] = b
			t.ptr++
		}
	}
	if !ack {
		t.phase = phaseIdle
		return
	}
	t.sda = true
	t.phase = phaseAckOut
	if t.Stretch > 0 {
		t.holdUntil = t.b.now + t.Stretch
	}
}

// load puts the next register on the line, MSB first.
func (t *Target) load() {
	t.out = t.Regs[t.ptr]
	t.ptr++
	t.count = 0
	t.sda = t.out&0x80 == 0
}

func (t *Target) pullsSDA() bool {
	return t.sda || t.hung
}

func (t *Target) pullsSCL(now time.Duration) bool {
	return now < t.holdUntil
}
