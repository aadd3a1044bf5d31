// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbangtest

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// master drives the bus by hand, one bit at a time.
type master struct {
	t *testing.T
	b *Bus
}

func (m *master) set(p *Pin, l gpio.Level) {
	var err error
	if l {
		err = p.In(gpio.PullNoChange, gpio.NoEdge)
	} else {
		err = p.Out(gpio.Low)
	}
	if err != nil {
		m.t.Fatal(err)
	}
	m.b.Sleep(time.Microsecond)
}

func (m *master) start() {
	m.set(m.b.SDA(), gpio.Low)
	m.set(m.b.SCL(), gpio.Low)
}

func (m *master) stop() {
	m.set(m.b.SDA(), gpio.Low)
	m.set(m.b.SCL(), gpio.High)
	m.set(m.b.SDA(), gpio.High)
}

// clock generates one pulse with SDA at l and returns SDA sampled while SCL is
// high.
func (m *master) clock(l gpio.Level) gpio.Level {
	m.set(m.b.SDA(), l)
	m.set(m.b.SCL(), gpio.High)
	got := m.b.SDA().Read()
	m.set(m.b.SCL(), gpio.Low)
	return got
}

func (m *master) write(v byte) bool {
	for i := 7; i >= 0; i-- {
		m.clock(v&(1<<uint(i)) != 0)
	}
	return m.clock(gpio.High) == gpio.Low
}

func (m *master) read(ack bool) byte {
	var v byte
	for i := 7; i >= 0; i-- {
		if m.clock(gpio.High) {
			v |= 1 << uint(i)
		}
	}
	m.clock(gpio.Level(!ack))
	return v
}

func TestTarget(t *testing.T) {
	b := NewBus()
	tg := &Target{Addr: 0x21}
	b.Add(tg)
	m := &master{t: t, b: b}

	m.start()
	if !m.write(0x21 << 1) {
		t.Fatal("address not acknowledged")
	}
	if !m.write(0x05) || !m.write(0xC3) || !m.write(0x3C) {
		t.Fatal("data not acknowledged")
	}
	m.stop()
	if tg.Regs[5] != 0xC3 || tg.Regs[6] != 0x3C {
		t.Fatalf("got %#x %#x", tg.Regs[5], tg.Regs[6])
	}

	m.start()
	if !m.write(0x21 << 1) {
		t.Fatal("address not acknowledged")
	}
	m.write(0x05)
	// Repeated START.
	m.set(b.SDA(), gpio.High)
	m.set(b.SCL(), gpio.High)
	m.start()
	if !m.write(0x21<<1 | 1) {
		t.Fatal("read address not acknowledged")
	}
	if v := m.read(true); v != 0xC3 {
		t.Fatalf("got %#x", v)
	}
	if v := m.read(false); v != 0x3C {
		t.Fatalf("got %#x", v)
	}
	m.stop()

	m.start()
	if m.write(0x22 << 1) {
		t.Fatal("wrong address acknowledged")
	}
	m.stop()
	if b.Violations() != 0 {
		t.Fatal("unexpected violation")
	}
}

func TestBus_HoldSCL(t *testing.T) {
	b := NewBus()
	b.HoldSCL(time.Millisecond)
	if b.SCL().Read() != gpio.Low {
		t.Fatal("SCL should be held")
	}
	b.Sleep(time.Millisecond)
	if b.SCL().Read() != gpio.High {
		t.Fatal("SCL should be released")
	}
}

func TestBus_HoldSDA(t *testing.T) {
	b := NewBus()
	m := &master{t: t, b: b}
	b.HoldSDA(2)
	if b.SDA().Read() != gpio.Low {
		t.Fatal("SDA should be held")
	}
	m.set(b.SCL(), gpio.Low)
	m.set(b.SCL(), gpio.High)
	if b.SDA().Read() != gpio.Low {
		t.Fatal("SDA should still be held")
	}
	m.set(b.SCL(), gpio.Low)
	m.set(b.SCL(), gpio.High)
	if b.SDA().Read() != gpio.High {
		t.Fatal("SDA should be released")
	}
}

func TestPin(t *testing.T) {
	b := NewBus()
	p := b.SDA()
	if p.String() != "GPIO2" || p.Name() != "GPIO2" || p.Number() != 2 {
		t.Fatal(p)
	}
	if err := p.Out(gpio.High); err == nil {
		t.Fatal("driving high must fail")
	}
	if b.Violations() != 1 {
		t.Fatal("violation not counted")
	}
	if err := p.Out(gpio.Low); err != nil {
		t.Fatal(err)
	}
	if p.Function() != "Out/Low" || p.Read() != gpio.Low {
		t.Fatal(p.Function())
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		t.Fatal(err)
	}
	if p.Function() != "In" || p.Read() != gpio.High || p.Pull() != gpio.PullUp {
		t.Fatal(p.Function())
	}
	if err := p.In(gpio.PullNoChange, gpio.BothEdges); err == nil {
		t.Fatal("edges are not supported")
	}
	if err := p.PWM(gpio.DutyHalf, 0); err == nil {
		t.Fatal("PWM is not supported")
	}
	p.Flap()
	if p.Read() != gpio.Low || p.Read() != gpio.High || p.Read() != gpio.Low {
		t.Fatal("expected alternating levels")
	}
}

func TestPin_Disconnect(t *testing.T) {
	b := NewBus()
	p := b.SCL()
	if err := p.Out(gpio.Low); err != nil {
		t.Fatal(err)
	}
	p.Disconnect()
	if p.Read() != gpio.High {
		t.Fatal("a disconnected pin must release its line")
	}
	if err := p.Out(gpio.Low); err != nil {
		t.Fatal(err)
	}
	if p.Function() != "In" || p.Read() != gpio.High {
		t.Fatal(p.Function())
	}
	b.HoldSCL(-1)
	if p.Read() != gpio.Low {
		t.Fatal("the line must still follow the devices")
	}
}
