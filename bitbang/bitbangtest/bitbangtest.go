// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbangtest simulates an open-drain I²C bus so a bit-banged master
// can be tested without hardware.
//
// The bus runs on a virtual clock which only advances when Sleep is called;
// pass Bus.Sleep as the master's delay function. Devices attached to the bus
// see the START and STOP conditions and the clock edges produced by the
// master, and pull the lines low as real devices would.
package bitbangtest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// device is a participant on the bus other than the master.
type device interface {
	start()
	stop()
	rise(sda gpio.Level)
	fall()
	pullsSDA() bool
	pullsSCL(now time.Duration) bool
}

// Bus is a simulated I²C bus with pull-up resistors on both lines.
type Bus struct {
	mu         sync.Mutex
	now        time.Duration
	sda        *Pin
	scl        *Pin
	devices    []device
	lastSDA    gpio.Level
	lastSCL    gpio.Level
	violations int
}

// NewBus returns an idle bus. Its SDA pin is GPIO2 and its SCL pin GPIO3.
func NewBus() *Bus {
	b := &Bus{lastSDA: gpio.High, lastSCL: gpio.High}
	b.sda = &Pin{b: b, name: "GPIO2", num: 2}
	b.scl = &Pin{b: b, name: "GPIO3", num: 3}
	return b
}

// SDA returns the pin the master uses for the data line.
func (b *Bus) SDA() *Pin {
	return b.sda
}

// SCL returns the pin the master uses for the clock line.
func (b *Bus) SCL() *Pin {
	return b.scl
}

// Sleep advances the virtual clock.
func (b *Bus) Sleep(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now += d
	b.update()
}

// Now returns the virtual time elapsed since the bus was created.
func (b *Bus) Now() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

// Violations returns how many times the master tried to drive a line high.
func (b *Bus) Violations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.violations
}

// Add attaches t to the bus.
func (b *Bus) Add(t *Target) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t.b = b
	b.devices = append(b.devices, t)
}

// HoldSCL makes a device hold the clock low for d. A negative d holds it
// forever.
func (b *Bus) HoldSCL(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := &clockHolder{forever: d < 0, until: b.now + d}
	b.devices = append(b.devices, h)
	b.update()
}

// HoldSDA makes a device hold the data line low until it saw the given number
// of clock pulses, like a device that lost track of the byte it was sending.
// A negative count holds it forever.
func (b *Bus) HoldSDA(pulses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = append(b.devices, &dataHolder{pulses: pulses})
	b.update()
}

// levels returns the wired-AND of the master and every device.
func (b *Bus) levels() (gpio.Level, gpio.Level) {
	sdaLow, sclLow := b.sda.low, b.scl.low
	for _, d := range b.devices {
		sdaLow = sdaLow || d.pullsSDA()
		sclLow = sclLow || d.pullsSCL(b.now)
	}
	return gpio.Level(!sdaLow), gpio.Level(!sclLow)
}

// update dispatches the edges caused by the last change on the bus. Devices
// may react to an edge by pulling SDA, so it loops until the lines settle.
func (b *Bus) update() {
	for i := 0; i < 8; i++ {
		sda, scl := b.levels()
		if sda == b.lastSDA && scl == b.lastSCL {
			return
		}
		prevSCL := b.lastSCL
		b.lastSDA, b.lastSCL = sda, scl
		switch {
		case scl != prevSCL && bool(scl):
			for _, d := range b.devices {
				d.rise(sda)
			}
		case scl != prevSCL:
			for _, d := range b.devices {
				d.fall()
			}
		case !bool(scl):
			// Data changes while the clock is low.
		case !bool(sda):
			for _, d := range b.devices {
				d.start()
			}
		default:
			for _, d := range b.devices {
				d.stop()
			}
		}
	}
}

// Pin is one end of a simulated line, as seen by the master.
//
// The master can release it with In or sink it with Out(gpio.Low). Out with
// gpio.High is refused and counted as a violation: the line is open-drain.
type Pin struct {
	b    *Bus
	name string
	num  int
	low  bool
	pull gpio.Pull
	flap int
	open bool
}

func (p *Pin) String() string {
	return p.name
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	if p.low {
		return "Out/Low"
	}
	return "In"
}

// In implements gpio.PinIn. It releases the line.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if edge != gpio.NoEdge {
		return errors.New("bitbangtest: edge detection not supported")
	}
	p.low = false
	if pull != gpio.PullNoChange {
		p.pull = pull
	}
	p.b.update()
	return nil
}

// Read implements gpio.PinIn. It returns the level of the line.
func (p *Pin) Read() gpio.Level {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if p.flap > 0 {
		// Alternates starting low.
		p.flap++
		return p.flap%2 == 1
	}
	sda, scl := p.b.levels()
	if p == p.b.sda {
		return sda
	}
	return scl
}

// WaitForEdge implements gpio.PinIn.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return p.pull
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out implements gpio.PinOut. Only gpio.Low is accepted.
func (p *Pin) Out(l gpio.Level) error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if l == gpio.High {
		p.b.violations++
		return fmt.Errorf("bitbangtest: %s driven high on an open-drain line", p.name)
	}
	p.low = !p.open
	p.b.update()
	return nil
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("bitbangtest: PWM not supported")
}

// Flap makes every following Read alternate between low and high, starting
// low, regardless of the line level. It simulates a noisy line.
func (p *Pin) Flap() {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.flap = 1
}

// Disconnect cuts the pin from its line, like a broken trace. Out still
// succeeds but the line only follows the pull-up and the devices.
func (p *Pin) Disconnect() {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.open = true
	p.low = false
	p.b.update()
}

type clockHolder struct {
	forever bool
	until   time.Duration
}

func (h *clockHolder) start() {}
func (h *clockHolder) stop() {}
func (h *clockHolder) rise(sda gpio.Level) {}
func (h *clockHolder) fall() {}
func (h *clockHolder) pullsSDA() bool { return false }

func (h *clockHolder) pullsSCL(now time.Duration) bool {
	return h.forever || now < h.until
}

type dataHolder struct {
	pulses int
}

func (h *dataHolder) start() {}
func (h *dataHolder) stop() {}

func (h *dataHolder) rise(sda gpio.Level) {
	if h.pulses > 0 {
		h.pulses--
	}
}

func (h *dataHolder) fall() {}
func (h *dataHolder) pullsSDA() bool { return h.pulses != 0 }
func (h *dataHolder) pullsSCL(now time.Duration) bool { return false }

var _ gpio.PinIO = &Pin{}
