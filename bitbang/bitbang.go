// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/cpu"
)

// MaxAddr is the highest 7-bit device address.
const MaxAddr uint16 = 0x7F

// Opts contains the options to configure a bus.
type Opts struct {
	SDA gpio.PinIO // data line
	SCL gpio.PinIO // clock line

	// Frequency is the SCL clock frequency. Defaults to StandardMode. Cannot
	// exceed FastMode.
	Frequency physic.Frequency
	// StretchTimeout is how long a device may stretch the clock. Defaults to
	// DefaultStretchTimeout.
	StretchTimeout time.Duration
	// PullUp enables the internal pull-up of the pins while they are released.
	// It is usually too weak for Fast-mode; prefer external resistors.
	PullUp bool
	// Delay busy waits for the given duration. Defaults to cpu.Nanospin.
	Delay func(time.Duration)
}

// AddressBook tells, for every 7-bit address, whether a device acknowledged
// it.
type AddressBook [MaxAddr + 1]bool

// Present returns the addresses that were acknowledged, in increasing order.
func (a *AddressBook) Present() []uint16 {
	var out []uint16
	for addr, ok := range a {
		if ok {
			out = append(out, uint16(addr))
		}
	}
	return out
}

// New returns a bus configured with opts.
func New(opts *Opts) (*Dev, error) {
	d := &Dev{}
	if err := d.Configure(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is an I²C master bit-banging two GPIOs.
//
// The zero value is an unconfigured bus; every operation fails with
// ErrNotConfigured until Configure succeeds.
//
// Operations are serialized. Once a transaction started toggling the lines it
// runs to its STOP condition or to a fatal error; it cannot be cancelled.
type Dev struct {
	mu         sync.Mutex
	configured bool
	sda        *line
	scl        *line
	t          Timing
	delay      func(time.Duration)
	stats      Stats
	ioErr      error // first pin error of the current operation
}

// Configure validates opts, derives the bus timing and puts the bus in the
// idle state with a STOP condition.
//
// It can be called again to reconfigure the bus; the previous lines are
// released first. If the final STOP fails the bus stays configured and the
// error is returned, so Reset can be tried.
func (d *Dev) Configure(opts *Opts) error {
	if opts == nil {
		return fmt.Errorf("%w: no options", ErrInvalidArgument)
	}
	if err := checkPin("SDA", opts.SDA); err != nil {
		return err
	}
	if err := checkPin("SCL", opts.SCL); err != nil {
		return err
	}
	if opts.SDA.Name() == opts.SCL.Name() {
		return fmt.Errorf("%w: SDA and SCL are both %s", ErrInvalidArgument, opts.SDA)
	}
	f := opts.Frequency
	if f == 0 {
		f = StandardMode
	}
	t, err := NewTiming(f, opts.StretchTimeout)
	if err != nil {
		return err
	}
	pull := gpio.PullNoChange
	if opts.PullUp {
		pull = gpio.PullUp
	}
	delay := opts.Delay
	if delay == nil {
		delay = cpu.Nanospin
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configured {
		// The previous pins may not be used again.
		d.releaseLines()
	}
	d.sda = &line{p: opts.SDA, pull: pull}
	d.scl = &line{p: opts.SCL, pull: pull}
	d.t = t
	d.delay = delay
	d.configured = true
	if err := d.begin(); err != nil {
		return err
	}
	defer runtime.UnlockOSThread()
	return d.stop()
}

func (d *Dev) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return "bitbang/i2c(unconfigured)"
	}
	return fmt.Sprintf("bitbang/i2c(%s, %s)", d.scl.p, d.sda.p)
}

// Scan addresses every 7-bit address for a write and reports which ones were
// acknowledged.
//
// A bus error aborts the scan; the returned book is then incomplete.
func (d *Dev) Scan() (AddressBook, error) {
	var book AddressBook
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return book, err
	}
	defer runtime.UnlockOSThread()
	for addr := range book {
		err := d.transaction(func() error {
			ack, err := d.writeAddress(uint16(addr), false)
			book[addr] = ack
			return err
		})
		if err != nil {
			return book, err
		}
	}
	return book, nil
}

// Write writes data to the register reg of the device at addr.
//
// It returns the acknowledge of the last byte, which is always true when err
// is nil.
func (d *Dev) Write(addr uint16, reg byte, data []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return false, err
	}
	defer runtime.UnlockOSThread()
	if err := checkAddr(addr); err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, fmt.Errorf("%w: nothing to write", ErrInvalidArgument)
	}
	err := d.transaction(func() error {
		if err := d.selectRegister(addr, reg); err != nil {
			return err
		}
		return d.writeData(data)
	})
	return err == nil, err
}

// Read reads len(r) bytes starting at the register reg of the device at addr.
//
// The register is selected with a write, then the bytes are read after a
// repeated START. The last byte is NACKed.
func (d *Dev) Read(addr uint16, reg byte, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	defer runtime.UnlockOSThread()
	if err := checkAddr(addr); err != nil {
		return err
	}
	if len(r) == 0 {
		return fmt.Errorf("%w: nothing to read", ErrInvalidArgument)
	}
	return d.transaction(func() error {
		if err := d.selectRegister(addr, reg); err != nil {
			return err
		}
		if err := d.repeatedStart(); err != nil {
			return err
		}
		if err := d.address(addr, true, true); err != nil {
			return err
		}
		return d.readData(r)
	})
}

// Tx implements i2c.Bus.
//
// w is written then r is read after a repeated START. When both are empty
// only the address is sent, which probes for the device.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	defer runtime.UnlockOSThread()
	if err := checkAddr(addr); err != nil {
		return err
	}
	return d.transaction(func() error {
		if len(w) != 0 || len(r) == 0 {
			if err := d.address(addr, false, false); err != nil {
				return err
			}
			if err := d.writeData(w); err != nil {
				return err
			}
		}
		if len(r) == 0 {
			return nil
		}
		restart := len(w) != 0
		if restart {
			if err := d.repeatedStart(); err != nil {
				return err
			}
		}
		if err := d.address(addr, true, restart); err != nil {
			return err
		}
		return d.readData(r)
	})
}

// Reset clocks nine pulses on SCL so a device stuck in the middle of a byte
// releases SDA.
//
// Unlike the recovery done after every STOP, it does not look at the lines
// first.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	defer runtime.UnlockOSThread()
	for i := 0; i < recoveryPulses; i++ {
		if err := d.pulse(); err != nil {
			return err
		}
	}
	d.stats.BusResets++
	return nil
}

// SetSpeed implements i2c.Bus.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return ErrNotConfigured
	}
	t, err := NewTiming(f, d.t.StretchTimeout)
	if err != nil {
		return err
	}
	d.t = t
	return nil
}

// Close implements i2c.BusCloser.
//
// It leaves both lines released. The bus must be configured again to be used.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	defer runtime.UnlockOSThread()
	err := d.stop()
	d.releaseLines()
	d.configured = false
	if err == nil {
		err = d.ioErr
	}
	return err
}

// Halt implements conn.Resource.
//
// It releases both lines without a STOP condition. The bus stays configured.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	defer runtime.UnlockOSThread()
	d.releaseLines()
	return d.ioErr
}

// SCL implements i2c.Pins.
func (d *Dev) SCL() gpio.PinIO {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scl == nil {
		return gpio.INVALID
	}
	return d.scl.p
}

// SDA implements i2c.Pins.
func (d *Dev) SDA() gpio.PinIO {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sda == nil {
		return gpio.INVALID
	}
	return d.sda.p
}

// Stats returns a copy of the counters.
func (d *Dev) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Config returns the current configuration. It is the zero value until the bus
// is configured.
func (d *Dev) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return Config{}
	}
	return Config{SDA: d.sda.p.Number(), SCL: d.scl.p.Number(), Timing: d.t}
}

//

// begin starts an operation. On success the caller must call
// runtime.UnlockOSThread when done.
func (d *Dev) begin() error {
	if !d.configured {
		return ErrNotConfigured
	}
	d.ioErr = nil
	// Keep the goroutine on one thread so it is not migrated mid-pulse.
	runtime.LockOSThread()
	return nil
}

// transaction owns the bus for the duration of fn: the bus is brought to idle,
// a START is issued and a STOP is always attempted once fn returns.
//
// When both fn and the final STOP fail, both errors are reported, fn's first.
// After a clock timeout the device owns SCL, so both lines are only released.
func (d *Dev) transaction(fn func() error) (err error) {
	if err := d.stop(); err != nil {
		return err
	}
	if err := d.start(); err != nil {
		return err
	}
	defer func() {
		if errors.Is(err, ErrClockTimeout) {
			d.releaseLines()
			return
		}
		d.ioErr = nil
		if serr := d.stop(); serr != nil {
			if err == nil {
				err = serr
			} else {
				err = fmt.Errorf("%w; stop: %w", err, serr)
			}
		}
	}()
	return fn()
}

// address sends the address frame. restart selects the error reported on
// NACK.
func (d *Dev) address(addr uint16, read, restart bool) error {
	ack, err := d.writeAddress(addr, read)
	if err != nil {
		return err
	}
	if ack {
		return nil
	}
	if restart {
		d.stats.RestartNACKs++
		return fmt.Errorf("%w: %#02x", ErrRestartNACK, addr)
	}
	d.stats.AddressNACKs++
	return fmt.Errorf("%w: %#02x", ErrAddressNACK, addr)
}

// selectRegister addresses the device for a write and sends the register
// address.
func (d *Dev) selectRegister(addr uint16, reg byte) error {
	if err := d.address(addr, false, false); err != nil {
		return err
	}
	ack, err := d.writeByte(reg)
	if err != nil {
		return err
	}
	if !ack {
		d.stats.RegisterNACKs++
		return fmt.Errorf("%w: %#02x at %#02x", ErrRegisterNACK, reg, addr)
	}
	return nil
}

func (d *Dev) writeData(w []byte) error {
	for i, b := range w {
		ack, err := d.writeByte(b)
		if err != nil {
			return err
		}
		if !ack {
			d.stats.BadTransfers++
			return fmt.Errorf("%w: byte %d of %d not acknowledged", ErrBadTransfer, i+1, len(w))
		}
		d.stats.BytesWritten++
	}
	return nil
}

func (d *Dev) readData(r []byte) error {
	for i := range r {
		b, err := d.readByte(i < len(r)-1)
		if err != nil {
			if errors.Is(err, ErrDeviceHung) {
				d.stats.BadTransfers++
				return fmt.Errorf("%w: byte %d of %d: %w", ErrBadTransfer, i+1, len(r), err)
			}
			return err
		}
		r[i] = b
		d.stats.BytesRead++
	}
	return nil
}

func checkAddr(addr uint16) error {
	if addr > MaxAddr {
		return fmt.Errorf("%w: address %#x is not a 7-bit address", ErrInvalidArgument, addr)
	}
	return nil
}

func checkPin(name string, p gpio.PinIO) error {
	if p == nil || p == gpio.INVALID {
		return fmt.Errorf("%w: %s pin is not set", ErrInvalidArgument, name)
	}
	if p.Number() < 0 {
		return fmt.Errorf("%w: %s pin %s has no GPIO number", ErrInvalidArgument, name, p)
	}
	return nil
}

var _ i2c.BusCloser = &Dev{}
var _ i2c.Pins = &Dev{}
var _ conn.Resource = &Dev{}
