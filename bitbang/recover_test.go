// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/softi2c/bitbang/bitbangtest"
)

func TestClockStretch(t *testing.T) {
	tg := &bitbangtest.Target{Addr: 0x1C, Stretch: 20 * time.Millisecond}
	d, b := newDev(t, tg)
	start := b.Now()
	if _, err := d.Write(0x1C, 3, []byte{0x42}); err != nil {
		t.Fatal(err)
	}
	if tg.Regs[3] != 0x42 {
		t.Fatal("write failed")
	}
	// Address, register and data bytes were each stretched once.
	s := d.Stats()
	if s.ClockStretches != 3 || s.ClockStretchTimeouts != 0 {
		t.Fatalf("%+v", s)
	}
	if el := b.Now() - start; el < 60*time.Millisecond {
		t.Fatalf("stretching took only %s", el)
	}
}

func TestClockStretch_timeout(t *testing.T) {
	tg := &bitbangtest.Target{Addr: 0x1C, Stretch: time.Second}
	d, b := newDev(t, tg)
	start := b.Now()
	ack, err := d.Write(0x1C, 3, []byte{0x42})
	if !errors.Is(err, ErrClockTimeout) || ack {
		t.Fatal(ack, err)
	}
	if !Fatal(err) {
		t.Fatal("a clock timeout is fatal")
	}
	if el := b.Now() - start; el < DefaultStretchTimeout || el > time.Second {
		t.Fatalf("gave up after %s", el)
	}
	// No STOP is attempted while the device owns the clock.
	want := Stats{Starts: 1, ClockStretches: 1, ClockStretchTimeouts: 1}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Fatalf("Stats mismatch (-want +got):\n%s", diff)
	}
	if b.SDA().Function() != "In" || b.SCL().Function() != "In" {
		t.Fatal("lines not released")
	}
}

func TestClockStretch_customTimeout(t *testing.T) {
	b := bitbangtest.NewBus()
	b.Add(&bitbangtest.Target{Addr: 0x1C, Stretch: 20 * time.Millisecond})
	d, err := New(&Opts{SDA: b.SDA(), SCL: b.SCL(), StretchTimeout: 5 * time.Millisecond, Delay: b.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Write(0x1C, 0, []byte{1}); !errors.Is(err, ErrClockTimeout) {
		t.Fatal(err)
	}
}

func TestConfigure_busState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *bitbangtest.Bus)
		err   error
		want  Stats
	}{
		{
			name:  "clock held",
			setup: func(b *bitbangtest.Bus) { b.HoldSCL(-1) },
			err:   ErrClockTimeout,
			want:  Stats{FailedStops: 1, ClockStretchTimeouts: 1},
		},
		{
			name: "locked",
			setup: func(b *bitbangtest.Bus) {
				b.HoldSDA(-1)
				b.HoldSCL(-1)
			},
			err:  ErrBusLockup,
			want: Stats{FailedStops: 1, BusLockups: 1},
		},
		{
			name:  "data held",
			setup: func(b *bitbangtest.Bus) { b.HoldSDA(-1) },
			err:   ErrDeviceHung,
			want:  Stats{FailedStops: 1, DevicesHung: 1},
		},
		{
			name:  "noisy",
			setup: func(b *bitbangtest.Bus) { b.SDA().Flap() },
			err:   ErrUnknownBusState,
			want:  Stats{FailedStops: 1, UnknownBusErrors: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bitbangtest.NewBus()
			tt.setup(b)
			d := &Dev{}
			err := d.Configure(&Opts{SDA: b.SDA(), SCL: b.SCL(), Delay: b.Sleep})
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if diff := cmp.Diff(tt.want, d.Stats()); diff != "" {
				t.Fatalf("Stats mismatch (-want +got):\n%s", diff)
			}
			// The bus stays configured so it can be reset.
			if d.Config().SDA != 2 {
				t.Fatal("not configured")
			}
			if b.Violations() != 0 {
				t.Fatal("line driven high")
			}
		})
	}
}

func TestConfigure_recovery(t *testing.T) {
	b := bitbangtest.NewBus()
	tg := &bitbangtest.Target{Addr: 0x1C}
	b.Add(tg)
	// A device released SDA after 3 clocks.
	b.HoldSDA(3)
	d, err := New(&Opts{SDA: b.SDA(), SCL: b.SCL(), Delay: b.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Stops: 1, BusResets: 1}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Fatalf("Stats mismatch (-want +got):\n%s", diff)
	}
	if _, err := d.Write(0x1C, 9, []byte{7}); err != nil {
		t.Fatal(err)
	}
	if tg.Regs[9] != 7 {
		t.Fatal("write failed")
	}
}

func TestDev_Reset(t *testing.T) {
	d, b := newDev(t)
	b.HoldSDA(3)
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if s := d.Stats(); s.BusResets != 1 {
		t.Fatalf("%+v", s)
	}
	if _, err := d.Scan(); err != nil {
		t.Fatal(err)
	}
}

func TestDev_Reset_clockHeld(t *testing.T) {
	d, b := newDev(t)
	b.HoldSCL(-1)
	if err := d.Reset(); !errors.Is(err, ErrClockTimeout) {
		t.Fatal(err)
	}
	if s := d.Stats(); s.BusResets != 0 || s.ClockStretchTimeouts != 1 {
		t.Fatalf("%+v", s)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		sda, scl gpio.Level
		want     busState
	}{
		{gpio.High, gpio.High, busIdle},
		{gpio.Low, gpio.High, busDataHeld},
		{gpio.High, gpio.Low, busClockHeld},
		{gpio.Low, gpio.Low, busLocked},
	}
	for _, tt := range tests {
		if got := classify(tt.sda, tt.scl); got != tt.want {
			t.Errorf("classify(%s, %s) = %s, want %s", tt.sda, tt.scl, got, tt.want)
		}
	}
}

func TestBusState_String(t *testing.T) {
	for s, want := range map[busState]string{
		busIdle:      "idle",
		busDataHeld:  "SDA held low",
		busClockHeld: "SCL held low",
		busLocked:    "locked",
		busUnknown:   "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d: got %q, want %q", s, got, want)
		}
	}
}

func TestFatal(t *testing.T) {
	for _, err := range []error{ErrClockTimeout, ErrDeviceHung, ErrBusLockup} {
		if !Fatal(err) {
			t.Errorf("%v should be fatal", err)
		}
	}
	for _, err := range []error{nil, ErrAddressNACK, ErrRegisterNACK, ErrBadTransfer, ErrUnknownBusState, ErrInvalidArgument} {
		if Fatal(err) {
			t.Errorf("%v should not be fatal", err)
		}
	}
}
