// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

const (
	// StandardMode is the Standard-mode speed grade.
	StandardMode = 100 * physic.KiloHertz
	// FastMode is the Fast-mode speed grade. It is the fastest speed supported.
	FastMode = 400 * physic.KiloHertz

	// DefaultStretchTimeout is how long a device may hold SCL low.
	DefaultStretchTimeout = 500 * time.Millisecond

	minFrequency = 100 * physic.Hertz

	// Time for a line to settle after it was released.
	responseTime = time.Microsecond
)

// gradeLimits are the minimum timings of one speed grade, UM10204 table 10.
type gradeLimits struct {
	hdSta time.Duration // hold time of a (repeated) START
	suSta time.Duration // setup time of a repeated START
	suSto time.Duration // setup time of a STOP
	buf   time.Duration // bus free time between a STOP and a START
}

var (
	standardLimits = gradeLimits{
		hdSta: 4000 * time.Nanosecond,
		suSta: 4700 * time.Nanosecond,
		suSto: 4000 * time.Nanosecond,
		buf:   4700 * time.Nanosecond,
	}
	fastLimits = gradeLimits{
		hdSta: 600 * time.Nanosecond,
		suSta: 600 * time.Nanosecond,
		suSto: 600 * time.Nanosecond,
		buf:   1300 * time.Nanosecond,
	}
)

// Timing is the set of delays used to toggle the lines at a given clock
// frequency.
type Timing struct {
	// Requested is the frequency that was asked for.
	Requested physic.Frequency
	// Actual is the frequency Low and High produce. It may differ from
	// Requested since both are rounded up.
	Actual physic.Frequency

	Low  time.Duration // SCL low period
	High time.Duration // SCL high period

	HoldStart          time.Duration // t_HD;STA
	SetupRepeatedStart time.Duration // t_SU;STA
	SetupStop          time.Duration // t_SU;STO
	BusFree            time.Duration // t_BUF
	Response           time.Duration // line settle time after a release

	StretchTimeout time.Duration // longest clock stretching accepted
	StretchPoll    time.Duration // SCL polling interval while stretched
}

// NewTiming derives the delays for the clock frequency f.
//
// The clock period is split two thirds low and one third high, since the
// minimum low period is the larger one in every speed grade. stretch is the
// clock stretching timeout; 0 selects DefaultStretchTimeout.
func NewTiming(f physic.Frequency, stretch time.Duration) (Timing, error) {
	if f > FastMode {
		return Timing{}, fmt.Errorf("%w: speed %s; maximum supported clock is %s", ErrInvalidArgument, f, FastMode)
	}
	if f < minFrequency {
		return Timing{}, fmt.Errorf("%w: speed %s; minimum supported clock is %s; did you forget to multiply by physic.KiloHertz?", ErrInvalidArgument, f, minFrequency)
	}
	if stretch < 0 {
		return Timing{}, fmt.Errorf("%w: negative clock stretching timeout %s", ErrInvalidArgument, stretch)
	}
	if stretch == 0 {
		stretch = DefaultStretchTimeout
	}
	limits := fastLimits
	if f <= StandardMode {
		limits = standardLimits
	}
	// period = Second*Hertz/f, computed without rounding.
	num := int64(time.Second) * int64(physic.Hertz)
	den := int64(f)
	t := Timing{
		Requested:          f,
		Low:                time.Duration(ceilDiv(2*num, 3*den)),
		High:               time.Duration(ceilDiv(num, 3*den)),
		HoldStart:          limits.hdSta,
		SetupRepeatedStart: limits.suSta,
		SetupStop:          limits.suSto,
		BusFree:            limits.buf,
		Response:           responseTime,
		StretchTimeout:     stretch,
		StretchPoll:        ceilDuration(stretch, 10),
	}
	t.Actual = physic.Frequency(num / int64(t.Low+t.High))
	return t, nil
}

// Period returns the duration of one full clock cycle.
func (t Timing) Period() time.Duration {
	return t.Low + t.High
}

func (t Timing) String() string {
	return fmt.Sprintf("%s (low %s, high %s)", t.Actual, t.Low, t.High)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

func ceilDuration(d time.Duration, n int64) time.Duration {
	return time.Duration(ceilDiv(int64(d), n))
}
