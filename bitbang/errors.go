// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import "errors"

var (
	// ErrInvalidArgument is returned for an out of range pin, speed, address or
	// byte count. No bus activity happens in this case.
	ErrInvalidArgument = errors.New("bitbang: invalid argument")
	// ErrNotConfigured is returned by every operation on a Dev that was never
	// configured.
	ErrNotConfigured = errors.New("bitbang: bus not configured")

	// ErrAddressNACK is returned when no device acknowledged the address frame.
	ErrAddressNACK = errors.New("bitbang: device did not acknowledge address")
	// ErrRegisterNACK is returned when the device did not acknowledge the
	// register address.
	ErrRegisterNACK = errors.New("bitbang: device did not acknowledge register")
	// ErrRestartNACK is returned when the device did not acknowledge the read
	// address sent after a repeated START.
	ErrRestartNACK = errors.New("bitbang: device did not acknowledge address after repeated start")
	// ErrBadTransfer is returned when the device NACKed or misbehaved while
	// payload bytes were exchanged.
	ErrBadTransfer = errors.New("bitbang: bad transfer")

	// ErrStartCondition is returned when a START condition did not register on
	// the lines. The usual cause is a bus error left by a previous STOP.
	ErrStartCondition = errors.New("bitbang: failed start condition")
	// ErrRepeatedStart is returned when a repeated START is requested while the
	// master does not hold the bus.
	ErrRepeatedStart = errors.New("bitbang: repeated start outside of a transaction")

	// ErrDeviceHung is returned when a device keeps SDA low past the nine clock
	// pulses a device may need to complete a pending byte. The device must be
	// power cycled.
	ErrDeviceHung = errors.New("bitbang: device is holding SDA low")
	// ErrClockTimeout is returned when a device stretches the clock beyond the
	// configured timeout. The transaction is abandoned and the device must be
	// power cycled.
	ErrClockTimeout = errors.New("bitbang: clock stretching timeout")
	// ErrBusLockup is returned when both SDA and SCL are held low.
	ErrBusLockup = errors.New("bitbang: bus lockup, SDA and SCL held low")
	// ErrUnknownBusState is returned when the line levels could not be
	// classified.
	ErrUnknownBusState = errors.New("bitbang: unknown bus state")
)

// Fatal returns true if err means a device has to be power cycled before the
// bus can be used again.
func Fatal(err error) bool {
	return errors.Is(err, ErrClockTimeout) || errors.Is(err, ErrDeviceHung) || errors.Is(err, ErrBusLockup)
}
