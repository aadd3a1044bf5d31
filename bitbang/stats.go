// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

// Stats are the counters of the events seen on a bus. Counters only increase.
//
// Every failure increments a counter, so the health of a bus can be followed
// without logs.
type Stats struct {
	Starts         uint64 // START conditions issued
	RepeatedStarts uint64 // repeated START conditions issued
	Stops          uint64 // STOP conditions issued
	BytesWritten   uint64 // payload bytes acknowledged by a device
	BytesRead      uint64 // payload bytes received from a device

	AddressNACKs  uint64 // address frame not acknowledged
	RegisterNACKs uint64 // register address not acknowledged
	RestartNACKs  uint64 // read address after a repeated START not acknowledged
	BadTransfers  uint64 // payload byte NACKed or corrupted

	BusResets        uint64 // SDA released after clock pulses, or manual Reset
	UnknownBusErrors uint64
	BusLockups       uint64
	FailedStarts     uint64
	FailedStops      uint64
	DevicesHung      uint64 // SDA held low by a device

	ClockStretches       uint64 // device held SCL low after it was released
	ClockStretchTimeouts uint64 // device held SCL low for too long
}

// Config is the configuration of a bus, as derived by Configure.
type Config struct {
	SDA    int // SDA pin number
	SCL    int // SCL pin number
	Timing Timing
}
