// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbang implements an I²C bus master over two general purpose I/O
// lines.
//
// SDA and SCL are emulated as open-drain lines: a line is either released,
// letting the external pull-up resistor bring it high, or asserted low. A line
// is never driven high. Every delay is a busy wait on the calling goroutine,
// so a transaction is only as accurate as the delay primitive; by default
// cpu.Nanospin is used.
//
// Dev implements i2c.BusCloser so any periph driver can use it, and also
// exposes register oriented Read and Write, a bus Scan, a manual Reset and
// running statistics.
//
// Only 7-bit addressing and the Standard (100kHz) and Fast (400kHz) speed
// grades are supported. Multi-master arbitration is not supported.
//
// Specification
//
//	https://www.nxp.com/docs/en/user-guide/UM10204.pdf
package bitbang
