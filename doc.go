// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package softi2c is a container for a software I²C bus master.
//
// The bus itself is in package bitbang. Package scanview displays scan results
// and cmd/softi2c exposes both on the command line.
package softi2c
