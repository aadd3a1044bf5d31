// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/softi2c/bitbang"
)

// parseSpeed accepts a speed in kHz or the name of a speed grade.
func parseSpeed(s string) (physic.Frequency, error) {
	switch s {
	case "100", "i2c_standard_mode":
		return bitbang.StandardMode, nil
	case "400", "i2c_full_speed":
		return bitbang.FastMode, nil
	default:
		return 0, fmt.Errorf("-speed must be i2c_standard_mode (100) or i2c_full_speed (400), got %q", s)
	}
}

// parseHex parses one byte written as 0xNN or 0XNN.
func parseHex(s string) (byte, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, fmt.Errorf("%q is not a hex number such as 0xFF", s)
	}
	v, err := strconv.ParseUint(s[2:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a hex byte such as 0xFF", s)
	}
	return byte(v), nil
}

// parseHexList parses a comma separated list of hex bytes.
func parseHexList(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty list")
	}
	items := strings.Split(s, ",")
	out := make([]byte, 0, len(items))
	for _, item := range items {
		b, err := parseHex(item)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// parseAddr parses a 7-bit device address.
func parseAddr(s string) (uint16, error) {
	b, err := parseHex(s)
	if err != nil {
		return 0, err
	}
	if uint16(b) > bitbang.MaxAddr {
		return 0, fmt.Errorf("device %s is not a 7-bit address", s)
	}
	return uint16(b), nil
}

// formatBytes prints b as [0x01, 0xFF].
func formatBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%02X", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
