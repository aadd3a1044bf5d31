// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scanview displays the result of an I²C bus scan.
//
// Dev prints an i2cdetect style table to a terminal, with a strip of ANSI
// colored blocks next to each row. Image renders the same table as an image,
// suitable for a PNG file or a display.Drawer.
package scanview

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/softi2c/bitbang"
)

const (
	columns = 16
	rows    = (int(bitbang.MaxAddr) + 1) / columns
)

var (
	// Found is the color of an address that acknowledged.
	Found = color.NRGBA{0x33, 0xB3, 0x4D, 0xFF}
	// Empty is the color of an address that did not.
	Empty = color.NRGBA{0x30, 0x30, 0x30, 0xFF}
)

// Opts represents the options available for this view.
type Opts struct {
	// W is where the table is written. Defaults to stdout.
	W io.Writer
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// NoColor omits the colored blocks.
	NoColor bool

	_ struct{}
}

// Dev prints scan results to a terminal.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	color   bool

	buf bytes.Buffer
}

// New returns a Dev that prints to the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{w: w, palette: *p, color: !opts.NoColor}
}

func (d *Dev) String() string {
	return "ScanView"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	if !d.color {
		return nil
	}
	_, err := io.WriteString(d.w, "\033[0m")
	return err
}

// Write prints the table for book.
func (d *Dev) Write(book *bitbang.AddressBook) error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("    ")
	for c := 0; c < columns; c++ {
		_, _ = fmt.Fprintf(&d.buf, "  %x", c)
	}
	_, _ = d.buf.WriteString("\n")
	for r := 0; r < rows; r++ {
		_, _ = fmt.Fprintf(&d.buf, "%02x:", r*columns)
		for c := 0; c < columns; c++ {
			if addr := r*columns + c; book[addr] {
				_, _ = fmt.Fprintf(&d.buf, " %02x", addr)
			} else {
				_, _ = d.buf.WriteString(" --")
			}
		}
		if d.color {
			_, _ = d.buf.WriteString("  ")
			for c := 0; c < columns; c++ {
				cl := Empty
				if book[r*columns+c] {
					cl = Found
				}
				_, _ = io.WriteString(&d.buf, d.palette.Block(cl))
			}
			_, _ = d.buf.WriteString("\033[0m")
		}
		_, _ = d.buf.WriteString("\n")
	}
	_, _ = fmt.Fprintf(&d.buf, "Address detected: %s\n", Format(book.Present()))
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Format formats addresses the way i2c tools print them: [0x1c 0x50].
func Format(addrs []uint16) string {
	var b bytes.Buffer
	_ = b.WriteByte('[')
	for i, a := range addrs {
		if i != 0 {
			_ = b.WriteByte(' ')
		}
		_, _ = fmt.Fprintf(&b, "0x%02x", a)
	}
	_ = b.WriteByte(']')
	return b.String()
}

var _ fmt.Stringer = &Dev{}
