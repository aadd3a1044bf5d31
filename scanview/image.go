// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scanview

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
	"periph.io/x/softi2c/bitbang"
)

// CellSize is the side of one address cell in pixels.
const CellSize = 24

// ImageOpts represents the options to render a table as an image.
type ImageOpts struct {
	// Face is the font of the labels. Defaults to Go Regular at 11 points.
	Face font.Face
}

// Image renders book as a table of 16 columns and 8 rows, plus one row and
// one column of labels.
func Image(book *bitbang.AddressBook, opts *ImageOpts) (image.Image, error) {
	face := opts.Face
	if face == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, err
		}
		face = truetype.NewFace(f, &truetype.Options{Size: 11})
	}
	dc := gg.NewContext(CellSize*(columns+1), CellSize*(rows+1))
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetLineWidth(1)

	const half = CellSize / 2
	for c := 0; c < columns; c++ {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%x", c), float64(CellSize*(c+1)+half), half, 0.5, 0.5)
	}
	for r := 0; r < rows; r++ {
		y := float64(CellSize * (r + 1))
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%02x", r*columns), half, y+half, 0.5, 0.5)
		for c := 0; c < columns; c++ {
			x := float64(CellSize * (c + 1))
			addr := r*columns + c
			if book[addr] {
				dc.SetColor(Found)
				dc.DrawRectangle(x, y, CellSize, CellSize)
				dc.Fill()
				dc.SetRGB(0, 0, 0)
				dc.DrawStringAnchored(fmt.Sprintf("%02x", addr), x+half, y+half, 0.5, 0.5)
			}
			dc.SetRGB(0.8, 0.8, 0.8)
			dc.DrawRectangle(x+0.5, y+0.5, CellSize-1, CellSize-1)
			dc.Stroke()
		}
	}
	return dc.Image(), nil
}

// EncodePNG writes the table for book to w as a PNG.
func EncodePNG(w io.Writer, book *bitbang.AddressBook) error {
	img, err := Image(book, &ImageOpts{})
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

// Draw renders the table for book on a display. The table is clipped when the
// display is smaller.
func Draw(dst display.Drawer, book *bitbang.AddressBook) error {
	img, err := Image(book, &ImageOpts{})
	if err != nil {
		return err
	}
	return dst.Draw(dst.Bounds(), img, image.Point{})
}
