// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Register makes a bit-banged bus available through i2creg, so i2creg.Open
// returns it to any driver.
//
// The bus is configured with a copy of opts each time it is opened. number
// can be -1 if the bus has no number.
func Register(name string, aliases []string, number int, opts *Opts) error {
	if opts == nil {
		return fmt.Errorf("%w: no options", ErrInvalidArgument)
	}
	o := *opts
	return i2creg.Register(name, aliases, number, func() (i2c.BusCloser, error) {
		o := o
		d, err := New(&o)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
