// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// softi2c talks to I²C devices over two arbitrary GPIOs.
//
// Scan the bus:
//
//	softi2c -sda GPIO23 -scl GPIO24 -scan
//
// Read two bytes from register 0x00 of device 0x48:
//
//	softi2c -sda GPIO23 -scl GPIO24 -r -device 0x48 -register 0x00 -n 2
//
// Write then read back two bytes:
//
//	softi2c -sda GPIO23 -scl GPIO24 -w -device 0x50 -register 0x10 -n 2 -data 0x01,0xFF
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
	"periph.io/x/softi2c/bitbang"
	"periph.io/x/softi2c/scanview"
)

func mainImpl() error {
	sda := flag.String("sda", "", "GPIO to use as SDA, by name or number")
	scl := flag.String("scl", "", "GPIO to use as SCL, by name or number")
	speed := flag.String("speed", "100", "bus speed: i2c_standard_mode (100) or i2c_full_speed (400)")
	stretch := flag.Duration("stretch", bitbang.DefaultStretchTimeout, "longest clock stretching accepted")
	pullUp := flag.Bool("pullup", false, "enable the internal pull-ups")
	scan := flag.Bool("scan", false, "scan the bus for devices")
	pngFile := flag.String("png", "", "also render the scan to this PNG file")
	read := flag.Bool("r", false, "read -n bytes")
	write := flag.Bool("w", false, "write -data then read it back")
	device := flag.String("device", "", "device address, e.g. 0x48")
	register := flag.String("register", "", "register address, e.g. 0x00")
	n := flag.Int("n", 0, "number of bytes to read or write")
	data := flag.String("data", "", "comma separated bytes to write, e.g. 0x01,0xFF")
	reset := flag.Bool("reset", false, "clock 9 pulses to free a stuck device")
	stats := flag.Bool("stats", false, "print the bus statistics on exit")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	// Validate everything before touching the lines.
	f, err := parseSpeed(*speed)
	if err != nil {
		return err
	}
	op := 0
	for _, b := range []bool{*scan, *read, *write, *reset} {
		if b {
			op++
		}
	}
	if op != 1 {
		return errors.New("specify exactly one of -scan, -r, -w or -reset")
	}
	var addr uint16
	var reg byte
	var w []byte
	if *read || *write {
		if *n <= 0 {
			return errors.New("-n must be greater than 0")
		}
		if *device == "" || *register == "" {
			return errors.New("-device and -register are required")
		}
		if addr, err = parseAddr(*device); err != nil {
			return fmt.Errorf("-device: %w", err)
		}
		if reg, err = parseHex(*register); err != nil {
			return fmt.Errorf("-register: %w", err)
		}
	}
	if *write {
		if w, err = parseHexList(*data); err != nil {
			return fmt.Errorf("-data: %w", err)
		}
		if len(w) != *n {
			return fmt.Errorf("-n is %d but -data holds %d bytes", *n, len(w))
		}
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	sdaPin, err := pin("-sda", *sda)
	if err != nil {
		return err
	}
	sclPin, err := pin("-scl", *scl)
	if err != nil {
		return err
	}
	bus, err := bitbang.New(&bitbang.Opts{SDA: sdaPin, SCL: sclPin, Frequency: f, StretchTimeout: *stretch, PullUp: *pullUp})
	if err != nil {
		return err
	}
	defer bus.Close()
	log.Printf("using %s at %s", bus, bus.Config().Timing)
	if *stats {
		defer printStats(bus)
	}

	switch {
	case *scan:
		return doScan(bus, *pngFile)
	case *reset:
		if err := bus.Reset(); err != nil {
			return err
		}
		fmt.Println("bus reset")
		return nil
	case *write:
		ack, err := bus.Write(addr, reg, w)
		log.Printf("write acknowledged: %t", ack)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d byte(s) to device 0x%02X at register 0x%02X: %s\n", len(w), addr, reg, formatBytes(w))
		fallthrough
	default:
		r := make([]byte, *n)
		if err := bus.Read(addr, reg, r); err != nil {
			return err
		}
		fmt.Printf("read %d byte(s) from device 0x%02X at register 0x%02X: %s\n", len(r), addr, reg, formatBytes(r))
		return nil
	}
}

func pin(flagName, name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("%s is required", flagName)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%s: no GPIO named %q", flagName, name)
	}
	return p, nil
}

func doScan(bus *bitbang.Dev, pngFile string) error {
	start := time.Now()
	book, err := bus.Scan()
	if err != nil {
		return err
	}
	log.Printf("scan took %s", time.Since(start))
	v := scanview.New(&scanview.Opts{})
	defer v.Halt()
	if err := v.Write(&book); err != nil {
		return err
	}
	if pngFile == "" {
		return nil
	}
	out, err := os.Create(pngFile)
	if err != nil {
		return err
	}
	if err := scanview.EncodePNG(out, &book); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func printStats(bus *bitbang.Dev) {
	s := bus.Stats()
	fmt.Printf("starts=%d repeated=%d stops=%d written=%d read=%d\n", s.Starts, s.RepeatedStarts, s.Stops, s.BytesWritten, s.BytesRead)
	fmt.Printf("nacks: address=%d register=%d restart=%d bad transfers=%d\n", s.AddressNACKs, s.RegisterNACKs, s.RestartNACKs, s.BadTransfers)
	fmt.Printf("bus: resets=%d unknown=%d lockups=%d failed starts=%d failed stops=%d hung=%d\n", s.BusResets, s.UnknownBusErrors, s.BusLockups, s.FailedStarts, s.FailedStops, s.DevicesHung)
	fmt.Printf("clock: stretches=%d timeouts=%d\n", s.ClockStretches, s.ClockStretchTimeouts)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "softi2c: %s.\n", err)
		if bitbang.Fatal(err) {
			fmt.Fprintln(os.Stderr, "softi2c: the device must be power cycled")
		}
		os.Exit(1)
	}
}
