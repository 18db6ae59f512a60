// Package leddriver pushes pixel frames to an addressable LED strip over a
// serial link using Adalight framing.
//
// Drivers are explicitly constructed, short-lived handles: open one, render
// frames, close it. A configuration change (different port, different LED
// count) constructs a new handle; there is no process-wide driver state to
// reset.
package leddriver

import "fmt"

// Color is one LED's RGB value.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Off is the unlit LED colour.
var Off = Color{}

// Frame is a full strip's worth of pixels, index-aligned with absolute LED
// indices.
type Frame []Color

// NewFrame returns an all-off frame for a strip of the given size.
func NewFrame(ledCount int) Frame {
	return make(Frame, ledCount)
}

// Driver renders frames onto a strip.
type Driver interface {
	// Render pushes a full frame. The frame length must equal LEDCount.
	Render(Frame) error
	// LEDCount returns the strip size the driver was constructed for.
	LEDCount() int
	// Close releases the underlying port.
	Close() error
}

// NullDriver accepts and discards frames. Used for headless runs where no
// serial port is configured.
type NullDriver struct {
	count int
}

// NewNullDriver returns a driver that swallows frames for a strip of the
// given size.
func NewNullDriver(ledCount int) *NullDriver {
	return &NullDriver{count: ledCount}
}

func (d *NullDriver) Render(f Frame) error {
	if len(f) != d.count {
		return fmt.Errorf("leddriver: frame has %d pixels, strip has %d", len(f), d.count)
	}
	return nil
}

func (d *NullDriver) LEDCount() int { return d.count }

func (d *NullDriver) Close() error { return nil }
