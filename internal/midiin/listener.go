// Package midiin turns live MIDI note events into lit keys on the strip.
// Incoming notes are converted from note-number space to key-index space
// through the keyboard layout — the only place that conversion happens on
// the live path — and painted through the LED driver.
package midiin

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register rtmidi backend

	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/leddriver"
	"github.com/agwosdz/pianoled/internal/monitoring"
)

// DefaultKeyColor is the colour of a pressed key at full velocity.
var DefaultKeyColor = leddriver.Color{R: 0, G: 120, B: 255}

// Listener consumes note events from one MIDI input port and keeps the
// strip in sync with the pressed keys.
type Listener struct {
	layout   *keylayout.Layout
	painter  *leddriver.Painter
	keyColor leddriver.Color
	stop     func()
}

// InPorts lists the names of the available MIDI input ports.
func InPorts() []string {
	ins := midi.GetInPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// FindInPort resolves a port by (partial) name, or returns the first
// available input when name is empty.
func FindInPort(name string) (drivers.In, error) {
	if name != "" {
		in, err := midi.FindInPort(name)
		if err != nil {
			return nil, fmt.Errorf("midiin: no input port matching %q: %w", name, err)
		}
		return in, nil
	}
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, fmt.Errorf("midiin: no MIDI input ports available")
	}
	return ins[0], nil
}

// Listen starts consuming note events from port. Call Stop to detach and
// clear the strip.
func Listen(port drivers.In, layout *keylayout.Layout, painter *leddriver.Painter) (*Listener, error) {
	l := &Listener{layout: layout, painter: painter, keyColor: DefaultKeyColor}
	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		l.handle(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("midiin: failed to listen on %s: %w", port, err)
	}
	l.stop = stop
	return l, nil
}

// handle processes one MIDI message. Split out from Listen so tests can
// feed messages without a hardware port.
func (l *Listener) handle(msg midi.Message) {
	var channel, note, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0:
		key, ok := l.layout.KeyForNote(keylayout.NoteNumber(note))
		if !ok {
			return // outside the configured keyboard
		}
		if err := l.painter.LightKey(key, scaleColor(l.keyColor, velocity)); err != nil {
			monitoring.Logf("midiin: light key %d: %v", key, err)
		}
	case msg.GetNoteEnd(&channel, &note):
		key, ok := l.layout.KeyForNote(keylayout.NoteNumber(note))
		if !ok {
			return
		}
		if err := l.painter.DarkenKey(key); err != nil {
			monitoring.Logf("midiin: darken key %d: %v", key, err)
		}
	}
}

// Stop detaches from the port and turns the strip off.
func (l *Listener) Stop() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	if err := l.painter.Clear(); err != nil {
		monitoring.Logf("midiin: clear strip: %v", err)
	}
}

// scaleColor dims the base colour by velocity so soft playing glows softly.
func scaleColor(c leddriver.Color, velocity uint8) leddriver.Color {
	v := int(velocity)
	if v > 127 {
		v = 127
	}
	return leddriver.Color{
		R: uint8(int(c.R) * v / 127),
		G: uint8(int(c.G) * v / 127),
		B: uint8(int(c.B) * v / 127),
	}
}
