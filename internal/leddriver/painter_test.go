package leddriver

import (
	"testing"

	"github.com/agwosdz/pianoled/internal/allocator"
)

func TestPainterLightsMappedLEDs(t *testing.T) {
	d := NewMockDriver(10)
	p := NewPainter(d, allocator.Mapping{
		0: {0, 1},
		1: {2, 3, 4},
	})

	blue := Color{B: 200}
	if err := p.LightKey(0, blue); err != nil {
		t.Fatalf("LightKey: %v", err)
	}
	f := d.LastFrame()
	if f[0] != blue || f[1] != blue {
		t.Errorf("key 0 LEDs not lit: %v", f[:2])
	}
	if f[2] != Off {
		t.Errorf("unmapped LED lit: %v", f[2])
	}

	// Lighting a second key keeps the first lit.
	if err := p.LightKey(1, blue); err != nil {
		t.Fatalf("LightKey: %v", err)
	}
	f = d.LastFrame()
	if f[0] != blue || f[4] != blue {
		t.Errorf("expected both keys lit: %v", f)
	}

	// Releasing key 0 darkens only its LEDs.
	if err := p.DarkenKey(0); err != nil {
		t.Fatalf("DarkenKey: %v", err)
	}
	f = d.LastFrame()
	if f[0] != Off || f[1] != Off {
		t.Errorf("key 0 still lit after DarkenKey: %v", f[:2])
	}
	if f[2] != blue {
		t.Errorf("key 1 darkened unexpectedly: %v", f[2:5])
	}
}

func TestPainterIgnoresOutOfRangeLEDs(t *testing.T) {
	d := NewMockDriver(3)
	p := NewPainter(d, allocator.Mapping{0: {1, 7, -2}})
	if err := p.LightKey(0, Color{R: 1}); err != nil {
		t.Fatalf("LightKey: %v", err)
	}
	f := d.LastFrame()
	if f[1] != (Color{R: 1}) {
		t.Errorf("in-range LED not lit: %v", f)
	}
}

func TestPainterSetMappingClearsStrip(t *testing.T) {
	d := NewMockDriver(5)
	p := NewPainter(d, allocator.Mapping{0: {0}})
	p.LightKey(0, Color{G: 50})

	if err := p.SetMapping(allocator.Mapping{0: {4}}); err != nil {
		t.Fatalf("SetMapping: %v", err)
	}
	f := d.LastFrame()
	for i, c := range f {
		if c != Off {
			t.Errorf("LED %d still lit after mapping swap: %v", i, c)
		}
	}

	p.LightKey(0, Color{G: 50})
	if got := d.LastFrame()[4]; got != (Color{G: 50}) {
		t.Errorf("new mapping not in effect: %v", got)
	}
}

func TestPainterDoesNotAliasCallerMapping(t *testing.T) {
	d := NewMockDriver(3)
	m := allocator.Mapping{0: {0}}
	p := NewPainter(d, m)
	m[0][0] = 2 // caller mutates after construction

	p.LightKey(0, Color{R: 9})
	f := d.LastFrame()
	if f[0] != (Color{R: 9}) || f[2] != Off {
		t.Errorf("painter aliased caller's mapping: %v", f)
	}
}
