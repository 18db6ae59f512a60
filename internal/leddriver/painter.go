package leddriver

import (
	"sync"

	"github.com/agwosdz/pianoled/internal/allocator"
	"github.com/agwosdz/pianoled/internal/keylayout"
)

// Painter keeps a frame in sync with key press state: lighting a key lights
// the LEDs its mapping entry names, releasing it turns them off again. The
// painter owns its frame; callers only speak in keys.
type Painter struct {
	mu      sync.Mutex
	driver  Driver
	mapping allocator.Mapping
	frame   Frame
}

// NewPainter returns a painter rendering through driver with the given
// mapping. The mapping is cloned; later changes by the caller do not leak
// in.
func NewPainter(driver Driver, mapping allocator.Mapping) *Painter {
	return &Painter{
		driver:  driver,
		mapping: mapping.Clone(),
		frame:   NewFrame(driver.LEDCount()),
	}
}

// SetMapping swaps in a freshly generated mapping and clears the strip,
// since old lit positions are meaningless under the new mapping.
func (p *Painter) SetMapping(mapping allocator.Mapping) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mapping = mapping.Clone()
	p.frame = NewFrame(p.driver.LEDCount())
	return p.driver.Render(p.frame)
}

// LightKey sets the key's LEDs to the given colour and renders.
func (p *Painter) LightKey(key keylayout.KeyIndex, c Color) error {
	return p.paint(key, c)
}

// DarkenKey turns the key's LEDs off and renders.
func (p *Painter) DarkenKey(key keylayout.KeyIndex) error {
	return p.paint(key, Off)
}

func (p *Painter) paint(key keylayout.KeyIndex, c Color) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, led := range p.mapping[key] {
		if led >= 0 && led < len(p.frame) {
			p.frame[led] = c
		}
	}
	return p.driver.Render(p.frame)
}

// Clear turns the whole strip off.
func (p *Painter) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = NewFrame(p.driver.LEDCount())
	return p.driver.Render(p.frame)
}
