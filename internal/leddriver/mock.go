package leddriver

import (
	"fmt"
	"sync"
)

// MockDriver records rendered frames for tests and for dry-run tooling.
type MockDriver struct {
	mu     sync.Mutex
	count  int
	frames []Frame
	closed bool

	// RenderError, when set, is returned by the next Render call.
	RenderError error
}

// NewMockDriver returns a recording driver for a strip of the given size.
func NewMockDriver(ledCount int) *MockDriver {
	return &MockDriver{count: ledCount}
}

func (d *MockDriver) Render(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("leddriver: render on closed driver")
	}
	if d.RenderError != nil {
		err := d.RenderError
		d.RenderError = nil
		return err
	}
	if len(f) != d.count {
		return fmt.Errorf("leddriver: frame has %d pixels, strip has %d", len(f), d.count)
	}
	cp := make(Frame, len(f))
	copy(cp, f)
	d.frames = append(d.frames, cp)
	return nil
}

func (d *MockDriver) LEDCount() int { return d.count }

func (d *MockDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// FrameCount returns how many frames have been rendered.
func (d *MockDriver) FrameCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

// LastFrame returns a copy of the most recent frame, or nil when none has
// been rendered.
func (d *MockDriver) LastFrame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil
	}
	last := d.frames[len(d.frames)-1]
	cp := make(Frame, len(last))
	copy(cp, last)
	return cp
}
