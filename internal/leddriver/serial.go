package leddriver

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// adalightHeaderLen is the magic plus LED count plus checksum.
const adalightHeaderLen = 6

// SerialDriver renders frames over a serial port with Adalight framing:
// "Ada", a two-byte big-endian (count-1), a checksum byte, then three RGB
// bytes per LED.
type SerialDriver struct {
	mu    sync.Mutex
	port  io.ReadWriteCloser
	count int
	buf   []byte // reused per frame; header stays fixed
}

// OpenSerial opens the serial port at path and returns a driver for a strip
// of ledCount LEDs.
func OpenSerial(path string, baudRate, ledCount int) (*SerialDriver, error) {
	if ledCount <= 0 {
		return nil, fmt.Errorf("leddriver: LED count must be positive, got %d", ledCount)
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("leddriver: failed to open %s: %w", path, err)
	}
	return NewSerialDriver(port, ledCount), nil
}

// NewSerialDriver wraps an already-open port. Split from OpenSerial so tests
// can inject an in-memory port.
func NewSerialDriver(port io.ReadWriteCloser, ledCount int) *SerialDriver {
	buf := make([]byte, adalightHeaderLen+3*ledCount)
	hi := byte((ledCount - 1) >> 8)
	lo := byte((ledCount - 1) & 0xff)
	buf[0], buf[1], buf[2] = 'A', 'd', 'a'
	buf[3], buf[4] = hi, lo
	buf[5] = hi ^ lo ^ 0x55
	return &SerialDriver{port: port, count: ledCount, buf: buf}
}

// Render pushes one full frame to the strip.
func (d *SerialDriver) Render(f Frame) error {
	if len(f) != d.count {
		return fmt.Errorf("leddriver: frame has %d pixels, strip has %d", len(f), d.count)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, c := range f {
		off := adalightHeaderLen + 3*i
		d.buf[off] = c.R
		d.buf[off+1] = c.G
		d.buf[off+2] = c.B
	}
	if _, err := d.port.Write(d.buf); err != nil {
		return fmt.Errorf("leddriver: write failed: %w", err)
	}
	return nil
}

func (d *SerialDriver) LEDCount() int { return d.count }

// Close closes the underlying port.
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Close()
}
