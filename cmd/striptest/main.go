// Command striptest drives test patterns over the serial LED strip so an
// installer can verify wiring, strip length and data direction before any
// mapping work.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/agwosdz/pianoled/internal/config"
	"github.com/agwosdz/pianoled/internal/leddriver"
)

var (
	configPath = flag.String("config", config.DefaultConfigPath, "Path to lighting config JSON")
	port       = flag.String("port", "", "Serial port (overrides config)")
	pattern    = flag.String("pattern", "chase", "Pattern: chase, fill or blink")
	colorSpec  = flag.String("color", "40,40,40", "R,G,B values 0-255")
	interval   = flag.Duration("interval", 30*time.Millisecond, "Frame interval")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config %s not loaded (%v), using defaults", *configPath, err)
		cfg = config.Empty()
	}
	serialPort := cfg.GetSerialPort()
	if *port != "" {
		serialPort = *port
	}

	color, err := parseColor(*colorSpec)
	if err != nil {
		log.Fatalf("invalid -color: %v", err)
	}

	driver, err := leddriver.OpenSerial(serialPort, cfg.GetBaudRate(), cfg.GetLEDCount())
	if err != nil {
		log.Fatalf("failed to open %s: %v", serialPort, err)
	}
	defer driver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("running %q on %s (%d LEDs), ctrl-c to stop\n", *pattern, serialPort, driver.LEDCount())

	switch *pattern {
	case "chase":
		err = runChase(ctx, driver, color, *interval)
	case "fill":
		err = runFill(ctx, driver, color, *interval)
	case "blink":
		err = runBlink(ctx, driver, color, *interval)
	default:
		log.Fatalf("unknown pattern %q", *pattern)
	}
	if err != nil {
		log.Fatalf("pattern failed: %v", err)
	}

	// Leave the strip dark.
	if err := driver.Render(leddriver.NewFrame(driver.LEDCount())); err != nil {
		log.Printf("failed to clear strip: %v", err)
	}
}

func parseColor(s string) (leddriver.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return leddriver.Color{}, fmt.Errorf("want R,G,B, got %q", s)
	}
	var vals [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return leddriver.Color{}, fmt.Errorf("component %q out of range 0-255", p)
		}
		vals[i] = uint8(v)
	}
	return leddriver.Color{R: vals[0], G: vals[1], B: vals[2]}, nil
}

// runChase walks a single lit LED along the strip, end to end, forever.
// A wiring fault shows up as the position where the dot stops moving.
func runChase(ctx context.Context, d leddriver.Driver, c leddriver.Color, interval time.Duration) error {
	n := d.LEDCount()
	frame := leddriver.NewFrame(n)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	pos := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frame[pos] = leddriver.Off
			pos = (pos + 1) % n
			frame[pos] = c
			if err := d.Render(frame); err != nil {
				return err
			}
		}
	}
}

// runFill lights the strip one LED at a time from the start, then clears
// and repeats. Useful for counting the physical strip length.
func runFill(ctx context.Context, d leddriver.Driver, c leddriver.Color, interval time.Duration) error {
	n := d.LEDCount()
	frame := leddriver.NewFrame(n)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	next := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if next == n {
				frame = leddriver.NewFrame(n)
				next = 0
			} else {
				frame[next] = c
				next++
			}
			if err := d.Render(frame); err != nil {
				return err
			}
		}
	}
}

// runBlink toggles the whole strip on and off.
func runBlink(ctx context.Context, d leddriver.Driver, c leddriver.Color, interval time.Duration) error {
	n := d.LEDCount()
	on := leddriver.NewFrame(n)
	for i := range on {
		on[i] = c
	}
	off := leddriver.NewFrame(n)
	ticker := time.NewTicker(interval * 10)
	defer ticker.Stop()
	lit := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frame := off
			if lit = !lit; lit {
				frame = on
			}
			if err := d.Render(frame); err != nil {
				return err
			}
		}
	}
}
