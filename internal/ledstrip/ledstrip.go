// Package ledstrip models the physical placement of an addressable LED strip:
// which millimetre position each LED index occupies for a given pitch.
//
// All functions speak absolute strip indices. Range-relative arithmetic (such
// as offsets from the start of a calibration range) is the caller's job and
// must be converted to absolute indices and strip-space millimetres before
// calling into this package.
package ledstrip

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned when a calibration range fails validation.
var ErrInvalidRange = errors.New("invalid calibration range")

// positionEpsilon absorbs float rounding at LED footprint boundaries so an
// LED centre sitting exactly on a range edge counts as inside.
const positionEpsilon = 1e-9

// Strip describes an LED strip by its pitch (millimetres between
// consecutive LED centres) and total LED count. LED index 0 sits at
// position 0.0mm; LED i at i*PitchMM.
type Strip struct {
	PitchMM float64
	Count   int
}

// New constructs a Strip and validates its parameters.
func New(pitchMM float64, count int) (Strip, error) {
	if pitchMM <= 0 {
		return Strip{}, fmt.Errorf("ledstrip: pitch must be positive, got %.3f", pitchMM)
	}
	if count <= 0 {
		return Strip{}, fmt.Errorf("ledstrip: LED count must be positive, got %d", count)
	}
	return Strip{PitchMM: pitchMM, Count: count}, nil
}

// FromDensity constructs a Strip from an LEDs-per-metre density, the unit
// strips are usually sold by (30/60/144 LEDs/m).
func FromDensity(ledsPerMeter float64, count int) (Strip, error) {
	if ledsPerMeter <= 0 {
		return Strip{}, fmt.Errorf("ledstrip: density must be positive, got %.3f", ledsPerMeter)
	}
	return New(1000.0/ledsPerMeter, count)
}

// WithPitch returns a copy of the strip at a different pitch, keeping the
// count. Used when pitch calibration corrects the effective pitch.
func (s Strip) WithPitch(pitchMM float64) Strip {
	return Strip{PitchMM: pitchMM, Count: s.Count}
}

// PositionMM returns the centre position of the LED at the given absolute
// index.
func (s Strip) PositionMM(index int) float64 {
	return float64(index) * s.PitchMM
}

// HalfWidthMM returns half an LED footprint. An LED's footprint spans
// [PositionMM-HalfWidthMM, PositionMM+HalfWidthMM].
func (s Strip) HalfWidthMM() float64 {
	return s.PitchMM / 2
}

// IndicesWithin returns the first and last absolute LED index whose centre
// falls inside [lowMM, highMM] (inclusive, in strip space). When no LED
// centre falls in the range, first > last.
func (s Strip) IndicesWithin(lowMM, highMM float64) (first, last int) {
	first = int(math.Ceil(lowMM/s.PitchMM - positionEpsilon))
	last = int(math.Floor(highMM/s.PitchMM + positionEpsilon))
	return first, last
}

// CalibrationRange is the inclusive span of usable LED indices on the strip.
type CalibrationRange struct {
	StartLED int `json:"start_led"`
	EndLED   int `json:"end_led"`
}

// Validate rejects ranges that are inverted or fall outside the strip.
// Failing validation means the caller's configuration is wrong; allocation
// must not proceed on a partial range.
func (r CalibrationRange) Validate(ledCount int) error {
	if r.StartLED > r.EndLED {
		return fmt.Errorf("%w: start %d after end %d", ErrInvalidRange, r.StartLED, r.EndLED)
	}
	if r.StartLED < 0 || r.EndLED >= ledCount {
		return fmt.Errorf("%w: [%d, %d] outside strip [0, %d]", ErrInvalidRange, r.StartLED, r.EndLED, ledCount-1)
	}
	return nil
}

// Count returns the number of LEDs in the range.
func (r CalibrationRange) Count() int {
	return r.EndLED - r.StartLED + 1
}

// Clamp constrains an absolute LED index to the given inclusive bounds.
// Saturating rather than wrapping keeps a runaway user offset from
// corrupting the hardware frame buffer.
func Clamp(index, low, high int) int {
	if index < low {
		return low
	}
	if index > high {
		return high
	}
	return index
}
