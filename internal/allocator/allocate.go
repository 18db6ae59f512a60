// Package allocator assigns LED strip indices to piano keys by physical
// overlap, calibrates the effective LED pitch against the achieved coverage,
// grades the result, and applies user offset/trim adjustments.
//
// Everything here is a pure function of its inputs: no I/O, no shared
// mutable state, safe to call from concurrent requests as long as callers do
// not share intermediate mappings.
package allocator

import (
	"fmt"

	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/ledstrip"
	"github.com/agwosdz/pianoled/internal/monitoring"
)

// Mode selects the allocation policy.
type Mode string

const (
	// ModeSharing lets an LED belong to up to two adjacent keys whose
	// surfaces its footprint touches. Smoothest visual continuity.
	ModeSharing Mode = "sharing"
	// ModeExclusive assigns each LED to at most one key, first come first
	// served in ascending position order.
	ModeExclusive Mode = "exclusive"
	// ModePhysical assigns by footprint overlap and drops LEDs whose
	// overhang beyond a key's exposed edge exceeds a threshold.
	ModePhysical Mode = "physical"
)

// Valid reports whether m names a known allocation mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSharing, ModeExclusive, ModePhysical:
		return true
	}
	return false
}

// Request bundles the inputs of one allocation.
type Request struct {
	Layout *keylayout.Layout
	Strip  ledstrip.Strip
	Range  ledstrip.CalibrationRange
	Mode   Mode

	// OverhangThresholdMM bounds the acceptable LED overhang in
	// ModePhysical. Ignored by the other modes.
	OverhangThresholdMM float64
}

// Result is the outcome of one allocation: the key-to-LED mapping, the
// pitch-calibration decision that shaped it, and its quality grades.
type Result struct {
	Mapping     Mapping          `json:"mapping"`
	Calibration PitchCalibration `json:"calibration"`
	Quality     QualityReport    `json:"quality"`

	// EffectivePitchMM is the pitch the final mapping was computed with:
	// the theoretical pitch, or the calibrated one when it was adjusted.
	EffectivePitchMM float64 `json:"effective_pitch_mm"`
}

// positionEpsilonMM absorbs float rounding when testing whether an LED
// centre sits inside a key range.
const positionEpsilonMM = 1e-9

// Allocate runs the full allocation transaction: a first assignment pass, a
// pitch-calibration check against the achieved coverage, and at most one
// recomputation with the corrected pitch. Exactly two passes maximum; the
// pitch/span relationship is near-linear, so a single correction suffices
// and further passes are never attempted.
func Allocate(req Request) (*Result, error) {
	if req.Layout == nil {
		return nil, fmt.Errorf("allocator: nil layout")
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("allocator: unknown mode %q", req.Mode)
	}
	if req.Strip.PitchMM <= 0 || req.Strip.Count <= 0 {
		return nil, fmt.Errorf("allocator: invalid strip (pitch=%.3f count=%d)", req.Strip.PitchMM, req.Strip.Count)
	}
	if err := req.Range.Validate(req.Strip.Count); err != nil {
		return nil, err
	}

	// Pass 1 with the configured pitch. The theoretical pitch is snapshotted
	// here and never touched again; the calibration below diffs against this
	// value, not against any corrected strip.
	theoretical := req.Strip.PitchMM

	mapping := allocateOnce(req.Layout, req.Strip, req.Range, req.Mode, req.OverhangThresholdMM)
	maxAssigned, anyAssigned := mapping.MaxAssigned()

	calib := calibratePitch(req.Layout.WidthMM(), theoretical, req.Range, maxAssigned, anyAssigned)

	strip := req.Strip
	if calib.WasAdjusted {
		// Pass 2, once, with the corrected pitch.
		strip = req.Strip.WithPitch(calib.CalibratedPitchMM)
		mapping = allocateOnce(req.Layout, strip, req.Range, req.Mode, req.OverhangThresholdMM)
	}

	return &Result{
		Mapping:          mapping,
		Calibration:      calib,
		Quality:          AnalyzeQuality(req.Layout, strip, req.Range, mapping),
		EffectivePitchMM: strip.PitchMM,
	}, nil
}

// allocateOnce produces a mapping for a single pass at a fixed pitch.
func allocateOnce(layout *keylayout.Layout, strip ledstrip.Strip, rng ledstrip.CalibrationRange, mode Mode, overhangMM float64) Mapping {
	switch mode {
	case ModeExclusive:
		return allocateExclusive(layout, strip, rng)
	case ModePhysical:
		return allocatePhysical(layout, strip, rng, overhangMM)
	default:
		return allocateSharing(layout, strip, rng)
	}
}

// stripOffsetMM converts keyboard-space millimetres to strip space: the
// keyboard's left edge (x=0) aligns with the centre of the first usable LED.
// All arithmetic against the placement model uses absolute indices and strip
// space; nothing below ever treats a range-relative offset as a position.
func stripOffsetMM(strip ledstrip.Strip, rng ledstrip.CalibrationRange) float64 {
	return strip.PositionMM(rng.StartLED)
}

// allocateSharing assigns each key every LED whose footprint touches the
// key's exposed surface. LEDs at key boundaries end up in both neighbours'
// sequences.
func allocateSharing(layout *keylayout.Layout, strip ledstrip.Strip, rng ledstrip.CalibrationRange) Mapping {
	m := NewMapping(layout.KeyCount())
	off := stripOffsetMM(strip, rng)
	half := strip.HalfWidthMM()

	for _, key := range layout.Keys() {
		low := key.ExposedStartMM - half + off
		high := key.ExposedEndMM + half + off
		first, last := strip.IndicesWithin(low, high)
		if first < rng.StartLED {
			first = rng.StartLED
		}
		if last > rng.EndLED {
			last = rng.EndLED
		}
		seq := m[key.Index]
		for i := first; i <= last; i++ {
			seq = append(seq, i)
		}
		m[key.Index] = seq
	}
	return m
}

// allocateExclusive walks the usable range in ascending order and gives each
// LED to the first key whose exposed surface contains its centre. An LED is
// never reassigned.
func allocateExclusive(layout *keylayout.Layout, strip ledstrip.Strip, rng ledstrip.CalibrationRange) Mapping {
	m := NewMapping(layout.KeyCount())
	off := stripOffsetMM(strip, rng)
	keys := layout.Keys()

	for i := rng.StartLED; i <= rng.EndLED; i++ {
		x := strip.PositionMM(i) - off
		assigned := false
		for _, key := range keys {
			if x < key.ExposedStartMM-positionEpsilonMM {
				continue
			}
			if x > key.ExposedEndMM+positionEpsilonMM {
				continue
			}
			m[key.Index] = append(m[key.Index], i)
			assigned = true
			break
		}
		if !assigned && x <= layout.WidthMM() {
			// A centre inside the keyboard that no key claims means the
			// geometry has a hole. Keep going; a gap on the strip beats a
			// refused allocation.
			monitoring.Logf("allocator: LED %d (%.2fmm) not claimed by any key", i, x)
		}
	}
	return m
}

// allocatePhysical assigns by raw footprint overlap, then drops LEDs whose
// overhang beyond either exposed edge exceeds the threshold. The base pass
// can strand LEDs at both ends of the usable range because the outermost
// keys' surfaces rarely land exactly on the range edges, so the first and
// last key absorb the leading and trailing leftovers afterwards.
func allocatePhysical(layout *keylayout.Layout, strip ledstrip.Strip, rng ledstrip.CalibrationRange, overhangMM float64) Mapping {
	m := NewMapping(layout.KeyCount())
	off := stripOffsetMM(strip, rng)
	half := strip.HalfWidthMM()

	for _, key := range layout.Keys() {
		// Candidates: any LED whose footprint overlaps the exposed range.
		first, last := strip.IndicesWithin(key.ExposedStartMM-half+off, key.ExposedEndMM+half+off)
		if first < rng.StartLED {
			first = rng.StartLED
		}
		if last > rng.EndLED {
			last = rng.EndLED
		}
		seq := m[key.Index]
		for i := first; i <= last; i++ {
			x := strip.PositionMM(i) - off
			leftOver := (key.ExposedStartMM - (x - half))
			rightOver := ((x + half) - key.ExposedEndMM)
			if leftOver > overhangMM+positionEpsilonMM || rightOver > overhangMM+positionEpsilonMM {
				continue
			}
			seq = append(seq, i)
		}
		m[key.Index] = seq
	}

	extendEdgeKeys(m, layout, rng)
	return m
}

// extendEdgeKeys absorbs unassigned LEDs at the ends of the usable range
// into the outermost keys so the range is never under-covered. The high end
// extension is required for correct coverage; the low end mirrors it so the
// first key is not left asymmetrically short.
func extendEdgeKeys(m Mapping, layout *keylayout.Layout, rng ledstrip.CalibrationRange) {
	if layout.KeyCount() == 0 {
		return
	}
	maxAssigned, any := m.MaxAssigned()
	if !any {
		return
	}
	lastKey := keylayout.KeyIndex(layout.KeyCount() - 1)
	for i := maxAssigned + 1; i <= rng.EndLED; i++ {
		m[lastKey] = append(m[lastKey], i)
	}

	minAssigned, _ := m.MinAssigned()
	firstKey := keylayout.KeyIndex(0)
	if minAssigned > rng.StartLED {
		head := make([]int, 0, minAssigned-rng.StartLED+len(m[firstKey]))
		for i := rng.StartLED; i < minAssigned; i++ {
			head = append(head, i)
		}
		m[firstKey] = append(head, m[firstKey]...)
	}
}
