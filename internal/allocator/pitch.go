package allocator

import (
	"fmt"
	"math"

	"github.com/agwosdz/pianoled/internal/ledstrip"
)

// pitchEpsilonMM is the tolerance for deciding two pitches are equal.
// Pitch comparisons always use this epsilon, never exact float equality.
const pitchEpsilonMM = 1e-6

// gapToleranceLEDs is how many trailing unused LEDs the calibrator accepts
// before concluding the configured pitch disagrees with physical reality.
const gapToleranceLEDs = 2

// PitchCalibration records a single pitch-calibration decision. It is an
// immutable value computed once per allocation request from the theoretical
// pitch captured before any correction was applied; it is never recomputed
// against already-corrected state and never persisted separately from the
// mapping it produced.
type PitchCalibration struct {
	TheoreticalPitchMM float64 `json:"theoretical_pitch_mm"`
	CalibratedPitchMM  float64 `json:"calibrated_pitch_mm"`
	WasAdjusted        bool    `json:"was_adjusted"`
	DifferenceMM       float64 `json:"difference_mm"`
	DifferencePercent  float64 `json:"difference_percent"`
	Reason             string  `json:"reason"`
}

// calibratePitch compares the coverage achieved by an allocation pass
// against the usable LED range and decides whether the effective pitch
// should be corrected.
//
// theoreticalPitch is passed by value and acts as the immutable snapshot of
// the pitch before any correction; every field of the result is derived from
// it, not from whatever pitch the caller later applies.
func calibratePitch(keyboardWidthMM, theoreticalPitch float64, rng ledstrip.CalibrationRange, maxAssigned int, anyAssigned bool) PitchCalibration {
	unadjusted := func(reason string) PitchCalibration {
		return PitchCalibration{
			TheoreticalPitchMM: theoreticalPitch,
			CalibratedPitchMM:  theoreticalPitch,
			WasAdjusted:        false,
			Reason:             reason,
		}
	}

	if !anyAssigned {
		return unadjusted("no LEDs assigned; cannot infer coverage gap")
	}
	if rng.EndLED == rng.StartLED {
		return unadjusted("single-LED range; nothing to calibrate")
	}

	gap := rng.EndLED - maxAssigned
	if gap <= gapToleranceLEDs {
		return unadjusted(fmt.Sprintf("coverage gap of %d LEDs within tolerance", gap))
	}

	// The usable range spans EndLED-StartLED pitch intervals. Pick the pitch
	// at which those intervals exactly cover the keyboard width.
	calibrated := keyboardWidthMM / float64(rng.EndLED-rng.StartLED)
	diff := calibrated - theoreticalPitch
	adjusted := math.Abs(diff) > pitchEpsilonMM
	if !adjusted {
		return unadjusted(fmt.Sprintf("coverage gap of %d LEDs but pitch already matches keyboard span", gap))
	}

	return PitchCalibration{
		TheoreticalPitchMM: theoreticalPitch,
		CalibratedPitchMM:  calibrated,
		WasAdjusted:        true,
		DifferenceMM:       diff,
		DifferencePercent:  diff / theoreticalPitch * 100,
		Reason: fmt.Sprintf("%d LEDs unused at high end of range; pitch corrected %.4fmm -> %.4fmm to span %.1fmm",
			gap, theoreticalPitch, calibrated, keyboardWidthMM),
	}
}
