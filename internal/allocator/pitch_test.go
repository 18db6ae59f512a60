package allocator

import (
	"math"
	"testing"

	"github.com/agwosdz/pianoled/internal/ledstrip"
)

func TestCalibratePitchWithinTolerance(t *testing.T) {
	rng := ledstrip.CalibrationRange{StartLED: 0, EndLED: 11}
	c := calibratePitch(22, 2, rng, 10, true) // gap of 1 LED
	if c.WasAdjusted {
		t.Errorf("WasAdjusted = true for gap within tolerance: %+v", c)
	}
	if c.CalibratedPitchMM != c.TheoreticalPitchMM {
		t.Errorf("unadjusted result has calibrated %.6f != theoretical %.6f",
			c.CalibratedPitchMM, c.TheoreticalPitchMM)
	}
}

func TestCalibratePitchCorrectsGap(t *testing.T) {
	// 20 pitch intervals to cover 22mm, but 9 LEDs go unused: the real
	// pitch must be 22/20 = 1.1mm.
	rng := ledstrip.CalibrationRange{StartLED: 0, EndLED: 20}
	c := calibratePitch(22, 2, rng, 11, true)
	if !c.WasAdjusted {
		t.Fatalf("WasAdjusted = false: %+v", c)
	}
	if math.Abs(c.CalibratedPitchMM-1.1) > 1e-9 {
		t.Errorf("CalibratedPitchMM = %.6f, want 1.1", c.CalibratedPitchMM)
	}
	if c.TheoreticalPitchMM != 2 {
		t.Errorf("TheoreticalPitchMM = %.6f, want the pre-correction snapshot 2", c.TheoreticalPitchMM)
	}
	if math.Abs(c.DifferenceMM-(-0.9)) > 1e-9 {
		t.Errorf("DifferenceMM = %.6f, want -0.9", c.DifferenceMM)
	}
	if math.Abs(c.DifferencePercent-(-45)) > 1e-9 {
		t.Errorf("DifferencePercent = %.6f, want -45", c.DifferencePercent)
	}
	if c.Reason == "" {
		t.Error("adjusted calibration carries no reason")
	}
}

func TestCalibratePitchDegenerateInputs(t *testing.T) {
	if c := calibratePitch(22, 2, ledstrip.CalibrationRange{StartLED: 5, EndLED: 5}, 5, true); c.WasAdjusted {
		t.Errorf("single-LED range adjusted: %+v", c)
	}
	if c := calibratePitch(22, 2, ledstrip.CalibrationRange{StartLED: 0, EndLED: 20}, 0, false); c.WasAdjusted {
		t.Errorf("empty mapping adjusted: %+v", c)
	}
}

// A full allocation against an over-long range must correct the pitch in a
// single extra pass, and running the same allocation with the corrected
// pitch must report no further adjustment. One correction converges; there
// is no drift on repeated calibration.
func TestPitchCalibrationStability(t *testing.T) {
	l := threeKeyLayout(t)
	rng := ledstrip.CalibrationRange{StartLED: 0, EndLED: 20}

	res, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, 2, 30),
		Range:  rng,
		Mode:   ModeExclusive,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !res.Calibration.WasAdjusted {
		t.Fatalf("expected pitch adjustment, got %+v", res.Calibration)
	}
	if math.Abs(res.EffectivePitchMM-1.1) > 1e-9 {
		t.Fatalf("EffectivePitchMM = %.6f, want 1.1", res.EffectivePitchMM)
	}
	if max, _ := res.Mapping.MaxAssigned(); max != 20 {
		t.Errorf("corrected pass MaxAssigned = %d, want 20", max)
	}

	again, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, res.EffectivePitchMM, 30),
		Range:  rng,
		Mode:   ModeExclusive,
	})
	if err != nil {
		t.Fatalf("Allocate (recalibrated): %v", err)
	}
	if again.Calibration.WasAdjusted {
		t.Errorf("recalibration drifted: %+v", again.Calibration)
	}
	if again.Calibration.CalibratedPitchMM != again.Calibration.TheoreticalPitchMM {
		t.Errorf("unadjusted result pitches differ: %+v", again.Calibration)
	}
}
