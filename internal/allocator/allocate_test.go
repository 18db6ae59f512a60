package allocator

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/ledstrip"
)

// threeKeyLayout builds F4/F#4/G4 with simple dimensions that are easy to
// verify by hand: F [0,10] exposed [0,8], F# [8,14], G [12,22] exposed
// [14,22], keyboard width 22mm.
func threeKeyLayout(t *testing.T) *keylayout.Layout {
	t.Helper()
	l, err := keylayout.New(keylayout.Params{
		KeyCount:     3,
		WhiteWidthMM: 10,
		BlackWidthMM: 6,
		GapMM:        2,
		LowestNote:   65, // F4
	})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return l
}

func testStrip(t *testing.T, pitch float64, count int) ledstrip.Strip {
	t.Helper()
	s, err := ledstrip.New(pitch, count)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	return s
}

func TestAllocateRejectsBadInputs(t *testing.T) {
	l := threeKeyLayout(t)
	s := testStrip(t, 2, 30)

	tests := []struct {
		name string
		req  Request
	}{
		{"nil layout", Request{Strip: s, Range: ledstrip.CalibrationRange{StartLED: 0, EndLED: 11}, Mode: ModeSharing}},
		{"bad mode", Request{Layout: l, Strip: s, Range: ledstrip.CalibrationRange{StartLED: 0, EndLED: 11}, Mode: "fancy"}},
		{"inverted range", Request{Layout: l, Strip: s, Range: ledstrip.CalibrationRange{StartLED: 11, EndLED: 0}, Mode: ModeSharing}},
		{"range past strip", Request{Layout: l, Strip: s, Range: ledstrip.CalibrationRange{StartLED: 0, EndLED: 30}, Mode: ModeSharing}},
		{"zero pitch strip", Request{Layout: l, Strip: ledstrip.Strip{}, Range: ledstrip.CalibrationRange{StartLED: 0, EndLED: 11}, Mode: ModeSharing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Allocate(tt.req); err == nil {
				t.Error("Allocate() succeeded, want error")
			}
		})
	}
}

func TestExclusiveAllocationByHand(t *testing.T) {
	l := threeKeyLayout(t)
	res, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, 2, 30),
		Range:  ledstrip.CalibrationRange{StartLED: 0, EndLED: 11},
		Mode:   ModeExclusive,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	want := Mapping{
		0: {0, 1, 2, 3, 4},  // F exposed [0,8]mm, LED centres 0..8mm
		1: {5, 6, 7},        // F# [8,14]mm, centres 10..14 (8 already claimed)
		2: {8, 9, 10, 11},   // G exposed [14,22]mm, centres 16..22
	}
	if diff := cmp.Diff(want, res.Mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	if res.Calibration.WasAdjusted {
		t.Errorf("unexpected pitch adjustment: %+v", res.Calibration)
	}
	if got := res.Mapping.SharedLEDs(); got != 0 {
		t.Errorf("SharedLEDs() = %d, want 0 in exclusive mode", got)
	}
}

func TestSharingAllocationByHand(t *testing.T) {
	l := threeKeyLayout(t)
	res, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, 2, 30),
		Range:  ledstrip.CalibrationRange{StartLED: 0, EndLED: 11},
		Mode:   ModeSharing,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// Footprints are 2mm wide, so each key also claims the LED straddling
	// its boundary with a neighbour.
	want := Mapping{
		0: {0, 1, 2, 3, 4},
		1: {4, 5, 6, 7},
		2: {7, 8, 9, 10, 11},
	}
	if diff := cmp.Diff(want, res.Mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	if got := res.Mapping.SharedLEDs(); got != 2 {
		t.Errorf("SharedLEDs() = %d, want 2", got)
	}
	if got := res.Mapping.TotalAssignments(); got != 14 {
		t.Errorf("TotalAssignments() = %d, want 14", got)
	}
}

func TestPhysicalAllocationByHand(t *testing.T) {
	l := threeKeyLayout(t)
	res, err := Allocate(Request{
		Layout:              l,
		Strip:               testStrip(t, 2, 30),
		Range:               ledstrip.CalibrationRange{StartLED: 0, EndLED: 11},
		Mode:                ModePhysical,
		OverhangThresholdMM: 0.5,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// LEDs overhanging an exposed edge by 1mm (over the 0.5mm threshold)
	// are dropped, then the first and last key absorb the leftover LEDs at
	// the range edges.
	want := Mapping{
		0: {0, 1, 2, 3},
		1: {5, 6},
		2: {8, 9, 10, 11},
	}
	if diff := cmp.Diff(want, res.Mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyKeysStayInMapping(t *testing.T) {
	l := threeKeyLayout(t)
	// One usable LED; most keys get nothing but must still be present.
	res, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, 2, 30),
		Range:  ledstrip.CalibrationRange{StartLED: 0, EndLED: 0},
		Mode:   ModeExclusive,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(res.Mapping) != 3 {
		t.Fatalf("mapping has %d keys, want 3", len(res.Mapping))
	}
	for k, seq := range res.Mapping {
		if k != 0 && len(seq) != 0 {
			t.Errorf("key %d = %v, want empty", k, seq)
		}
	}
	if res.Quality.EmptyKeys != 2 {
		t.Errorf("EmptyKeys = %d, want 2", res.Quality.EmptyKeys)
	}
	if len(res.Quality.Warnings) == 0 {
		t.Error("expected insufficient-LED warnings in quality report")
	}
}

func TestFullKeyboardSharing(t *testing.T) {
	l, err := keylayout.New(keylayout.Params{KeyCount: 88})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	res, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, 5, 300),
		Range:  ledstrip.CalibrationRange{StartLED: 4, EndLED: 249},
		Mode:   ModeSharing,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if len(res.Mapping) != 88 {
		t.Fatalf("mapping has %d keys, want 88", len(res.Mapping))
	}
	for k, seq := range res.Mapping {
		if len(seq) < 2 || len(seq) > 7 {
			t.Errorf("key %d has %d LEDs, want 2..7 at 5mm pitch", k, len(seq))
		}
		for i := 1; i < len(seq); i++ {
			if seq[i] != seq[i-1]+1 {
				t.Errorf("key %d sequence %v not contiguous ascending", k, seq)
			}
		}
		for _, led := range seq {
			if led < 4 || led > 249 {
				t.Errorf("key %d LED %d outside range [4,249]", k, led)
			}
		}
	}
	if shared := res.Mapping.SharedLEDs(); shared == 0 {
		t.Error("sharing mode produced no shared LEDs")
	}
	if res.Mapping.TotalAssignments() <= 246 {
		t.Errorf("TotalAssignments() = %d, want > 246 with sharing", res.Mapping.TotalAssignments())
	}
}

func TestFullKeyboardExclusive(t *testing.T) {
	l, err := keylayout.New(keylayout.Params{KeyCount: 88})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	res, err := Allocate(Request{
		Layout: l,
		Strip:  testStrip(t, 5, 300),
		Range:  ledstrip.CalibrationRange{StartLED: 4, EndLED: 249},
		Mode:   ModeExclusive,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// No LED may appear under two keys.
	if shared := res.Mapping.SharedLEDs(); shared != 0 {
		t.Errorf("SharedLEDs() = %d, want 0", shared)
	}

	// Monotonic: for keys i < j with LEDs, max(i) < min(j).
	prevMax := -1
	for _, k := range res.Mapping.SortedKeys() {
		seq := res.Mapping[k]
		if len(seq) == 0 {
			continue
		}
		if seq[0] <= prevMax {
			t.Errorf("key %d starts at LED %d, not after previous key's max %d", k, seq[0], prevMax)
		}
		prevMax = seq[len(seq)-1]
	}

	total := res.Mapping.TotalAssignments()
	if total < 240 || total > 246 {
		t.Errorf("TotalAssignments() = %d, want nearly all of the 246 usable LEDs", total)
	}
}

func TestAllocationDeterministic(t *testing.T) {
	l := threeKeyLayout(t)
	req := Request{
		Layout: l,
		Strip:  testStrip(t, 2, 30),
		Range:  ledstrip.CalibrationRange{StartLED: 0, EndLED: 11},
		Mode:   ModeSharing,
	}
	a, err := Allocate(req)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b, err := Allocate(req)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if diff := cmp.Diff(a.Mapping, b.Mapping); diff != "" {
		t.Errorf("repeated allocation differs (-first +second):\n%s", diff)
	}
}
