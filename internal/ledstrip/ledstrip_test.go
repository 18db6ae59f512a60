package ledstrip

import (
	"errors"
	"math"
	"testing"
)

func TestNewValidates(t *testing.T) {
	if _, err := New(0, 100); err == nil {
		t.Error("New(0, 100) succeeded, want error")
	}
	if _, err := New(5, 0); err == nil {
		t.Error("New(5, 0) succeeded, want error")
	}
	s, err := New(5, 300)
	if err != nil {
		t.Fatalf("New(5, 300) failed: %v", err)
	}
	if s.PitchMM != 5 || s.Count != 300 {
		t.Errorf("New(5, 300) = %+v", s)
	}
}

func TestFromDensity(t *testing.T) {
	tests := []struct {
		name      string
		density   float64
		wantPitch float64
	}{
		{"30/m", 30, 33.333333333333336},
		{"60/m", 60, 16.666666666666668},
		{"144/m", 144, 6.944444444444445},
		{"200/m", 200, 5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromDensity(tt.density, 300)
			if err != nil {
				t.Fatalf("FromDensity(%v) failed: %v", tt.density, err)
			}
			if math.Abs(s.PitchMM-tt.wantPitch) > 1e-9 {
				t.Errorf("pitch = %v, want %v", s.PitchMM, tt.wantPitch)
			}
		})
	}
	if _, err := FromDensity(0, 300); err == nil {
		t.Error("FromDensity(0) succeeded, want error")
	}
}

func TestPositionMMUsesAbsoluteIndex(t *testing.T) {
	s, _ := New(5, 300)
	// Index 0 sits at 0mm regardless of any calibration range; the
	// placement model never deals in range-relative offsets.
	if got := s.PositionMM(0); got != 0 {
		t.Errorf("PositionMM(0) = %v, want 0", got)
	}
	if got := s.PositionMM(4); got != 20 {
		t.Errorf("PositionMM(4) = %v, want 20", got)
	}
	if got := s.PositionMM(249); got != 1245 {
		t.Errorf("PositionMM(249) = %v, want 1245", got)
	}
}

func TestIndicesWithin(t *testing.T) {
	s, _ := New(5, 300)
	tests := []struct {
		name      string
		low, high float64
		first     int
		last      int
	}{
		{"exact edges inclusive", 10, 20, 2, 4},
		{"interior", 11, 19, 3, 3},
		{"empty range", 11, 13, 3, 2},
		{"negative low clips to zero-centre", -2, 2, 0, 0},
		{"single point on centre", 15, 15, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := s.IndicesWithin(tt.low, tt.high)
			if first != tt.first || last != tt.last {
				t.Errorf("IndicesWithin(%v, %v) = (%d, %d), want (%d, %d)",
					tt.low, tt.high, first, last, tt.first, tt.last)
			}
		})
	}
}

func TestCalibrationRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       CalibrationRange
		count   int
		wantErr bool
	}{
		{"valid full strip", CalibrationRange{0, 299}, 300, false},
		{"valid sub range", CalibrationRange{4, 249}, 300, false},
		{"single LED", CalibrationRange{10, 10}, 300, false},
		{"inverted", CalibrationRange{50, 40}, 300, true},
		{"negative start", CalibrationRange{-1, 10}, 300, true},
		{"end past strip", CalibrationRange{0, 300}, 300, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate(tt.count)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRange) {
				t.Errorf("error %v does not wrap ErrInvalidRange", err)
			}
		})
	}
}

func TestCalibrationRangeCount(t *testing.T) {
	if got := (CalibrationRange{4, 249}).Count(); got != 246 {
		t.Errorf("Count() = %d, want 246", got)
	}
	if got := (CalibrationRange{7, 7}).Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, low, high, want int
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in, tt.low, tt.high); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.in, tt.low, tt.high, got, tt.want)
		}
	}
}
