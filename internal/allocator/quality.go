package allocator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/ledstrip"
)

// Quality bucket thresholds on the symmetry score.
const (
	bucketExcellent = 0.90
	bucketGood      = 0.75
	bucketFair      = 0.50
)

// KeyQuality grades one key's LED assignment against its exposed surface.
type KeyQuality struct {
	Key      keylayout.KeyIndex `json:"key"`
	LEDCount int                `json:"led_count"`

	// CoverageMM is the length of the union of assigned LED footprints
	// intersected with the exposed range. Intersecting with the exposed
	// range (not the full key body) keeps keys next to black-key cutouts
	// from reporting inflated coverage.
	CoverageMM float64 `json:"coverage_mm"`

	// Symmetry scores how centred the LED group is on the exposed surface,
	// 1.0 meaning perfectly centred.
	Symmetry float64 `json:"symmetry"`

	// OverhangLeftMM/OverhangRightMM measure how far the group's footprint
	// extends past the exposed edges; zero when within bounds.
	OverhangLeftMM  float64 `json:"overhang_left_mm"`
	OverhangRightMM float64 `json:"overhang_right_mm"`

	// Consistency scores the evenness of gaps between consecutive LEDs
	// relative to the key width, 1.0 meaning perfectly even.
	Consistency float64 `json:"consistency"`
}

// QualityReport aggregates per-key grades for a whole mapping.
type QualityReport struct {
	Keys            []KeyQuality   `json:"keys"`
	MeanSymmetry    float64        `json:"mean_symmetry"`
	MeanConsistency float64        `json:"mean_consistency"`
	Buckets         map[string]int `json:"buckets"`
	EmptyKeys       int            `json:"empty_keys"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// AnalyzeQuality grades a finished mapping. Pure read; the mapping is not
// modified and nothing is cached.
func AnalyzeQuality(layout *keylayout.Layout, strip ledstrip.Strip, rng ledstrip.CalibrationRange, m Mapping) QualityReport {
	report := QualityReport{
		Keys:    make([]KeyQuality, 0, layout.KeyCount()),
		Buckets: map[string]int{"excellent": 0, "good": 0, "fair": 0, "poor": 0},
	}
	off := stripOffsetMM(strip, rng)
	half := strip.HalfWidthMM()

	var symmetries, consistencies []float64
	for _, key := range layout.Keys() {
		seq := m[key.Index]
		kq := KeyQuality{Key: key.Index, LEDCount: len(seq)}
		if len(seq) == 0 {
			report.EmptyKeys++
			report.Keys = append(report.Keys, kq)
			continue
		}

		positions := make([]float64, len(seq))
		for i, led := range seq {
			positions[i] = strip.PositionMM(led) - off
		}

		kq.CoverageMM = footprintCoverage(positions, half, key.ExposedStartMM, key.ExposedEndMM)

		groupStart := positions[0] - half
		groupEnd := positions[len(positions)-1] + half
		groupCenter := (groupStart + groupEnd) / 2
		halfWidth := key.ExposedWidthMM() / 2
		if halfWidth > 0 {
			kq.Symmetry = clamp01(1 - math.Abs(groupCenter-key.ExposedCenterMM)/halfWidth)
		}
		kq.OverhangLeftMM = math.Max(0, key.ExposedStartMM-groupStart)
		kq.OverhangRightMM = math.Max(0, groupEnd-key.ExposedEndMM)
		kq.Consistency = gapConsistency(positions, key.ExposedWidthMM())

		symmetries = append(symmetries, kq.Symmetry)
		consistencies = append(consistencies, kq.Consistency)
		report.Buckets[bucketFor(kq.Symmetry)]++
		report.Keys = append(report.Keys, kq)
	}

	if len(symmetries) > 0 {
		report.MeanSymmetry = stat.Mean(symmetries, nil)
		report.MeanConsistency = stat.Mean(consistencies, nil)
	}
	if rng.Count() < layout.KeyCount() {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("only %d usable LEDs for %d keys; some keys will stay dark", rng.Count(), layout.KeyCount()))
	}
	if report.EmptyKeys > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d keys have no LEDs assigned", report.EmptyKeys))
	}
	return report
}

// footprintCoverage computes the length of the union of LED footprints
// clipped to [exposedStart, exposedEnd]. Positions must be ascending, which
// allocation guarantees.
func footprintCoverage(positions []float64, half, exposedStart, exposedEnd float64) float64 {
	total := 0.0
	curStart, curEnd := positions[0]-half, positions[0]+half
	flush := func() {
		lo := math.Max(curStart, exposedStart)
		hi := math.Min(curEnd, exposedEnd)
		if hi > lo {
			total += hi - lo
		}
	}
	for _, p := range positions[1:] {
		start, end := p-half, p+half
		if start <= curEnd {
			if end > curEnd {
				curEnd = end
			}
			continue
		}
		flush()
		curStart, curEnd = start, end
	}
	flush()
	return total
}

// gapConsistency scores how evenly the LEDs are spread. With fewer than two
// LEDs there is nothing to be uneven, so the score is 1.
func gapConsistency(positions []float64, keyWidthMM float64) float64 {
	if len(positions) < 2 || keyWidthMM <= 0 {
		return 1
	}
	gaps := make([]float64, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		gaps[i-1] = positions[i] - positions[i-1]
	}
	sd := stat.StdDev(gaps, nil)
	if math.IsNaN(sd) {
		return 1
	}
	return clamp01(1 - sd/keyWidthMM)
}

// Bucket grades the key by its symmetry score.
func (q KeyQuality) Bucket() string {
	return bucketFor(q.Symmetry)
}

func bucketFor(symmetry float64) string {
	switch {
	case symmetry >= bucketExcellent:
		return "excellent"
	case symmetry >= bucketGood:
		return "good"
	case symmetry >= bucketFair:
		return "fair"
	default:
		return "poor"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
