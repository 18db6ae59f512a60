package allocator

import (
	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/monitoring"
)

// Offsets maps a key index to a signed LED-index shift. An offset cascades:
// it accumulates onto every key of equal or higher index.
//
// Offsets (and Trims) are keyed by key index, the same space as the mapping.
// Callers holding adjustments in note-number space must convert through
// keylayout before calling; passing note numbers here silently misaligns
// every adjustment.
type Offsets map[keylayout.KeyIndex]int

// Trim removes a count of LEDs from the front (Left) and back (Right) of a
// key's sequence. Trimmed LEDs move to the neighbouring key rather than
// being discarded.
type Trim struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// IsZero reports whether the trim removes nothing.
func (t Trim) IsZero() bool { return t.Left == 0 && t.Right == 0 }

// Trims maps a key index to its trim.
type Trims map[keylayout.KeyIndex]Trim

// Bounds is the inclusive LED index range the final mapping is clamped to.
type Bounds struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// trimmedRun records LEDs removed from one key, awaiting redistribution.
type trimmedRun struct {
	key  keylayout.KeyIndex
	leds []int
}

// ApplyAdjustments applies the offset cascade and trims to a base mapping
// and returns the final mapping. Pure function: the inputs are never
// mutated, and zero offsets with zero trims return an equal copy of the
// base.
//
// Pass one walks keys in ascending order, accumulating the running offset
// and shifting each sequence, then trims the shifted sequence, setting the
// removed LEDs aside tagged by side. Pass two hands left-trimmed LEDs to the
// nearest lower key and right-trimmed LEDs to the nearest higher key; the
// lowest key's left trim and the highest key's right trim fall off the
// keyboard edge and are discarded. Finally every index is clamped to bounds,
// saturating rather than wrapping.
func ApplyAdjustments(base Mapping, offsets Offsets, trims Trims, bounds Bounds) Mapping {
	out := make(Mapping, len(base))
	keys := base.SortedKeys()

	var leftRuns, rightRuns []trimmedRun

	running := 0
	for _, k := range keys {
		running += offsets[k]

		seq := make([]int, len(base[k]))
		for i, led := range base[k] {
			seq[i] = led + running
		}

		trim, ok := trims[k]
		if ok && !trim.IsZero() && len(seq) > 0 {
			left, right := trim.Left, trim.Right
			if left+right > len(seq) {
				monitoring.Logf("allocator: trim (%d,%d) on key %d exceeds %d LEDs; clamping", left, right, k, len(seq))
				if left > len(seq) {
					left = len(seq)
				}
				if right > len(seq)-left {
					right = len(seq) - left
				}
			}
			trimmed := seq[left : len(seq)-right]
			if len(trimmed) == 0 {
				// Never empty a playable key through an adjustment when the
				// pre-trim sequence had LEDs; keep it and skip redistribution.
				monitoring.Logf("allocator: trim (%d,%d) would empty key %d; keeping %d LEDs", trim.Left, trim.Right, k, len(seq))
			} else {
				if left > 0 {
					leftRuns = append(leftRuns, trimmedRun{key: k, leds: append([]int(nil), seq[:left]...)})
				}
				if right > 0 {
					rightRuns = append(rightRuns, trimmedRun{key: k, leds: append([]int(nil), seq[len(seq)-right:]...)})
				}
				seq = append([]int(nil), trimmed...)
			}
		}
		out[k] = seq
	}

	// Redistribution pass.
	for _, run := range leftRuns {
		if dst, ok := nearestLower(keys, run.key); ok {
			out[dst] = append(out[dst], run.leds...)
		}
		// No lower key: these LEDs sit past the keyboard's left edge.
	}
	for _, run := range rightRuns {
		if dst, ok := nearestHigher(keys, run.key); ok {
			out[dst] = append(run.leds, out[dst]...)
		}
		// No higher key: past the right edge, discarded.
	}

	// Bounds clamp. Saturate at the strip ends; an offset that pushes a key
	// off the strip must not corrupt the hardware buffer.
	for k, seq := range out {
		for i, led := range seq {
			if led < bounds.Low {
				seq[i] = bounds.Low
			} else if led > bounds.High {
				seq[i] = bounds.High
			}
		}
		out[k] = seq
	}
	return out
}

// nearestLower returns the closest key index below k present in the sorted
// key list.
func nearestLower(keys []keylayout.KeyIndex, k keylayout.KeyIndex) (keylayout.KeyIndex, bool) {
	var best keylayout.KeyIndex
	found := false
	for _, cand := range keys {
		if cand >= k {
			break
		}
		best, found = cand, true
	}
	return best, found
}

// nearestHigher returns the closest key index above k present in the sorted
// key list.
func nearestHigher(keys []keylayout.KeyIndex, k keylayout.KeyIndex) (keylayout.KeyIndex, bool) {
	for _, cand := range keys {
		if cand > k {
			return cand, true
		}
	}
	return 0, false
}
