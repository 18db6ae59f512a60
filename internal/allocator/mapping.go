package allocator

import (
	"sort"

	"github.com/agwosdz/pianoled/internal/keylayout"
)

// Mapping associates each key index with the ascending LED indices assigned
// to it. Every key of the keyboard appears in the mapping, with an empty
// sequence when no LED serves it; downstream consumers iterate all key
// indices and must never find one missing.
type Mapping map[keylayout.KeyIndex][]int

// NewMapping returns a mapping with an empty sequence for every key in
// [0, keyCount).
func NewMapping(keyCount int) Mapping {
	m := make(Mapping, keyCount)
	for i := 0; i < keyCount; i++ {
		m[keylayout.KeyIndex(i)] = []int{}
	}
	return m
}

// Clone returns a deep copy. Sequences are copied so the clone can be
// modified without aliasing the original.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, seq := range m {
		cp := make([]int, len(seq))
		copy(cp, seq)
		out[k] = cp
	}
	return out
}

// SortedKeys returns the key indices in ascending order.
func (m Mapping) SortedKeys() []keylayout.KeyIndex {
	keys := make([]keylayout.KeyIndex, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// TotalAssignments returns the total number of key-to-LED assignments. An
// LED shared by two keys counts twice.
func (m Mapping) TotalAssignments() int {
	n := 0
	for _, seq := range m {
		n += len(seq)
	}
	return n
}

// SharedLEDs returns the number of LED indices assigned to more than one
// key.
func (m Mapping) SharedLEDs() int {
	seen := make(map[int]int)
	for _, seq := range m {
		for _, led := range seq {
			seen[led]++
		}
	}
	shared := 0
	for _, n := range seen {
		if n > 1 {
			shared++
		}
	}
	return shared
}

// MaxAssigned returns the highest LED index present in the mapping, or
// ok=false when the mapping is entirely empty.
func (m Mapping) MaxAssigned() (int, bool) {
	max, ok := 0, false
	for _, seq := range m {
		for _, led := range seq {
			if !ok || led > max {
				max, ok = led, true
			}
		}
	}
	return max, ok
}

// MinAssigned returns the lowest LED index present in the mapping, or
// ok=false when the mapping is entirely empty.
func (m Mapping) MinAssigned() (int, bool) {
	min, ok := 0, false
	for _, seq := range m {
		for _, led := range seq {
			if !ok || led < min {
				min, ok = led, true
			}
		}
	}
	return min, ok
}

// CountDistribution returns a histogram of sequence lengths: how many keys
// carry 0, 1, 2... LEDs.
func (m Mapping) CountDistribution() map[int]int {
	dist := make(map[int]int)
	for _, seq := range m {
		dist[len(seq)]++
	}
	return dist
}
