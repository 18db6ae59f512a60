// Package keylayout models the physical geometry of a piano keyboard: the
// millimetre position of every key and the exposed playing surface left on
// white keys after the black-key cutouts.
//
// Key identity uses two distinct types. KeyIndex is the zero-based position
// of a key on the keyboard; NoteNumber is a MIDI note. The two spaces are not
// interchangeable and conversion happens only through Layout.KeyForNote and
// Layout.NoteForKey.
package keylayout

import "fmt"

// KeyIndex is the zero-based position of a key within the keyboard.
type KeyIndex int

// NoteNumber is a MIDI note number (0-127).
type NoteNumber int

// KeyKind distinguishes white from black keys.
type KeyKind int

const (
	KindWhite KeyKind = iota
	KindBlack
)

func (k KeyKind) String() string {
	if k == KindBlack {
		return "black"
	}
	return "white"
}

// KeyGeometry is the physical footprint of a single key. StartMM/EndMM span
// the full key body; ExposedStartMM/ExposedEndMM span the visible playing
// surface after the neighbouring black-key cutouts. For black keys, and for
// the outer edge of the first and last white key, the exposed range equals
// the full range.
type KeyGeometry struct {
	Index    KeyIndex `json:"index"`
	Kind     KeyKind  `json:"kind"`
	StartMM  float64  `json:"start_mm"`
	EndMM    float64  `json:"end_mm"`
	CenterMM float64  `json:"center_mm"`

	ExposedStartMM  float64 `json:"exposed_start_mm"`
	ExposedEndMM    float64 `json:"exposed_end_mm"`
	ExposedCenterMM float64 `json:"exposed_center_mm"`
}

// ExposedWidthMM returns the width of the key's exposed playing surface.
func (g KeyGeometry) ExposedWidthMM() float64 {
	return g.ExposedEndMM - g.ExposedStartMM
}

// Params configures a keyboard layout. Zero-valued fields fall back to the
// defaults below.
type Params struct {
	// KeyCount is the number of keys on the keyboard (e.g. 88).
	KeyCount int
	// WhiteWidthMM is the width of a white key body.
	WhiteWidthMM float64
	// BlackWidthMM is the width of a black key body.
	BlackWidthMM float64
	// GapMM is the gap between adjacent white keys.
	GapMM float64
	// LowestNote overrides the preset lowest MIDI note for KeyCount.
	// Leave zero to use the preset.
	LowestNote NoteNumber
}

// Default key dimensions. White key spacing of 23.5mm centre-to-centre
// matches the common 164.5mm octave span.
const (
	DefaultWhiteWidthMM = 22.5
	DefaultBlackWidthMM = 13.7
	DefaultGapMM        = 1.0
)

// lowestNotePresets maps common keyboard sizes to their lowest MIDI note.
var lowestNotePresets = map[int]NoteNumber{
	88: 21, // A0
	76: 28, // E1
	61: 36, // C2
	49: 36, // C2
	37: 48, // C3
	25: 48, // C3
}

// blackSemitones marks the semitone offsets within an octave that are black.
var blackSemitones = [12]bool{
	false, true, false, true, false, false,
	true, false, true, false, true, false,
}

// IsBlackNote reports whether the given MIDI note is a black key.
func IsBlackNote(n NoteNumber) bool {
	if n < 0 {
		return false
	}
	return blackSemitones[int(n)%12]
}

// Layout is an immutable keyboard geometry table. Construct with New;
// the contained key table never changes afterwards.
type Layout struct {
	keys       []KeyGeometry
	lowestNote NoteNumber
	widthMM    float64
}

// New computes the geometry of every key for the given parameters.
//
// White keys are laid out edge to edge separated by GapMM. Each black key is
// centred on the boundary between its two flanking white keys, which cuts
// into both neighbours' exposed surfaces. The first and last key keep their
// full footprint exposed on the outer edge.
func New(p Params) (*Layout, error) {
	if p.KeyCount <= 0 {
		return nil, fmt.Errorf("keylayout: key count must be positive, got %d", p.KeyCount)
	}
	if p.WhiteWidthMM == 0 {
		p.WhiteWidthMM = DefaultWhiteWidthMM
	}
	if p.BlackWidthMM == 0 {
		p.BlackWidthMM = DefaultBlackWidthMM
	}
	if p.GapMM == 0 {
		p.GapMM = DefaultGapMM
	}
	if p.WhiteWidthMM <= 0 || p.BlackWidthMM <= 0 || p.GapMM < 0 {
		return nil, fmt.Errorf("keylayout: invalid key dimensions (white=%.2f black=%.2f gap=%.2f)",
			p.WhiteWidthMM, p.BlackWidthMM, p.GapMM)
	}
	if p.BlackWidthMM >= p.WhiteWidthMM {
		return nil, fmt.Errorf("keylayout: black key width %.2f must be narrower than white key width %.2f",
			p.BlackWidthMM, p.WhiteWidthMM)
	}

	lowest := p.LowestNote
	if lowest == 0 {
		preset, ok := lowestNotePresets[p.KeyCount]
		if !ok {
			return nil, fmt.Errorf("keylayout: no lowest-note preset for %d keys; set LowestNote explicitly", p.KeyCount)
		}
		lowest = preset
	}
	if IsBlackNote(lowest) {
		return nil, fmt.Errorf("keylayout: keyboard cannot start on a black key (note %d)", lowest)
	}

	keys := make([]KeyGeometry, p.KeyCount)
	cursor := 0.0 // start position of the next white key
	for i := range keys {
		note := lowest + NoteNumber(i)
		g := KeyGeometry{Index: KeyIndex(i)}
		if IsBlackNote(note) {
			// Centre the black key on the boundary between the flanking
			// white keys. The boundary sits half a gap past the previous
			// white key's end.
			g.Kind = KindBlack
			center := cursor - p.GapMM/2
			g.StartMM = center - p.BlackWidthMM/2
			g.EndMM = center + p.BlackWidthMM/2
		} else {
			g.Kind = KindWhite
			g.StartMM = cursor
			g.EndMM = cursor + p.WhiteWidthMM
			cursor = g.EndMM + p.GapMM
		}
		g.CenterMM = (g.StartMM + g.EndMM) / 2
		g.ExposedStartMM = g.StartMM
		g.ExposedEndMM = g.EndMM
		keys[i] = g
	}

	// Black-key cutouts: each black key shaves its footprint off the exposed
	// range of both flanking white keys.
	for i := range keys {
		if keys[i].Kind != KindBlack {
			continue
		}
		if i > 0 && keys[i-1].Kind == KindWhite && keys[i].StartMM < keys[i-1].ExposedEndMM {
			keys[i-1].ExposedEndMM = keys[i].StartMM
		}
		if i+1 < len(keys) && keys[i+1].Kind == KindWhite && keys[i].EndMM > keys[i+1].ExposedStartMM {
			keys[i+1].ExposedStartMM = keys[i].EndMM
		}
	}
	width := 0.0
	for i := range keys {
		keys[i].ExposedCenterMM = (keys[i].ExposedStartMM + keys[i].ExposedEndMM) / 2
		if keys[i].EndMM > width {
			width = keys[i].EndMM
		}
		if i > 0 && keys[i].StartMM <= keys[i-1].StartMM {
			// Should be impossible for valid parameters; a non-monotonic
			// layout would corrupt every downstream allocation.
			return nil, fmt.Errorf("keylayout: non-monotonic layout at key %d", i)
		}
	}

	return &Layout{keys: keys, lowestNote: lowest, widthMM: width}, nil
}

// KeyCount returns the number of keys in the layout.
func (l *Layout) KeyCount() int { return len(l.keys) }

// WidthMM returns the total physical width of the keyboard.
func (l *Layout) WidthMM() float64 { return l.widthMM }

// LowestNote returns the MIDI note of key index 0.
func (l *Layout) LowestNote() NoteNumber { return l.lowestNote }

// Keys returns the full key table in key-index order. Callers must not
// modify the returned slice.
func (l *Layout) Keys() []KeyGeometry { return l.keys }

// Key returns the geometry for a single key index.
func (l *Layout) Key(i KeyIndex) (KeyGeometry, bool) {
	if i < 0 || int(i) >= len(l.keys) {
		return KeyGeometry{}, false
	}
	return l.keys[i], true
}

// KeyForNote converts a MIDI note to a key index. This is the only
// supported conversion from note space to key space.
func (l *Layout) KeyForNote(n NoteNumber) (KeyIndex, bool) {
	i := int(n - l.lowestNote)
	if i < 0 || i >= len(l.keys) {
		return 0, false
	}
	return KeyIndex(i), true
}

// NoteForKey converts a key index to its MIDI note.
func (l *Layout) NoteForKey(i KeyIndex) (NoteNumber, bool) {
	if i < 0 || int(i) >= len(l.keys) {
		return 0, false
	}
	return l.lowestNote + NoteNumber(i), true
}
