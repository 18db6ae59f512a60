package db

import "fmt"

// Adjustment tables are keyed by key index (zero-based keyboard position),
// never by MIDI note number. Callers translating from a note-number surface
// convert through keylayout before touching these tables.

// KeyOffsets returns every stored per-key LED offset.
func (db *DB) KeyOffsets() (map[int]int, error) {
	rows, err := db.Query(`SELECT key_index, led_offset FROM key_offsets ORDER BY key_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query key offsets: %w", err)
	}
	defer rows.Close()

	offsets := make(map[int]int)
	for rows.Next() {
		var key, offset int
		if err := rows.Scan(&key, &offset); err != nil {
			return nil, fmt.Errorf("failed to scan key offset: %w", err)
		}
		offsets[key] = offset
	}
	return offsets, rows.Err()
}

// SetKeyOffset stores the offset for one key. A zero offset deletes any
// stored entry rather than recording a zero row: storage holds only
// meaningful adjustments, so "cleared" and "never set" are the same state.
func (db *DB) SetKeyOffset(keyIndex, offset int) error {
	if offset == 0 {
		if _, err := db.Exec(`DELETE FROM key_offsets WHERE key_index = ?`, keyIndex); err != nil {
			return fmt.Errorf("failed to clear offset for key %d: %w", keyIndex, err)
		}
		return nil
	}
	_, err := db.Exec(`INSERT INTO key_offsets (key_index, led_offset) VALUES (?, ?)
	                   ON CONFLICT(key_index) DO UPDATE SET led_offset = excluded.led_offset`,
		keyIndex, offset)
	if err != nil {
		return fmt.Errorf("failed to store offset for key %d: %w", keyIndex, err)
	}
	return nil
}

// ClearKeyOffsets removes every stored offset.
func (db *DB) ClearKeyOffsets() error {
	if _, err := db.Exec(`DELETE FROM key_offsets`); err != nil {
		return fmt.Errorf("failed to clear key offsets: %w", err)
	}
	return nil
}

// KeyTrim is one key's stored trim pair.
type KeyTrim struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// KeyTrims returns every stored per-key trim.
func (db *DB) KeyTrims() (map[int]KeyTrim, error) {
	rows, err := db.Query(`SELECT key_index, left_trim, right_trim FROM key_trims ORDER BY key_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query key trims: %w", err)
	}
	defer rows.Close()

	trims := make(map[int]KeyTrim)
	for rows.Next() {
		var key int
		var t KeyTrim
		if err := rows.Scan(&key, &t.Left, &t.Right); err != nil {
			return nil, fmt.Errorf("failed to scan key trim: %w", err)
		}
		trims[key] = t
	}
	return trims, rows.Err()
}

// SetKeyTrim stores the trim pair for one key as a unit. Storing (0,0)
// deletes the stored entry; a zero trim must never linger as a row that
// later merges oddly with partial updates.
func (db *DB) SetKeyTrim(keyIndex, left, right int) error {
	if left < 0 || right < 0 {
		return fmt.Errorf("trim counts must be non-negative, got (%d, %d)", left, right)
	}
	if left == 0 && right == 0 {
		if _, err := db.Exec(`DELETE FROM key_trims WHERE key_index = ?`, keyIndex); err != nil {
			return fmt.Errorf("failed to clear trim for key %d: %w", keyIndex, err)
		}
		return nil
	}
	_, err := db.Exec(`INSERT INTO key_trims (key_index, left_trim, right_trim) VALUES (?, ?, ?)
	                   ON CONFLICT(key_index) DO UPDATE SET left_trim = excluded.left_trim, right_trim = excluded.right_trim`,
		keyIndex, left, right)
	if err != nil {
		return fmt.Errorf("failed to store trim for key %d: %w", keyIndex, err)
	}
	return nil
}

// ClearKeyTrims removes every stored trim.
func (db *DB) ClearKeyTrims() error {
	if _, err := db.Exec(`DELETE FROM key_trims`); err != nil {
		return fmt.Errorf("failed to clear key trims: %w", err)
	}
	return nil
}
