package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// MappingSnapshot is one stored allocation result: the mapping and the
// pitch-calibration decision that produced it, serialised as JSON. The
// calibration is stored alongside the mapping and never recomputed from
// later state.
type MappingSnapshot struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	MappingJSON     string `json:"mapping_json"`
	CalibrationJSON string `json:"calibration_json"`
	CreatedAt       string `json:"created_at"`
}

// SaveMappingSnapshot stores a generated mapping and returns its id.
func (db *DB) SaveMappingSnapshot(mode string, mappingJSON, calibrationJSON []byte) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO mapping_snapshots (id, mode, mapping_json, calibration_json) VALUES (?, ?, ?, ?)`,
		id, mode, string(mappingJSON), string(calibrationJSON))
	if err != nil {
		return "", fmt.Errorf("failed to store mapping snapshot: %w", err)
	}
	return id, nil
}

// LatestMappingSnapshot returns the most recent snapshot, or nil when none
// has been stored.
func (db *DB) LatestMappingSnapshot() (*MappingSnapshot, error) {
	var s MappingSnapshot
	err := db.QueryRow(`SELECT id, mode, mapping_json, calibration_json, created_at
	                    FROM mapping_snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`).
		Scan(&s.ID, &s.Mode, &s.MappingJSON, &s.CalibrationJSON, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest mapping snapshot: %w", err)
	}
	return &s, nil
}

// MappingSnapshot returns a snapshot by id, or nil when absent.
func (db *DB) MappingSnapshot(id string) (*MappingSnapshot, error) {
	var s MappingSnapshot
	err := db.QueryRow(`SELECT id, mode, mapping_json, calibration_json, created_at
	                    FROM mapping_snapshots WHERE id = ?`, id).
		Scan(&s.ID, &s.Mode, &s.MappingJSON, &s.CalibrationJSON, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping snapshot %s: %w", id, err)
	}
	return &s, nil
}

// PruneMappingSnapshots keeps the newest n snapshots and deletes the rest.
func (db *DB) PruneMappingSnapshots(keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := db.Exec(`DELETE FROM mapping_snapshots WHERE id NOT IN (
	                     SELECT id FROM mapping_snapshots ORDER BY created_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune mapping snapshots: %w", err)
	}
	return nil
}
