package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/agwosdz/pianoled/internal/allocator"
	"github.com/agwosdz/pianoled/internal/config"
	"github.com/agwosdz/pianoled/internal/httputil"
	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/leddriver"
	"github.com/agwosdz/pianoled/internal/ledstrip"
	"github.com/agwosdz/pianoled/internal/monitoring"
	"github.com/agwosdz/pianoled/internal/version"
)

// snapshotsToKeep bounds the mapping history retained in the settings store.
const snapshotsToKeep = 20

// allocationInputs builds the engine inputs from the active configuration.
func allocationInputs(cfg *config.LightingConfig) (*keylayout.Layout, ledstrip.Strip, ledstrip.CalibrationRange, error) {
	layout, err := keylayout.New(keylayout.Params{
		KeyCount:     cfg.GetKeyCount(),
		WhiteWidthMM: cfg.GetWhiteWidthMM(),
		BlackWidthMM: cfg.GetBlackWidthMM(),
		GapMM:        cfg.GetKeyGapMM(),
		LowestNote:   keylayout.NoteNumber(cfg.GetLowestNote()),
	})
	if err != nil {
		return nil, ledstrip.Strip{}, ledstrip.CalibrationRange{}, err
	}
	strip, err := ledstrip.FromDensity(cfg.GetLEDsPerMeter(), cfg.GetLEDCount())
	if err != nil {
		return nil, ledstrip.Strip{}, ledstrip.CalibrationRange{}, err
	}
	rng := ledstrip.CalibrationRange{StartLED: cfg.GetStartLED(), EndLED: cfg.GetEndLED()}
	return layout, strip, rng, nil
}

// runAllocation executes the full pipeline: allocate, load stored
// adjustments, apply them, and return both the raw and adjusted mapping.
func (s *Server) runAllocation() (*allocator.Result, allocator.Mapping, error) {
	layout, strip, rng, err := allocationInputs(s.cfg)
	if err != nil {
		return nil, nil, err
	}

	res, err := allocator.Allocate(allocator.Request{
		Layout:              layout,
		Strip:               strip,
		Range:               rng,
		Mode:                allocator.Mode(s.cfg.GetMode()),
		OverhangThresholdMM: s.cfg.GetOverhangThresholdMM(),
	})
	if err != nil {
		return nil, nil, err
	}

	rawOffsets, err := s.db.KeyOffsets()
	if err != nil {
		return nil, nil, err
	}
	rawTrims, err := s.db.KeyTrims()
	if err != nil {
		return nil, nil, err
	}

	offsets := make(allocator.Offsets, len(rawOffsets))
	for k, v := range rawOffsets {
		offsets[keylayout.KeyIndex(k)] = v
	}
	trims := make(allocator.Trims, len(rawTrims))
	for k, v := range rawTrims {
		trims[keylayout.KeyIndex(k)] = allocator.Trim{Left: v.Left, Right: v.Right}
	}

	final := allocator.ApplyAdjustments(res.Mapping, offsets, trims,
		allocator.Bounds{Low: 0, High: s.cfg.GetLEDCount() - 1})
	return res, final, nil
}

type mappingResponse struct {
	ID               string                     `json:"id,omitempty"`
	Mapping          allocator.Mapping          `json:"mapping"`
	Calibration      allocator.PitchCalibration `json:"calibration"`
	Quality          allocator.QualityReport    `json:"quality"`
	EffectivePitchMM float64                    `json:"effective_pitch_mm"`
}

// handleMapping generates a mapping on POST and returns the latest stored
// one on GET.
func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.generateMapping(w, r)
	case http.MethodGet:
		s.latestMapping(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) generateMapping(w http.ResponseWriter, r *http.Request) {
	res, final, err := s.runAllocation()
	if err != nil {
		if errors.Is(err, ledstrip.ErrInvalidRange) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}

	mappingJSON, err := json.Marshal(final)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	calibrationJSON, err := json.Marshal(res.Calibration)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	id, err := s.db.SaveMappingSnapshot(s.cfg.GetMode(), mappingJSON, calibrationJSON)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if err := s.db.PruneMappingSnapshots(snapshotsToKeep); err != nil {
		monitoring.Logf("api: prune snapshots: %v", err)
	}

	if s.painter != nil {
		if err := s.painter.SetMapping(final); err != nil {
			monitoring.Logf("api: push mapping to strip: %v", err)
		}
	}

	httputil.WriteJSONOK(w, mappingResponse{
		ID:               id,
		Mapping:          final,
		Calibration:      res.Calibration,
		Quality:          res.Quality,
		EffectivePitchMM: res.EffectivePitchMM,
	})
}

func (s *Server) latestMapping(w http.ResponseWriter, r *http.Request) {
	snap, err := s.db.LatestMappingSnapshot()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if snap == nil {
		httputil.NotFound(w, "no mapping generated yet")
		return
	}
	httputil.WriteJSONOK(w, snap)
}

// handleQuality runs a fresh allocation and returns only the quality report.
func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, _, err := s.runAllocation()
	if err != nil {
		if errors.Is(err, ledstrip.ErrInvalidRange) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, res.Quality)
}

// handleConfig reports the resolved configuration values.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version":               version.String(),
		"key_count":             s.cfg.GetKeyCount(),
		"white_width_mm":        s.cfg.GetWhiteWidthMM(),
		"black_width_mm":        s.cfg.GetBlackWidthMM(),
		"key_gap_mm":            s.cfg.GetKeyGapMM(),
		"led_count":             s.cfg.GetLEDCount(),
		"leds_per_meter":        s.cfg.GetLEDsPerMeter(),
		"start_led":             s.cfg.GetStartLED(),
		"end_led":               s.cfg.GetEndLED(),
		"mode":                  s.cfg.GetMode(),
		"overhang_threshold_mm": s.cfg.GetOverhangThresholdMM(),
	})
}

// handleAdjustments reports stored offsets and trims on GET and clears both
// tables on DELETE.
func (s *Server) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		offsets, err := s.db.KeyOffsets()
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		trims, err := s.db.KeyTrims()
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{"offsets": offsets, "trims": trims})
	case http.MethodDelete:
		if err := s.db.ClearKeyOffsets(); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		if err := s.db.ClearKeyTrims(); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"status": "cleared"})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// adjustmentTarget identifies the key an adjustment applies to. Requests
// may address keys by key index or by MIDI note; notes are converted to key
// indices here, at the boundary, so everything below the API speaks key
// indices only.
type adjustmentTarget struct {
	KeyIndex *int `json:"key_index,omitempty"`
	Note     *int `json:"note,omitempty"`
}

func (s *Server) resolveKeyIndex(t adjustmentTarget) (int, error) {
	if t.KeyIndex == nil && t.Note == nil {
		return 0, fmt.Errorf("one of key_index or note is required")
	}
	if t.KeyIndex != nil && t.Note != nil {
		return 0, fmt.Errorf("key_index and note are mutually exclusive")
	}
	if t.Note != nil {
		layout, _, _, err := allocationInputs(s.cfg)
		if err != nil {
			return 0, err
		}
		key, ok := layout.KeyForNote(keylayout.NoteNumber(*t.Note))
		if !ok {
			return 0, fmt.Errorf("note %d outside the %d-key keyboard", *t.Note, layout.KeyCount())
		}
		return int(key), nil
	}
	if *t.KeyIndex < 0 || *t.KeyIndex >= s.cfg.GetKeyCount() {
		return 0, fmt.Errorf("key_index %d outside [0, %d]", *t.KeyIndex, s.cfg.GetKeyCount()-1)
	}
	return *t.KeyIndex, nil
}

func (s *Server) handleOffset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		adjustmentTarget
		Offset int `json:"offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	key, err := s.resolveKeyIndex(req.adjustmentTarget)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.db.SetKeyOffset(key, req.Offset); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]int{"key_index": key, "offset": req.Offset})
}

func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		adjustmentTarget
		Left  int `json:"left"`
		Right int `json:"right"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	key, err := s.resolveKeyIndex(req.adjustmentTarget)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Left < 0 || req.Right < 0 {
		httputil.BadRequest(w, "trim counts must be non-negative")
		return
	}
	if err := s.db.SetKeyTrim(key, req.Left, req.Right); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]int{"key_index": key, "left": req.Left, "right": req.Right})
}

// handleTestPattern lights every LED of the usable range briefly-bright so
// installers can verify wiring. Requires a painter.
func (s *Server) handleTestPattern(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.painter == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no LED driver configured")
		return
	}
	_, final, err := s.runAllocation()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if err := s.painter.SetMapping(final); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	lit := 0
	for _, k := range final.SortedKeys() {
		if len(final[k]) == 0 {
			continue
		}
		if err := s.painter.LightKey(k, leddriver.Color{R: 40, G: 40, B: 40}); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		lit++
	}
	httputil.WriteJSONOK(w, map[string]int{"keys_lit": lit})
}
