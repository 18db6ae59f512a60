package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agwosdz/pianoled/internal/config"
	"github.com/agwosdz/pianoled/internal/db"
	"github.com/agwosdz/pianoled/internal/leddriver"
)

// newTestServer builds a server over a fresh temp-dir database and a
// mock-driver painter. The default config (88 keys, 300 LEDs) is used
// unless mutate tweaks it.
func newTestServer(t *testing.T, mutate func(*config.LightingConfig)) (*Server, *leddriver.MockDriver) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.Empty()
	if mutate != nil {
		mutate(cfg)
	}

	mock := leddriver.NewMockDriver(cfg.GetLEDCount())
	painter := leddriver.NewPainter(mock, nil)
	return NewServer(cfg, database, painter), mock
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestConfigEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	rec := doJSON(t, mux, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.EqualValues(t, 88, resp["key_count"])
	require.EqualValues(t, 300, resp["led_count"])
	require.Equal(t, "sharing", resp["mode"])

	rec = doJSON(t, mux, http.MethodPost, "/api/config", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGenerateMapping(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mux := s.ServeMux()

	rec := doJSON(t, mux, http.MethodPost, "/api/mapping", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp mappingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.ID)
	require.Len(t, resp.Mapping, 88)
	require.Greater(t, resp.EffectivePitchMM, 0.0)
	require.NotEmpty(t, resp.Quality.Keys)

	// The painter pushes the new mapping, clearing the strip.
	require.Greater(t, mock.FrameCount(), 0)

	// GET now returns the stored snapshot.
	rec = doJSON(t, mux, http.MethodGet, "/api/mapping", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap db.MappingSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	require.Equal(t, resp.ID, snap.ID)
	require.Equal(t, "sharing", snap.Mode)
	require.NotEmpty(t, snap.MappingJSON)
}

func TestMappingBeforeGenerate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s.ServeMux(), http.MethodGet, "/api/mapping", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateMappingBadRange(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.LightingConfig) {
		start, end := 50, 10
		cfg.StartLED = &start
		cfg.EndLED = &end
	})

	rec := doJSON(t, s.ServeMux(), http.MethodPost, "/api/mapping", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQualityEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s.ServeMux(), http.MethodGet, "/api/quality", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Keys    []json.RawMessage `json:"keys"`
		Buckets map[string]int    `json:"buckets"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Keys, 88)

	total := 0
	for _, n := range resp.Buckets {
		total += n
	}
	require.Equal(t, 88, total)
}

func TestOffsetByKeyIndex(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	key := 10
	rec := doJSON(t, mux, http.MethodPut, "/api/adjustments/offset",
		map[string]interface{}{"key_index": key, "offset": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/adjustments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Offsets map[string]int `json:"offsets"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.Offsets[fmt.Sprintf("%d", key)])
}

func TestOffsetByNote(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	// Middle C on an 88-key keyboard is key index 39.
	rec := doJSON(t, mux, http.MethodPut, "/api/adjustments/offset",
		map[string]interface{}{"note": 60, "offset": -1})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 39, resp["key_index"])
}

func TestOffsetValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	cases := []map[string]interface{}{
		{"offset": 1},                            // no target
		{"key_index": 3, "note": 60, "offset": 1}, // both targets
		{"key_index": 88, "offset": 1},           // out of range
		{"note": 10, "offset": 1},                // below lowest note
	}
	for _, body := range cases {
		rec := doJSON(t, mux, http.MethodPut, "/api/adjustments/offset", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %v", body)
	}
}

func TestTrimEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	rec := doJSON(t, mux, http.MethodPut, "/api/adjustments/trim",
		map[string]interface{}{"key_index": 5, "left": 1, "right": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/adjustments/trim",
		map[string]interface{}{"key_index": 5, "left": -1, "right": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Trims map[string]db.KeyTrim `json:"trims"`
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/adjustments", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, db.KeyTrim{Left: 1, Right: 2}, resp.Trims["5"])
}

func TestClearAdjustments(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	rec := doJSON(t, mux, http.MethodPut, "/api/adjustments/offset",
		map[string]interface{}{"key_index": 0, "offset": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, mux, http.MethodPut, "/api/adjustments/trim",
		map[string]interface{}{"key_index": 1, "left": 1, "right": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/api/adjustments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Offsets map[string]int        `json:"offsets"`
		Trims   map[string]db.KeyTrim `json:"trims"`
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/adjustments", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Empty(t, resp.Offsets)
	require.Empty(t, resp.Trims)
}

func TestOffsetAppliedToMapping(t *testing.T) {
	s, _ := newTestServer(t, nil)
	mux := s.ServeMux()

	rec := doJSON(t, mux, http.MethodPost, "/api/mapping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var before mappingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&before))

	rec = doJSON(t, mux, http.MethodPut, "/api/adjustments/offset",
		map[string]interface{}{"key_index": 0, "offset": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/mapping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after mappingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&after))

	require.Equal(t, before.Mapping[0][0]+1, after.Mapping[0][0])
}

func TestTestPattern(t *testing.T) {
	s, mock := newTestServer(t, nil)

	rec := doJSON(t, s.ServeMux(), http.MethodPost, "/api/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Greater(t, resp["keys_lit"], 0)
	require.Greater(t, mock.FrameCount(), 1)
}

func TestTestPatternWithoutPainter(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.painter = nil

	rec := doJSON(t, s.ServeMux(), http.MethodPost, "/api/test", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := LoggingMiddleware(s.ServeMux())

	rec := doJSON(t, h, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
