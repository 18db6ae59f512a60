package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/agwosdz/pianoled/internal/httputil"
)

// client wraps the server's HTTP API. The HTTPClient indirection lets the
// command tests run against canned responses.
type client struct {
	base string
	http httputil.HTTPClient
}

func newClient(base string, h httputil.HTTPClient) *client {
	return &client{base: strings.TrimRight(base, "/"), http: h}
}

// call issues a request and decodes the JSON body into out (when non-nil).
// Non-2xx responses are turned into errors carrying the server's message.
func (c *client) call(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reqBody = &buf
	}
	req, err := http.NewRequest(method, c.base+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *client) generateMapping(w io.Writer) error {
	var resp struct {
		ID          string           `json:"id"`
		Mapping     map[string][]int `json:"mapping"`
		Calibration struct {
			CalibratedPitchMM float64 `json:"calibrated_pitch_mm"`
			WasAdjusted       bool    `json:"was_adjusted"`
			Reason            string  `json:"reason"`
		} `json:"calibration"`
	}
	if err := c.call(http.MethodPost, "/api/mapping", nil, &resp); err != nil {
		return err
	}
	fmt.Fprintf(w, "mapping %s: %d keys, pitch %.4f mm (adjusted: %v, %s)\n",
		resp.ID, len(resp.Mapping), resp.Calibration.CalibratedPitchMM,
		resp.Calibration.WasAdjusted, resp.Calibration.Reason)
	return nil
}

func (c *client) quality(w io.Writer) error {
	var resp struct {
		MeanSymmetry    float64        `json:"mean_symmetry"`
		MeanConsistency float64        `json:"mean_consistency"`
		Buckets         map[string]int `json:"buckets"`
		EmptyKeys       int            `json:"empty_keys"`
		Warnings        []string       `json:"warnings"`
	}
	if err := c.call(http.MethodGet, "/api/quality", nil, &resp); err != nil {
		return err
	}
	fmt.Fprintf(w, "mean symmetry %.3f, mean consistency %.3f\n", resp.MeanSymmetry, resp.MeanConsistency)
	fmt.Fprintf(w, "buckets: %v, empty keys: %d\n", resp.Buckets, resp.EmptyKeys)
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func (c *client) adjustments(w io.Writer) error {
	var resp struct {
		Offsets map[string]int `json:"offsets"`
		Trims   map[string]struct {
			Left  int `json:"left"`
			Right int `json:"right"`
		} `json:"trims"`
	}
	if err := c.call(http.MethodGet, "/api/adjustments", nil, &resp); err != nil {
		return err
	}
	if len(resp.Offsets) == 0 && len(resp.Trims) == 0 {
		fmt.Fprintln(w, "no adjustments stored")
		return nil
	}
	for key, off := range resp.Offsets {
		fmt.Fprintf(w, "key %s: offset %+d\n", key, off)
	}
	for key, trim := range resp.Trims {
		fmt.Fprintf(w, "key %s: trim left %d right %d\n", key, trim.Left, trim.Right)
	}
	return nil
}

func (c *client) setOffset(w io.Writer, keyArg, offsetArg string) error {
	key, err := strconv.Atoi(keyArg)
	if err != nil {
		return fmt.Errorf("invalid key %q", keyArg)
	}
	offset, err := strconv.Atoi(offsetArg)
	if err != nil {
		return fmt.Errorf("invalid offset %q", offsetArg)
	}
	body := map[string]int{"key_index": key, "offset": offset}
	if err := c.call(http.MethodPut, "/api/adjustments/offset", body, nil); err != nil {
		return err
	}
	fmt.Fprintf(w, "key %d: offset %+d\n", key, offset)
	return nil
}

func (c *client) setTrim(w io.Writer, keyArg, leftArg, rightArg string) error {
	key, err := strconv.Atoi(keyArg)
	if err != nil {
		return fmt.Errorf("invalid key %q", keyArg)
	}
	left, err := strconv.Atoi(leftArg)
	if err != nil {
		return fmt.Errorf("invalid left trim %q", leftArg)
	}
	right, err := strconv.Atoi(rightArg)
	if err != nil {
		return fmt.Errorf("invalid right trim %q", rightArg)
	}
	body := map[string]int{"key_index": key, "left": left, "right": right}
	if err := c.call(http.MethodPut, "/api/adjustments/trim", body, nil); err != nil {
		return err
	}
	fmt.Fprintf(w, "key %d: trim left %d right %d\n", key, left, right)
	return nil
}

func (c *client) clearAdjustments(w io.Writer) error {
	if err := c.call(http.MethodDelete, "/api/adjustments", nil, nil); err != nil {
		return err
	}
	fmt.Fprintln(w, "adjustments cleared")
	return nil
}

func (c *client) testPattern(w io.Writer) error {
	var resp struct {
		KeysLit int `json:"keys_lit"`
	}
	if err := c.call(http.MethodPost, "/api/test", nil, &resp); err != nil {
		return err
	}
	fmt.Fprintf(w, "test pattern lit %d keys\n", resp.KeysLit)
	return nil
}
