// Package settings holds the per-key configuration a stream-deck host hands
// to the plugin alongside willAppear and didReceiveSettings events.
//
// Host payloads are written by property inspectors of varying quality, so
// parsing is deliberately forgiving: a line count may arrive as a JSON
// number, a quoted number, or garbage, and the result is always a usable
// Settings value. Callers that care can still inspect the returned error.
package settings

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
)

// Settings is the persisted configuration for one key.
type Settings struct {
	// Lines selects the address layout on the key image.
	Lines keyimage.DisplayMode `json:"lines"`
}

// Default returns the settings used when a key has none stored.
func Default() Settings {
	return Settings{Lines: keyimage.ModeSingle}
}

// Parse decodes a host settings payload. The returned Settings is always
// usable; on malformed payloads it carries defaults and the error says why.
func Parse(raw json.RawMessage) (Settings, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Default(), nil
	}

	var wire struct {
		Lines json.RawMessage `json:"lines"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidSettings, err, "parsing settings payload")
	}

	return Settings{Lines: parseLines(wire.Lines)}, nil
}

// parseLines accepts a line count as a number ("lines": 2), a quoted number
// ("lines": "2"), or a float some inspectors emit ("lines": 2.0). Anything
// else collapses to the single-line default.
func parseLines(raw json.RawMessage) keyimage.DisplayMode {
	if len(raw) == 0 || string(raw) == "null" {
		return keyimage.ModeSingle
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return keyimage.ParseDisplayMode(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return keyimage.ParseDisplayMode(n)
		}
		return keyimage.ModeSingle
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return keyimage.ParseDisplayMode(int(f))
	}

	return keyimage.ModeSingle
}
