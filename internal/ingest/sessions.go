// Package ingest loads the external datasets an analysis run consumes:
// sensor session files collected on site, public areal footfall
// exports, counter-site locations and vehicle volume exports. Loaders
// normalise everything into the core types; no analysis happens here.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/walkby.report/internal/monitoring"
	"github.com/banshee-data/walkby.report/internal/walkby"
)

// Session is one collection session file as written by the capture
// app. Samples arrive double-encoded: the samples field is a JSON
// string containing the sample array.
type Session struct {
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
	Date      string `json:"date"`
	Samples   string `json:"samples"`
}

type sessionSample struct {
	TS       int64   `json:"ts"`
	AudioDB  float64 `json:"audioDb"`
	LightLux float64 `json:"lightLux"`
}

// LoadSessionFile parses one session JSON file into raw samples.
func LoadSessionFile(path string) ([]walkby.RawSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	samples, err := ParseSession(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// ParseSession decodes one session document into raw samples. Each
// capture expands into an audio and a light sample sharing the same
// timestamp.
func ParseSession(data []byte) ([]walkby.RawSample, error) {
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session document: %w", err)
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("session has no sessionId")
	}

	var captures []sessionSample
	if err := json.Unmarshal([]byte(session.Samples), &captures); err != nil {
		return nil, fmt.Errorf("parsing embedded samples of session %s: %w", session.SessionID, err)
	}

	samples := make([]walkby.RawSample, 0, 2*len(captures))
	for _, c := range captures {
		samples = append(samples, walkby.RawSample{
			UnixMillis: c.TS,
			Signal:     walkby.SignalAudioDB,
			Value:      c.AudioDB,
			SessionID:  session.SessionID,
			DeviceID:   session.DeviceID,
		})
		samples = append(samples, walkby.RawSample{
			UnixMillis: c.TS,
			Signal:     walkby.SignalLightLux,
			Value:      c.LightLux,
			SessionID:  session.SessionID,
			DeviceID:   session.DeviceID,
		})
	}
	return samples, nil
}

// LoadSessionDir loads every *.json session file under dir
// (recursively) and pools their samples. Unreadable or malformed files
// are logged and skipped so one corrupt session does not sink the run.
// The second return value is the number of sessions loaded.
func LoadSessionDir(dir string) ([]walkby.RawSample, int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning session directory %s: %w", dir, err)
	}
	sort.Strings(paths)

	var all []walkby.RawSample
	loaded := 0
	for _, path := range paths {
		samples, err := LoadSessionFile(path)
		if err != nil {
			monitoring.Logf("ingest: skipping session file %s: %v", path, err)
			continue
		}
		all = append(all, samples...)
		loaded++
	}
	return all, loaded, nil
}
