package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/walkby.report/internal/walkby"
)

// timeLayouts are the timestamp formats seen across the public data
// exports.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006 15:04",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// LoadArealFootfall reads a public footfall counter CSV and reduces it
// to mean total pedestrians per local hour. The export has one Time
// column and one column per counter direction; only aggregate
// pedestrian columns count, the directional IN/OUT breakdowns are
// skipped to avoid double counting.
//
// The returned lookup reports (0, false) for hours the export never
// covers, which lets the estimator distinguish "no data" from
// "counted zero".
func LoadArealFootfall(path string) (walkby.ArealLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening footfall export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading footfall header: %w", err)
	}

	timeCol := -1
	var countCols []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case strings.EqualFold(name, "Time"):
			timeCol = i
		case strings.Contains(name, "Pedestrian") &&
			!strings.Contains(name, "IN") && !strings.Contains(name, "OUT"):
			countCols = append(countCols, i)
		}
	}
	if timeCol < 0 {
		return nil, fmt.Errorf("footfall export %s has no Time column", path)
	}
	if len(countCols) == 0 {
		return nil, fmt.Errorf("footfall export %s has no pedestrian columns", path)
	}

	var sums, rows [24]float64
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading footfall row %d: %w", line, err)
		}
		line++
		if timeCol >= len(record) {
			continue
		}
		ts, err := parseTimestamp(record[timeCol])
		if err != nil {
			continue // header repeats and stray rows happen in these exports
		}
		total := 0.0
		for _, col := range countCols {
			if col >= len(record) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64); err == nil {
				total += v
			}
		}
		hour := ts.Hour()
		sums[hour] += total
		rows[hour]++
	}

	return func(hour int) (float64, bool) {
		if hour < 0 || hour > 23 || rows[hour] == 0 {
			return 0, false
		}
		return sums[hour] / rows[hour], true
	}, nil
}
