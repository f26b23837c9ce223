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

// volumeTimeLayout matches the End_Time format of the adaptive traffic
// control exports (20250521083000).
const volumeTimeLayout = "20060102150405"

// LoadTrafficVolume reads a traffic control volume export (End_Time,
// Site, Sum_Volume) and reduces it to total vehicles per local hour.
// When siteIDs is non-empty only rows from those sites are counted;
// pass nil to include every site.
//
// The export runs to millions of rows, so values are folded row by row
// rather than materialised.
func LoadTrafficVolume(path string, siteIDs []string) (walkby.ArealLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume export: %w", err)
	}
	defer f.Close()

	wanted := map[string]bool{}
	for _, id := range siteIDs {
		wanted[strings.TrimSpace(id)] = true
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading volume header: %w", err)
	}
	timeCol, siteCol, volumeCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "End_Time":
			timeCol = i
		case "Site":
			siteCol = i
		case "Sum_Volume":
			volumeCol = i
		}
	}
	if timeCol < 0 || siteCol < 0 || volumeCol < 0 {
		return nil, fmt.Errorf("volume export %s missing End_Time, Site or Sum_Volume", path)
	}

	var sums [24]float64
	var seen [24]bool
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading volume row: %w", err)
		}
		if timeCol >= len(record) || siteCol >= len(record) || volumeCol >= len(record) {
			continue
		}
		if len(wanted) > 0 && !wanted[strings.TrimSpace(record[siteCol])] {
			continue
		}
		ts, err := time.Parse(volumeTimeLayout, strings.TrimSpace(record[timeCol]))
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[volumeCol]), 64)
		if err != nil {
			continue
		}
		hour := ts.Hour()
		sums[hour] += v
		seen[hour] = true
	}

	return func(hour int) (float64, bool) {
		if hour < 0 || hour > 23 || !seen[hour] {
			return 0, false
		}
		return sums[hour], true
	}, nil
}
