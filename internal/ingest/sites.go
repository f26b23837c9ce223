package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// CounterSite is one traffic counter location from the public site
// registry.
type CounterSite struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64

	// DistanceKm is filled by NearbySites.
	DistanceKm float64
}

// Haversine returns the great-circle distance in kilometres between
// two coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// LoadCounterSites reads the counter-site registry CSV (Site_ID,
// Location, Lat, Long).
func LoadCounterSites(path string) ([]CounterSite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening site registry: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading site registry header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Site_ID", "Lat", "Long"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("site registry %s missing %s column", path, required)
		}
	}

	var sites []CounterSite
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading site registry row: %w", err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		lat, errLat := strconv.ParseFloat(field("Lat"), 64)
		lon, errLon := strconv.ParseFloat(field("Long"), 64)
		if errLat != nil || errLon != nil {
			continue
		}
		sites = append(sites, CounterSite{
			ID:   field("Site_ID"),
			Name: field("Location"),
			Lat:  lat,
			Lon:  lon,
		})
	}
	return sites, nil
}

// NearbySites returns the sites within radiusKm of the target, nearest
// first, with DistanceKm filled in.
func NearbySites(sites []CounterSite, lat, lon, radiusKm float64) []CounterSite {
	var nearby []CounterSite
	for _, site := range sites {
		d := Haversine(lat, lon, site.Lat, site.Lon)
		if d <= radiusKm {
			site.DistanceKm = d
			nearby = append(nearby, site)
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby
}
