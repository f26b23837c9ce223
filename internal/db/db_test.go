package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/banshee-data/walkby.report/internal/walkby"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "walkby.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBAppliesPragmasAndMigrations(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busyTimeout)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("fresh database reports dirty migration state")
	}
	if version != 2 {
		t.Errorf("migration version = %d, want 2", version)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}

	// The segment tables are gone until we migrate back up.
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM busy_periods").Scan(&count)
	if err == nil {
		t.Error("busy_periods still queryable after rollback")
	}

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM busy_periods").Scan(&count); err != nil {
		t.Errorf("busy_periods missing after re-migrate: %v", err)
	}
}

func TestRecordSamples(t *testing.T) {
	db := newTestDB(t)

	samples := []walkby.RawSample{
		{UnixMillis: 1773142200000, Signal: walkby.SignalAudioDB, Value: -42.5, SessionID: "s1", DeviceID: "d1"},
		{UnixMillis: 1773142200000, Signal: walkby.SignalLightLux, Value: 320, SessionID: "s1", DeviceID: "d1"},
		{UnixMillis: 1773145800000, Signal: walkby.SignalAudioDB, Value: -55, SessionID: "s2", DeviceID: "d1"},
	}
	if err := db.RecordSamples(samples); err != nil {
		t.Fatalf("RecordSamples: %v", err)
	}
	if err := db.RecordSamples(nil); err != nil {
		t.Fatalf("RecordSamples(nil): %v", err)
	}

	n, err := db.SampleCount()
	if err != nil {
		t.Fatalf("SampleCount: %v", err)
	}
	if n != 3 {
		t.Errorf("SampleCount = %d, want 3", n)
	}
}

func storedResult(runID string) *walkby.AnalysisResult {
	res := &walkby.AnalysisResult{
		RunID:            runID,
		PeakHour:         8,
		PeakScore:        19.5,
		PeakFootfall:     76,
		ActivityRate:     57.1,
		SensorBacked:     true,
		SmoothedFootfall: make([]float64, 24),
		SmoothedScore:    make([]float64, 24),
		NextHour:         walkby.Prediction{Footfall: 41, Score: 11.2},
		BusyPeriods: []walkby.BusyPeriod{
			{StartHour: 7, EndHour: 9, AvgFootfall: 70, AvgScore: 19, AvgAudioDB: -33, Reason: "morning commute rush"},
		},
		Clusters: []walkby.Cluster{
			{ID: 0, Label: walkby.ClusterQuiet, MemberHours: []int{0, 1, 2}, Centroid: [4]float64{-66, 3, 2, 0.8}},
			{ID: 1, Label: walkby.ClusterModerate, MemberHours: []int{12, 13}, Centroid: [4]float64{-48, 350, 40, 11.9}},
			{ID: 2, Label: walkby.ClusterBusy, MemberHours: []int{7, 8, 9}, Centroid: [4]float64{-32, 480, 75, 19.5}},
		},
	}
	for h := range res.Buckets {
		res.Buckets[h].Hour = h
		res.Buckets[h].AvgAudioDB = -70
	}
	res.Buckets[8] = walkby.HourlyBucket{
		Hour: 8, SampleCount: 24, Confidence: 1,
		AvgAudioDB: -32, AvgLightLux: 480, Footfall: 76, Score: 19.5, TrafficProxy: 1250,
	}
	res.SmoothedFootfall[8] = 75.2
	res.SmoothedScore[8] = 19.1
	return res
}

func TestRecordAndGetRun(t *testing.T) {
	db := newTestDB(t)

	want := storedResult("run-roundtrip")
	if err := db.RecordAnalysisRun(want); err != nil {
		t.Fatalf("RecordAnalysisRun: %v", err)
	}

	got, err := db.GetRun("run-roundtrip")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.PeakHour != want.PeakHour || got.PeakScore != want.PeakScore {
		t.Errorf("peak = (%d, %v), want (%d, %v)", got.PeakHour, got.PeakScore, want.PeakHour, want.PeakScore)
	}
	if !got.SensorBacked {
		t.Error("SensorBacked not persisted")
	}
	if got.NextHour != want.NextHour {
		t.Errorf("NextHour = %+v, want %+v", got.NextHour, want.NextHour)
	}
	if !reflect.DeepEqual(got.Buckets[8], want.Buckets[8]) {
		t.Errorf("bucket 8 = %+v, want %+v", got.Buckets[8], want.Buckets[8])
	}
	if got.SmoothedFootfall[8] != 75.2 || got.SmoothedScore[8] != 19.1 {
		t.Errorf("smoothed series not persisted: %v %v", got.SmoothedFootfall[8], got.SmoothedScore[8])
	}
	if len(got.BusyPeriods) != 1 || got.BusyPeriods[0] != want.BusyPeriods[0] {
		t.Errorf("busy periods = %+v, want %+v", got.BusyPeriods, want.BusyPeriods)
	}
	if len(got.Clusters) != 3 {
		t.Fatalf("clusters = %d, want 3", len(got.Clusters))
	}
	if got.Clusters[2].Label != walkby.ClusterBusy {
		t.Errorf("cluster 2 label = %q", got.Clusters[2].Label)
	}
	if len(got.Clusters[2].MemberHours) != 3 || got.Clusters[2].MemberHours[0] != 7 {
		t.Errorf("cluster members = %v", got.Clusters[2].MemberHours)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRun("no-such-run")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetRun on missing run = %v, want sql.ErrNoRows", err)
	}
}

func TestRecentRuns(t *testing.T) {
	db := newTestDB(t)

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := db.RecordAnalysisRun(storedResult(id)); err != nil {
			t.Fatalf("RecordAnalysisRun(%s): %v", id, err)
		}
	}

	runs, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns returned %d runs, want 2", len(runs))
	}
	// Same created_at second is possible; the run_id tiebreaker keeps
	// the order deterministic.
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Errorf("RecentRuns order = [%s, %s]", runs[0].RunID, runs[1].RunID)
	}

	all, err := db.RecentRuns(0)
	if err != nil {
		t.Fatalf("RecentRuns(0): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("RecentRuns(0) = %d runs, want 3", len(all))
	}
}
