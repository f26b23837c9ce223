package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/walkby.report/internal/config"
	"github.com/banshee-data/walkby.report/internal/db"
	"github.com/banshee-data/walkby.report/internal/ingest"
	"github.com/banshee-data/walkby.report/internal/timeutil"
	"github.com/banshee-data/walkby.report/internal/walkby"
)

const sessionBody = `{
	"sessionId": "sess-api-test",
	"deviceId": "pixel-7a",
	"date": "2026-03-10",
	"samples": "[{\"ts\":1773142200000,\"audioDb\":-32,\"lightLux\":480},{\"ts\":1773142260000,\"audioDb\":-34,\"lightLux\":470}]"
}`

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "api-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	srv := NewServer(ServerConfig{
		DB:       database,
		Tuning:   config.EmptyTuningConfig(),
		Location: time.UTC,
		Rand:     rand.New(rand.NewSource(1)),
	})
	ts := httptest.NewServer(srv.ServeMux())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestIngestAndAnalyzeFlow(t *testing.T) {
	_, ts := newTestServer(t)

	// Ingest one session.
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", strings.NewReader(sessionBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, 4, stored["samples_stored"])

	// Run the pipeline.
	resp, err = http.Post(ts.URL+"/api/analyze", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res walkby.AnalysisResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.NotEmpty(t, res.RunID)
	assert.True(t, res.SensorBacked)

	// The latest run is now served.
	resp, err = http.Get(ts.URL + "/api/analysis")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// And retrievable from storage by ID.
	resp, err = http.Get(ts.URL + "/api/run?id=" + res.RunID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var runs []db.RunSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].RunID)
}

func TestDetailEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", strings.NewReader(sessionBody))
	require.NoError(t, err)
	resp.Body.Close()
	resp, err = http.Post(ts.URL+"/api/analyze", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	t.Run("buckets", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/buckets")
		require.NoError(t, err)
		defer resp.Body.Close()
		var buckets []walkby.HourlyBucket
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&buckets))
		assert.Len(t, buckets, 24)
	})

	t.Run("periods encode as list", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/periods")
		require.NoError(t, err)
		defer resp.Body.Close()
		var periods []walkby.BusyPeriod
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&periods))
		assert.NotNil(t, periods)
	})

	t.Run("clusters encode as list", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/clusters")
		require.NoError(t, err)
		defer resp.Body.Close()
		var clusters []walkby.Cluster
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&clusters))
		assert.NotNil(t, clusters)
	})

	t.Run("prediction", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/prediction")
		require.NoError(t, err)
		defer resp.Body.Close()
		var pred walkby.Prediction
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&pred))
		assert.GreaterOrEqual(t, pred.Footfall, 0.0)
	})

	t.Run("dashboard renders html", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/dashboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})
}

func TestEndpointsBeforeFirstRun(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/api/analysis", "/api/buckets", "/api/periods", "/api/clusters", "/api/prediction", "/dashboard"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equalf(t, http.StatusNotFound, resp.StatusCode, "path %s", path)
	}
}

func TestMethodHandling(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/analyze")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/runs", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIngestRejectsBadSessions(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "Invalid session")
}

func TestShowRunValidation(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/run")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/run?id=missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShowConfig(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, -70.0, cfg["audio_floor_db"])
	assert.Equal(t, 25.0, cfg["score_scale"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAutoAnalyzeRunsOnTick(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "auto-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := timeutil.NewMockClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	srv := NewServer(ServerConfig{
		DB:       database,
		Location: time.UTC,
		Rand:     rand.New(rand.NewSource(1)),
		Clock:    clock,
	})

	samples, err := ingest.ParseSession([]byte(sessionBody))
	require.NoError(t, err)
	require.NoError(t, database.RecordSamples(samples))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.AutoAnalyze(ctx, 15*time.Minute)
		close(done)
	}()

	require.Eventually(t, func() bool {
		clock.Advance(15 * time.Minute)
		return srv.latestResult() != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AutoAnalyze did not stop on cancel")
	}

	runs, err := database.RecentRuns(5)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}
