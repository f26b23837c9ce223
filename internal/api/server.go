// Package api exposes the analytics engine over HTTP: JSON endpoints
// for runs and their hourly detail, an HTML dashboard, and Prometheus
// metrics.
package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/walkby.report/internal/config"
	"github.com/banshee-data/walkby.report/internal/db"
	"github.com/banshee-data/walkby.report/internal/httputil"
	"github.com/banshee-data/walkby.report/internal/ingest"
	"github.com/banshee-data/walkby.report/internal/timeutil"
	"github.com/banshee-data/walkby.report/internal/version"
	"github.com/banshee-data/walkby.report/internal/walkby"
)

// ANSI escape codes for request log colouring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db      *db.DB
	tuning  *config.TuningConfig
	params  walkby.AnalysisParams
	areal   walkby.ArealLookup
	traffic walkby.ArealLookup
	loc     *time.Location
	rng     *rand.Rand
	clock   timeutil.Clock

	mu     sync.RWMutex
	latest *walkby.AnalysisResult
}

// ServerConfig contains the collaborators the server needs. Areal,
// Traffic, Location, Rand and Clock are optional.
type ServerConfig struct {
	DB       *db.DB
	Tuning   *config.TuningConfig
	Areal    walkby.ArealLookup
	Traffic  walkby.ArealLookup
	Location *time.Location
	Rand     *rand.Rand
	Clock    timeutil.Clock
}

func NewServer(cfg ServerConfig) *Server {
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		db:      cfg.DB,
		tuning:  tuning,
		params:  walkby.ParamsFromTuning(tuning),
		areal:   cfg.Areal,
		traffic: cfg.Traffic,
		loc:     cfg.Location,
		rng:     cfg.Rand,
		clock:   clock,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration, and feeds
// the request counter.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		httpRequests.WithLabelValues(r.URL.Path, strconv.Itoa(lrw.statusCode)).Inc()
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/api/sessions", s.ingestSession)
	mux.HandleFunc("/api/analyze", s.runAnalysis)
	mux.HandleFunc("/api/analysis", s.showAnalysis)
	mux.HandleFunc("/api/buckets", s.showBuckets)
	mux.HandleFunc("/api/periods", s.showBusyPeriods)
	mux.HandleFunc("/api/clusters", s.showClusters)
	mux.HandleFunc("/api/prediction", s.showPrediction)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/run", s.showRun)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/dashboard", s.showDashboard)
	mux.Handle("/metrics", MetricsHandler())
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, fmt.Sprintf("Walk-by Analytics Server %s\n", version.Version))
}

// ingestSession accepts one session document (the capture app format,
// samples embedded as a JSON string) and stores its samples.
func (s *Server) ingestSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		httputil.BadRequest(w, "Failed to read request body")
		return
	}
	samples, err := ingest.ParseSession(body)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid session: %v", err))
		return
	}
	if err := s.db.RecordSamples(samples); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to store samples: %v", err))
		return
	}
	samplesIngested.Add(float64(len(samples)))

	httputil.WriteJSONOK(w, map[string]int{"samples_stored": len(samples)})
}

// runAnalysis executes the full pipeline over all stored samples,
// records the run and makes it the latest.
func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	res, err := s.AnalyzeAndRecord()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, res)
}

// AnalyzeAndRecord runs the pipeline over all stored samples, persists
// the run and makes it the latest. Shared by the analyze endpoint and
// the periodic scheduler.
func (s *Server) AnalyzeAndRecord() (*walkby.AnalysisResult, error) {
	samples, err := s.db.AllSamples()
	if err != nil {
		return nil, fmt.Errorf("loading samples: %w", err)
	}

	start := s.clock.Now()
	res := walkby.Analyze(walkby.AnalysisInput{
		Samples:       samples,
		Areal:         s.areal,
		TrafficVolume: s.traffic,
		Location:      s.loc,
	}, s.params, s.rng)
	analysisDuration.Observe(s.clock.Since(start).Seconds())
	analysisRuns.Inc()

	if err := s.db.RecordAnalysisRun(res); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
	return res, nil
}

// AutoAnalyze re-runs the pipeline on a fixed interval until ctx is
// cancelled, so dashboards stay current without manual analyze calls.
// Failures are logged and the loop keeps going.
func (s *Server) AutoAnalyze(ctx context.Context, every time.Duration) {
	ticker := s.clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			res, err := s.AnalyzeAndRecord()
			if err != nil {
				log.Printf("scheduled analysis failed: %v", err)
				continue
			}
			log.Printf("scheduled analysis complete: run=%s peak=%02d:00 score=%.1f", res.RunID, res.PeakHour, res.PeakScore)
		case <-ctx.Done():
			return
		}
	}
}

// latestResult returns the most recent run, or nil.
func (s *Server) latestResult() *walkby.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// requireLatest writes a 404 and returns nil when no run exists yet.
func (s *Server) requireLatest(w http.ResponseWriter, r *http.Request) *walkby.AnalysisResult {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return nil
	}
	res := s.latestResult()
	if res == nil {
		httputil.NotFound(w, "no analysis run yet")
		return nil
	}
	return res
}

func (s *Server) showAnalysis(w http.ResponseWriter, r *http.Request) {
	res := s.requireLatest(w, r)
	if res == nil {
		return
	}
	httputil.WriteJSONOK(w, res)
}

func (s *Server) showBuckets(w http.ResponseWriter, r *http.Request) {
	res := s.requireLatest(w, r)
	if res == nil {
		return
	}
	httputil.WriteJSONOK(w, res.Buckets)
}

func (s *Server) showBusyPeriods(w http.ResponseWriter, r *http.Request) {
	res := s.requireLatest(w, r)
	if res == nil {
		return
	}
	// Encode an empty list rather than null for insufficient data.
	periods := res.BusyPeriods
	if periods == nil {
		periods = []walkby.BusyPeriod{}
	}
	httputil.WriteJSONOK(w, periods)
}

func (s *Server) showClusters(w http.ResponseWriter, r *http.Request) {
	res := s.requireLatest(w, r)
	if res == nil {
		return
	}
	clusters := res.Clusters
	if clusters == nil {
		clusters = []walkby.Cluster{}
	}
	httputil.WriteJSONOK(w, clusters)
}

func (s *Server) showPrediction(w http.ResponseWriter, r *http.Request) {
	res := s.requireLatest(w, r)
	if res == nil {
		return
	}
	httputil.WriteJSONOK(w, res.NextHour)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.RecentRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.RunSummary{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runID := r.URL.Query().Get("id")
	if runID == "" {
		httputil.BadRequest(w, "Missing 'id' parameter")
		return
	}

	res, err := s.db.GetRun(runID)
	if err != nil {
		httputil.NotFound(w, fmt.Sprintf("Run not found: %v", err))
		return
	}
	httputil.WriteJSONOK(w, res)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	cfg := map[string]interface{}{
		"audio_floor_db":   s.params.AudioFloorDB,
		"audio_ceiling_db": s.params.AudioCeilingDB,
		"footfall_ceiling": s.params.FootfallCeiling,
		"score_scale":      s.params.ScoreScale,
		"audio_weight":     s.params.AudioWeight,
		"footfall_weight":  s.params.FootfallWeight,
		"light_weight":     s.params.LightWeight,
		"cluster_count":    s.params.ClusterCount,
		"busy_top_n":       s.params.BusyTopN,
	}
	httputil.WriteJSONOK(w, cfg)
}
