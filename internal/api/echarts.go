package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/banshee-data/walkby.report/internal/httputil"
	"github.com/banshee-data/walkby.report/internal/report"
)

// showDashboard renders the latest run as an HTML page with a walk-by
// score bar chart and a footfall line chart. Debugging-style endpoint,
// no auth; the JSON API is the stable surface.
func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res := s.latestResult()
	if res == nil {
		httputil.NotFound(w, "no analysis run yet")
		return
	}

	var buf bytes.Buffer
	if err := report.RenderDashboard(res, &buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render dashboard: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
