// Package uploader pushes captured sensor session files to the
// analytics server's ingest endpoint. It is the transport half of the
// capture workflow: devices write session JSON files locally, then a
// batch upload ships them when connectivity allows.
package uploader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/walkby.report/internal/fsutil"
	"github.com/banshee-data/walkby.report/internal/httputil"
	"github.com/banshee-data/walkby.report/internal/monitoring"
	"github.com/banshee-data/walkby.report/internal/security"
	"github.com/banshee-data/walkby.report/internal/timeutil"
)

// Uploader posts session files to a server. The filesystem, HTTP
// client and clock are injectable for tests.
type Uploader struct {
	FS     fsutil.FileSystem
	Client httputil.HTTPClient
	Clock  timeutil.Clock

	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string

	// Retries is the number of extra attempts after a transport error
	// or 5xx response. 4xx responses are permanent and never retried.
	Retries    int
	RetryDelay time.Duration

	// RemoveUploaded deletes each file after a successful upload so
	// re-runs don't double-ingest.
	RemoveUploaded bool
}

// New returns an Uploader with production collaborators.
func New(baseURL string) *Uploader {
	return &Uploader{
		FS:         fsutil.OSFileSystem{},
		Client:     httputil.NewStandardClient(nil),
		Clock:      timeutil.RealClock{},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Retries:    2,
		RetryDelay: 2 * time.Second,
	}
}

// Result summarises one batch upload.
type Result struct {
	Uploaded int
	Failed   int
	Samples  int
}

// UploadFile posts one session file and returns the number of samples
// the server stored.
func (u *Uploader) UploadFile(path string) (int, error) {
	data, err := u.FS.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	var lastErr error
	for attempt := 0; attempt <= u.Retries; attempt++ {
		if attempt > 0 {
			u.Clock.Sleep(u.RetryDelay)
		}

		resp, err := u.Client.Post(u.BaseURL+"/api/sessions", "application/json", bytes.NewReader(data))
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var stored struct {
				SamplesStored int `json:"samples_stored"`
			}
			if err := json.Unmarshal(body, &stored); err != nil {
				return 0, fmt.Errorf("unexpected response for %s: %w", path, err)
			}
			return stored.SamplesStored, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		default:
			// Client errors are permanent; retrying the same payload
			// cannot succeed.
			return 0, fmt.Errorf("rejected with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}
	return 0, fmt.Errorf("uploading %s: %w", path, lastErr)
}

// Upload posts the given session files, each validated to live inside
// root so a crafted file list cannot reach outside the capture
// directory. Individual failures are logged and counted, not fatal.
func (u *Uploader) Upload(root string, paths []string) Result {
	var res Result
	for _, path := range paths {
		if err := security.ValidatePathWithinDirectory(path, root); err != nil {
			monitoring.Logf("skipping %s: %v", path, err)
			res.Failed++
			continue
		}

		n, err := u.UploadFile(path)
		if err != nil {
			monitoring.Logf("upload failed for %s: %v", path, err)
			res.Failed++
			continue
		}
		res.Uploaded++
		res.Samples += n

		if u.RemoveUploaded {
			if err := u.FS.Remove(path); err != nil {
				monitoring.Logf("could not remove %s after upload: %v", path, err)
			}
		}
	}
	return res
}

// UploadDir discovers *.json session files under root and uploads them
// in path order.
func (u *Uploader) UploadDir(root string) (Result, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("session directory %s does not exist", root)
		}
		return Result{}, fmt.Errorf("walking %s: %w", root, err)
	}
	return u.Upload(root, paths), nil
}
