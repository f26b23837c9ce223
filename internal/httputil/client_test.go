package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStandardClient_Wraps(t *testing.T) {
	custom := &http.Client{}
	client := NewStandardClient(custom)

	if client.Client != custom {
		t.Error("expected custom client to be wrapped")
	}
}

func TestStandardClient_NilDefaults(t *testing.T) {
	client := NewStandardClient(nil)
	if client.Client != http.DefaultClient {
		t.Error("nil client should fall back to http.DefaultClient")
	}
}

func TestStandardClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/sessions" {
			t.Errorf("expected path /api/sessions, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"samples_stored": 12}`))
	}))
	defer server.Close()

	client := NewStandardClient(nil)
	resp, err := client.Post(server.URL+"/api/sessions", "application/json", strings.NewReader(`{"samples": []}`))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"samples_stored": 12}` {
		t.Errorf("got body %q", string(body))
	}
}

func TestStandardClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/runs" {
			t.Errorf("expected path /api/runs, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewStandardClient(nil)
	resp, err := client.Get(server.URL + "/api/runs")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, "busy")
	mock.AddResponse(http.StatusOK, `{"samples_stored": 3}`)

	resp1, _ := mock.Get("http://collector.local/api/sessions")
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusInternalServerError || string(body1) != "busy" {
		t.Errorf("first response = %d %q", resp1.StatusCode, string(body1))
	}

	resp2, _ := mock.Get("http://collector.local/api/sessions")
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	if string(body2) != `{"samples_stored": 3}` {
		t.Errorf("second response body = %q", string(body2))
	}

	if mock.RequestCount() != 2 {
		t.Errorf("got %d requests, want 2", mock.RequestCount())
	}
}

func TestMockHTTPClient_PostRecordsRequest(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "")

	_, err := mock.Post("http://collector.local/api/sessions", "application/json", strings.NewReader(`{"samples": []}`))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	req := mock.GetRequest(0)
	if req == nil {
		t.Fatal("expected request to be recorded")
	}
	if req.Method != http.MethodPost {
		t.Errorf("got method %s, want POST", req.Method)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("got Content-Type %q", req.Header.Get("Content-Type"))
	}
}

func TestMockHTTPClient_AddErrorResponse(t *testing.T) {
	mock := NewMockHTTPClient()
	wantErr := errors.New("connection refused")
	mock.AddErrorResponse(wantErr)

	_, err := mock.Get("http://collector.local/api/sessions")
	if err != wantErr {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
}

func TestMockHTTPClient_DefaultError(t *testing.T) {
	mock := NewMockHTTPClient()
	wantErr := errors.New("network unreachable")
	mock.DefaultError = wantErr

	_, err := mock.Get("http://collector.local/api/sessions")
	if err != wantErr {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
}

func TestMockHTTPClient_DoFunc(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTeapot,
			Body:       io.NopCloser(strings.NewReader("custom")),
			Request:    req,
		}, nil
	}

	resp, _ := mock.Get("http://collector.local/api/sessions")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}

func TestMockHTTPClient_GetRequestBounds(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "")
	mock.Get("http://collector.local/api/runs")

	if req := mock.GetRequest(0); req == nil || !strings.Contains(req.URL.String(), "runs") {
		t.Error("GetRequest(0) should return the recorded request")
	}
	if mock.GetRequest(5) != nil {
		t.Error("out of bounds index should return nil")
	}
	if mock.GetRequest(-1) != nil {
		t.Error("negative index should return nil")
	}
}

func TestMockHTTPClient_DefaultResponse(t *testing.T) {
	// No queued responses and no error: an empty 200.
	mock := NewMockHTTPClient()

	resp, err := mock.Get("http://collector.local/api/runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestMockHTTPClient_Reset(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "queued")
	mock.DefaultError = errors.New("boom")
	mock.Get("http://collector.local/api/runs")
	mock.Reset()

	if len(mock.Requests) != 0 || len(mock.Responses) != 0 || mock.DefaultError != nil {
		t.Error("Reset should clear requests, responses, and DefaultError")
	}
}
