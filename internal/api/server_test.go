package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lxcxjxhx/HOS-M2F/internal/config"
	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
	"github.com/lxcxjxhx/HOS-M2F/internal/pipeline"
)

func testServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	modes := mode.NewRegistry()
	engine := pipeline.NewEngine(modes, log)
	orch := pipeline.NewOrchestrator(engine, 1, 8, time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	cfg := config.Config{Port: "0", APIKey: apiKey, MaxUploadBytes: 1 << 20}
	return NewServer(orch, modes, log, cfg)
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := testServer(t, "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := testServer(t, "secret")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("auth failures must respond with JSON, got %q", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/modes", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestModesEndpoint(t *testing.T) {
	s := testServer(t, "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var out struct {
		Modes []string `json:"modes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Modes) != 4 {
		t.Errorf("expected 4 builtin modes, got %v", out.Modes)
	}
}

func TestCheckEndpoint(t *testing.T) {
	s := testServer(t, "")
	body, ctype := multipartBody(t, map[string]string{"mode": "patent"},
		"doc.md", "# Idea\n\n## Claims\n\nOne claim.\n")

	req := httptest.NewRequest(http.MethodPost, "/api/check", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var out struct {
		Validation struct {
			Valid  bool              `json:"valid"`
			Errors []json.RawMessage `json:"errors"`
		} `json:"validation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Validation.Valid {
		t.Error("patent doc without Abstract must be invalid")
	}
	if len(out.Validation.Errors) != 1 {
		t.Errorf("expected exactly one error, got %d", len(out.Validation.Errors))
	}
}

func TestCheckEndpoint_UnknownMode(t *testing.T) {
	s := testServer(t, "")
	body, ctype := multipartBody(t, map[string]string{"mode": "zine"}, "doc.md", "# A\n")

	req := httptest.NewRequest(http.MethodPost, "/api/check", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown mode, got %d: %s", rec.Code, rec.Body)
	}
}

func TestBuildEndpointLifecycle(t *testing.T) {
	s := testServer(t, "")
	body, ctype := multipartBody(t, map[string]string{"mode": "sop", "format": "md"},
		"guide.md", "# Guide\n\n## Steps\n\n1. do it\n\n## Conclusion\n\ndone\n")

	req := httptest.NewRequest(http.MethodPost, "/api/build", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var job struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/build/"+job.JobID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status poll: %d", rec.Code)
		}
		var snap struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Status == "completed" {
			break
		}
		if snap.Status == "failed" {
			t.Fatalf("build failed: %s", snap.Error)
		}
		select {
		case <-deadline:
			t.Fatalf("build did not complete, status %s", snap.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/build/"+job.JobID+"/artifact", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("artifact fetch: %d: %s", rec.Code, rec.Body)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("# Guide")) {
		t.Errorf("artifact content wrong:\n%s", rec.Body)
	}
}

func TestBuildEndpoint_BadFormat(t *testing.T) {
	s := testServer(t, "")
	body, ctype := multipartBody(t, map[string]string{"format": "rtf"}, "doc.md", "# A\n")

	req := httptest.NewRequest(http.MethodPost, "/api/build", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
