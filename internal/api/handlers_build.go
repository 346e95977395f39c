package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
	"github.com/lxcxjxhx/HOS-M2F/internal/parser"
	"github.com/lxcxjxhx/HOS-M2F/internal/pipeline"
	"github.com/lxcxjxhx/HOS-M2F/internal/render"
)

// handleBuild accepts a source document and queues an asynchronous build.
// Form fields: file (required), format (output format, required), mode,
// message, options (JSON object of renderer options).
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	req, ok := s.buildRequest(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(*req)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("build queued", "job_id", job.ID, "path", job.Path, "format", job.Format)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleBuildArtifact(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted || snap.Result == nil {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	name := strings.TrimSuffix(filepath.Base(snap.Path), filepath.Ext(snap.Path)) + snap.Result.Extension
	w.Header().Set("Content-Type", contentType(snap.Result.Extension))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(snap.Result.Artifact)
}

// handleCheck compiles and validates without rendering. Same form fields as
// build minus format.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	src, modeName, _, _, ok := s.readSource(w, r)
	if !ok {
		return
	}
	comp, result, err := s.orchestrator.Engine().Check(r.Context(), *src, modeName)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"path":       comp.Tree.DocumentPath,
		"tree_hash":  comp.Tree.Hash(),
		"sections":   len(comp.Tree.Flatten()),
		"findings":   comp.Findings,
		"validation": result,
	})
}

func (s *Server) buildRequest(w http.ResponseWriter, r *http.Request) (*pipeline.BuildRequest, bool) {
	src, modeName, format, extra, ok := s.readSource(w, r)
	if !ok {
		return nil, false
	}
	if format == "" {
		jsonError(w, "format is required", http.StatusBadRequest)
		return nil, false
	}
	if _, err := render.ForFormat(format); err != nil {
		jsonError(w, fmt.Sprintf("unsupported output format: %s", format), http.StatusBadRequest)
		return nil, false
	}

	var opts render.Options
	if raw := extra["options"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			jsonError(w, "options must be a JSON object of strings", http.StatusBadRequest)
			return nil, false
		}
	}
	return &pipeline.BuildRequest{
		Source:  *src,
		Mode:    modeName,
		Format:  format,
		Options: opts,
		Message: extra["message"],
	}, true
}

// readSource parses the multipart form shared by build and check: the
// uploaded file plus mode, format, options and message fields.
func (s *Server) readSource(w http.ResponseWriter, r *http.Request) (*pipeline.Source, string, string, map[string]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, "", "", nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, "", "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, "", "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, "", "", nil, false
	}

	filename := sanitizeFilename(header.Filename)
	src := &pipeline.Source{
		Path:   filename,
		Format: parser.Detect(filename),
		Data:   data,
	}
	extra := map[string]string{
		"options": r.FormValue("options"),
		"message": r.FormValue("message"),
	}
	return src, r.FormValue("mode"), r.FormValue("format"), extra, true
}

func errorStatus(err error) int {
	var cfgErr *mode.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, parser.ErrEncoding) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func contentType(ext string) string {
	switch ext {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".tex":
		return "application/x-latex"
	case ".jsonl":
		return "application/jsonl"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
