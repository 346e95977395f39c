package api

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/lxcxjxhx/HOS-M2F/internal/converter"
)

// handleConvert turns an uploaded PDF, DOCX or HTML file into markdown.
// Form fields: file (required), from (source format, defaults to the file
// extension).
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	from := r.FormValue("from")
	if from == "" {
		from = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}
	conv, err := converter.ForFormat(from)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported source format: %s", from), http.StatusBadRequest)
		return
	}

	md, err := conv.Convert(file)
	if err != nil {
		jsonError(w, "convert failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	name := strings.TrimSuffix(sanitizeFilename(header.Filename), filepath.Ext(header.Filename)) + ".md"
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(bytes.TrimSpace(md))
	w.Write([]byte("\n"))
}
