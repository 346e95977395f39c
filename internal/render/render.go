// Package render holds the per-format artifact renderers invoked by the
// build path. Renderers are pure given resolved resource payloads, which the
// incremental cache relies on.
package render

import (
	"errors"
	"fmt"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// Options are opaque format options; they participate in fingerprinting.
type Options map[string]string

// ErrUnsupportedFormat is wrapped by ForFormat for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Renderer produces the artifact bytes for one canonical section. For text
// formats the assembled document is the ordered concatenation of section
// artifacts.
type Renderer interface {
	RenderSection(s *canonical.Section, res *resource.Store, opts Options) ([]byte, error)
	Extension() string
}

// DocumentRenderer is implemented by formats whose container cannot be
// concatenated per section (e.g. DOCX); the build path renders the whole
// tree as a single cached unit instead.
type DocumentRenderer interface {
	RenderDocument(t *canonical.Tree, res *resource.Store, opts Options) ([]byte, error)
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownRenderer{}, nil
	case "html":
		return &HTMLRenderer{}, nil
	case "latex", "tex":
		return &LaTeXRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "docx":
		return &DocxRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WholeDocument reports whether the format must be rendered and cached as a
// single document-level unit.
func WholeDocument(format string) bool {
	return format == "docx"
}

// Formats lists supported output format names.
func Formats() []string {
	return []string{"md", "html", "latex", "json", "docx"}
}
