package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// HTMLRenderer converts a section to HTML by regenerating its Markdown and
// running it through goldmark with GFM extensions, so tables keep their
// alignment attributes.
type HTMLRenderer struct {
	md MarkdownRenderer
}

func (r *HTMLRenderer) Extension() string { return ".html" }

func (r *HTMLRenderer) RenderSection(s *canonical.Section, res *resource.Store, opts Options) ([]byte, error) {
	src, err := r.md.RenderSection(s, res, opts)
	if err != nil {
		return nil, err
	}
	engine := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := engine.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
