package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// DocxRenderer produces Word documents. A DOCX container cannot be built by
// concatenating section fragments, so the build path treats this format as a
// single whole-document unit.
type DocxRenderer struct{}

func (r *DocxRenderer) Extension() string { return ".docx" }

// headingSizes maps heading level to half-point font sizes.
var headingSizes = []string{"32", "32", "28", "26", "24", "22", "22"}

// RenderSection renders a lone section as a complete document.
func (r *DocxRenderer) RenderSection(s *canonical.Section, res *resource.Store, opts Options) ([]byte, error) {
	w := docx.New().WithDefaultTheme()
	writeDocxSection(w, s, res)
	return marshalDocx(w)
}

func (r *DocxRenderer) RenderDocument(t *canonical.Tree, res *resource.Store, opts Options) ([]byte, error) {
	w := docx.New().WithDefaultTheme()
	if t.Meta.Title != "" {
		w.AddParagraph().AddText(t.Meta.Title).Size("36")
	}
	for _, s := range t.Flatten() {
		writeDocxSection(w, s, res)
	}
	return marshalDocx(w)
}

func writeDocxSection(w *docx.Docx, s *canonical.Section, res *resource.Store) {
	if s.Title != "" {
		level := s.Level
		if level >= len(headingSizes) {
			level = len(headingSizes) - 1
		}
		w.AddParagraph().AddText(s.Title).Size(headingSizes[level])
	}
	for _, n := range s.Content {
		writeDocxNode(w, n, res)
	}
}

func writeDocxNode(w *docx.Docx, n *doctree.Node, res *resource.Store) {
	switch n.Kind {
	case doctree.KindParagraph, doctree.KindText:
		w.AddParagraph().AddText(n.Text)

	case doctree.KindPlaceholder:
		r, ok := res.ByID(n.RefID)
		if !ok {
			return
		}
		switch r.Kind {
		case resource.KindImage:
			w.AddParagraph().AddText(fmt.Sprintf("[image: %s]", r.Src))
		case resource.KindCode, resource.KindDiagram:
			for _, line := range strings.Split(r.Body, "\n") {
				w.AddParagraph().AddText(line).Size("20")
			}
		}

	case doctree.KindCode, doctree.KindDiagram:
		for _, line := range strings.Split(n.Body, "\n") {
			w.AddParagraph().AddText(line).Size("20")
		}

	case doctree.KindList:
		for i, item := range n.Children {
			marker := "•"
			if n.Ordered {
				marker = fmt.Sprintf("%d.", i+1)
			}
			w.AddParagraph().AddText(fmt.Sprintf("%s %s", marker, item.Text))
			for _, child := range item.Children {
				writeDocxNode(w, child, res)
			}
		}

	case doctree.KindTable:
		for _, row := range n.Rows {
			w.AddParagraph().AddText(strings.Join(row, " | "))
		}
	}
}

func marshalDocx(w *docx.Docx) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}
