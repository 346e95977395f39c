package render

import (
	"encoding/json"
	"fmt"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// JSONRenderer serializes a section as a JSON object per line, so section
// artifacts concatenate into a JSON Lines document.
type JSONRenderer struct{}

func (r *JSONRenderer) Extension() string { return ".jsonl" }

type jsonSection struct {
	Title   string      `json:"title,omitempty"`
	Level   int         `json:"level"`
	Path    string      `json:"path"`
	Content []jsonBlock `json:"content"`
}

type jsonBlock struct {
	Kind     string      `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Language string      `json:"language,omitempty"`
	Body     string      `json:"body,omitempty"`
	Src      string      `json:"src,omitempty"`
	Alt      string      `json:"alt,omitempty"`
	RefKind  string      `json:"ref_kind,omitempty"`
	RefID    string      `json:"ref_id,omitempty"`
	State    string      `json:"state,omitempty"`
	Rows     [][]string  `json:"rows,omitempty"`
	Children []jsonBlock `json:"children,omitempty"`
}

func (r *JSONRenderer) RenderSection(s *canonical.Section, res *resource.Store, opts Options) ([]byte, error) {
	out := jsonSection{
		Title:   s.Title,
		Level:   s.Level,
		Path:    s.PathString(),
		Content: []jsonBlock{},
	}
	for _, n := range s.Content {
		out.Content = append(out.Content, jsonBlockFor(n, res))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}
	return append(data, '\n'), nil
}

func jsonBlockFor(n *doctree.Node, res *resource.Store) jsonBlock {
	b := jsonBlock{
		Kind:     string(n.Kind),
		Text:     n.Text,
		Language: n.Language,
		Body:     n.Body,
		Src:      n.Src,
		Alt:      n.Alt,
		RefKind:  n.RefKind,
		RefID:    n.RefID,
		Rows:     n.Rows,
	}
	if n.Kind == doctree.KindPlaceholder {
		if stored, ok := res.ByID(n.RefID); ok {
			b.State = string(stored.State)
		}
	}
	for _, c := range n.Children {
		b.Children = append(b.Children, jsonBlockFor(c, res))
	}
	return b
}
