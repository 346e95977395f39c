// Package canonical implements the content reconstruction layer: it folds the
// flat block sequence of a parsed document into a nested section tree keyed by
// heading level. The canonical tree is the single representation consumed by
// validation and by renderers.
package canonical

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
)

// Section is one heading-scoped unit of document content. Content holds the
// nodes between this section's heading and its first child section; Path is
// the chain of child indices from the tree root, stable across rebuilds of
// identical input.
type Section struct {
	Title    string
	Level    int
	Path     []int
	Content  []*doctree.Node
	Children []*Section
}

// Tree is the canonical form of one document.
type Tree struct {
	DocumentPath string
	Meta         doctree.Meta
	Sections     []*Section
}

// Build folds a document into its canonical section tree. A section's
// children are all blocks until the next heading of equal or lower level.
// Content preceding the first heading becomes a synthetic untitled section.
func Build(doc *doctree.Document) *Tree {
	root := &Section{Level: 0}

	type frame struct {
		sec   *Section
		level int
	}
	stack := []frame{{sec: root, level: 0}}

	for _, n := range doc.Root.Children {
		if n.Kind == doctree.KindHeading {
			for len(stack) > 1 && stack[len(stack)-1].level >= n.Level {
				stack = stack[:len(stack)-1]
			}
			sec := &Section{Title: n.Title, Level: n.Level}
			parent := stack[len(stack)-1].sec
			parent.Children = append(parent.Children, sec)
			stack = append(stack, frame{sec: sec, level: n.Level})
			continue
		}
		stack[len(stack)-1].sec.Content = append(stack[len(stack)-1].sec.Content, n)
	}

	sections := root.Children
	if len(root.Content) > 0 {
		preamble := &Section{Content: root.Content}
		sections = append([]*Section{preamble}, sections...)
	}

	t := &Tree{
		DocumentPath: doc.Path,
		Meta:         doc.Meta,
		Sections:     sections,
	}
	assignPaths(t.Sections, nil)
	return t
}

func assignPaths(secs []*Section, parent []int) {
	for i, s := range secs {
		s.Path = append(append([]int(nil), parent...), i)
		assignPaths(s.Children, s.Path)
	}
}

// Flatten returns sections in document (preorder) order.
func (t *Tree) Flatten() []*Section {
	var out []*Section
	var walk func([]*Section)
	walk = func(secs []*Section) {
		for _, s := range secs {
			out = append(out, s)
			walk(s.Children)
		}
	}
	walk(t.Sections)
	return out
}

// PathString renders a section path as a dotted index chain, e.g. "0.2.1".
func (s *Section) PathString() string {
	parts := make([]string, len(s.Path))
	for i, p := range s.Path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// ContentHash is a deterministic digest of the section's own title, level and
// content nodes. Child sections are excluded: each section is fingerprinted
// and rendered as its own unit.
func (s *Section) ContentHash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "section\x1f%s\x1f%d\x1f", s.Title, s.Level)
	for _, n := range s.Content {
		encodeNode(&b, n)
	}
	return sumString(b.String())
}

// Hash is the canonical tree hash: identical canonical content yields an
// identical hash, which the version store relies on for no-op detection.
func (t *Tree) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "meta\x1f%s\x1f%s\x1f%s\x1f%s\x1f", t.Meta.Title, t.Meta.Author, t.Meta.Mode, strings.Join(t.Meta.Tags, ","))
	for _, s := range t.Flatten() {
		fmt.Fprintf(&b, "%s\x1f%s\x1e", s.PathString(), s.ContentHash())
	}
	return sumString(b.String())
}

func encodeNode(b *strings.Builder, n *doctree.Node) {
	fmt.Fprintf(b, "%s\x1f%d\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%t\x1f%s\x1f%s\x1f",
		n.Kind, n.Level, n.Title, n.Text, n.Language, n.Body, n.Src, n.Alt, n.Ordered, n.RefKind, n.RefID)
	for _, a := range n.Alignments {
		fmt.Fprintf(b, "%s,", a)
	}
	for _, row := range n.Rows {
		b.WriteString(strings.Join(row, "\x1f"))
		b.WriteByte('\x1e')
	}
	for _, c := range n.Children {
		encodeNode(b, c)
	}
	b.WriteByte('\x1d')
}
