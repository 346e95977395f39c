// Package doctree defines the typed document tree produced by the structural
// parsers and consumed by resource extraction and canonical reconstruction.
package doctree

import (
	"fmt"
	"strings"
)

// Kind tags a Node with its structural role.
type Kind string

const (
	KindDocument    Kind = "document"
	KindHeading     Kind = "heading"
	KindParagraph   Kind = "paragraph"
	KindList        Kind = "list"
	KindTable       Kind = "table"
	KindCode        Kind = "code"
	KindImage       Kind = "image"
	KindDiagram     Kind = "diagram"
	KindPlaceholder Kind = "placeholder"
	KindText        Kind = "text"
)

// Alignment is a per-column table alignment marker.
type Alignment string

const (
	AlignNone   Alignment = ""
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Node is a single element of the document tree. Which fields are meaningful
// depends on Kind; child order is semantically significant.
type Node struct {
	Kind Kind

	// Heading
	Level int
	Title string

	// Paragraph / Text
	Text string

	// Code / Diagram
	Language string
	Body     string

	// Image
	Src string
	Alt string

	// List
	Ordered bool

	// Table: Rows[0] is the header row when present.
	Alignments []Alignment
	Rows       [][]string

	// Placeholder reference into the resource store.
	RefKind string
	RefID   string

	Children []*Node
}

// Meta is document-level metadata, typically from YAML front matter.
type Meta struct {
	Title       string   `yaml:"title" json:"title"`
	Author      string   `yaml:"author" json:"author,omitempty"`
	Mode        string   `yaml:"mode" json:"mode,omitempty"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Tags        []string `yaml:"tags" json:"tags,omitempty"`
	PublishDate string   `yaml:"publish_date" json:"publish_date,omitempty"`
}

// Document is the root of a parsed document.
type Document struct {
	Path     string
	Meta     Meta
	Root     *Node // Kind == KindDocument
	Findings []Finding
}

// Severity classifies a Finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single observation about a document: a parse degradation, a
// resource resolution problem, or a validation rule result.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
}

// Walk visits n and its descendants in document order. If fn returns false
// the node's children are skipped.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// NormalizeTitle trims a heading title and collapses internal whitespace so
// that rule matching is insensitive to incidental formatting.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HeadingFindings reports heading-level skips in the flat block sequence:
// a level-N heading followed by a level-(N+2) or deeper heading without an
// intervening intermediate level. Violations degrade, they never fail a parse.
func HeadingFindings(root *Node) []Finding {
	var findings []Finding
	prev := 0
	for _, c := range root.Children {
		if c.Kind != KindHeading {
			continue
		}
		if prev > 0 && c.Level > prev+1 {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     "heading_skip",
				Message:  fmt.Sprintf("heading %q jumps from level %d to level %d", c.Title, prev, c.Level),
			})
		}
		prev = c.Level
	}
	return findings
}
