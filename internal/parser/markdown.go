package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
)

// MarkdownParser handles Markdown sources using goldmark with GFM extensions.
// Parsing is total: malformed constructs degrade into plain text nodes and
// structural oddities are recorded as findings, never returned as errors.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte, path string) (*doctree.Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrEncoding)
	}

	doc := &doctree.Document{
		Path: path,
		Root: &doctree.Node{Kind: doctree.KindDocument},
	}

	src := data
	var meta doctree.Meta
	rest, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		doc.Findings = append(doc.Findings, doctree.Finding{
			Severity: doctree.SeverityWarning,
			Code:     "front_matter",
			Message:  fmt.Sprintf("front matter not parseable: %v", err),
		})
	} else {
		doc.Meta = meta
		src = rest
	}
	if doc.Meta.Title == "" {
		doc.Meta.Title = titleFromPath(path)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(src))

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		doc.Root.Children = append(doc.Root.Children, p.convertBlock(n, src)...)
	}

	doc.Findings = append(doc.Findings, doctree.HeadingFindings(doc.Root)...)
	return doc, nil
}

// convertBlock maps one top-level goldmark block into zero or more tree nodes.
func (p *MarkdownParser) convertBlock(n ast.Node, src []byte) []*doctree.Node {
	switch node := n.(type) {
	case *ast.Heading:
		title := doctree.NormalizeTitle(inlineText(node, src))
		return []*doctree.Node{{Kind: doctree.KindHeading, Level: node.Level, Title: title}}

	case *ast.FencedCodeBlock:
		lang := string(node.Language(src))
		body := blockLines(node, src)
		if strings.EqualFold(lang, "mermaid") {
			return []*doctree.Node{{Kind: doctree.KindDiagram, Language: lang, Body: body}}
		}
		return []*doctree.Node{{Kind: doctree.KindCode, Language: lang, Body: body}}

	case *ast.CodeBlock:
		return []*doctree.Node{{Kind: doctree.KindCode, Body: blockLines(node, src)}}

	case *ast.Paragraph:
		return splitInlines(node, src)

	case *ast.List:
		return []*doctree.Node{p.convertList(node, src)}

	case *east.Table:
		return []*doctree.Node{convertTable(node, src)}

	case *ast.Blockquote:
		var out []*doctree.Node
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			out = append(out, p.convertBlock(c, src)...)
		}
		return out

	case *ast.ThematicBreak:
		return nil

	case *ast.HTMLBlock:
		raw := strings.TrimSpace(blockLines(node, src))
		if raw == "" || strings.HasPrefix(raw, "<!--") {
			return nil
		}
		return []*doctree.Node{{Kind: doctree.KindParagraph, Text: raw}}

	default:
		t := strings.TrimSpace(inlineText(n, src))
		if t == "" {
			t = strings.TrimSpace(blockLines(n, src))
		}
		if t == "" {
			return nil
		}
		return []*doctree.Node{{Kind: doctree.KindParagraph, Text: t}}
	}
}

// splitInlines turns a paragraph into text and image nodes, preserving the
// order in which images appear within the surrounding prose.
func splitInlines(para ast.Node, src []byte) []*doctree.Node {
	var out []*doctree.Node
	var buf strings.Builder

	flush := func() {
		t := strings.TrimSpace(buf.String())
		if t != "" {
			out = append(out, &doctree.Node{Kind: doctree.KindParagraph, Text: t})
		}
		buf.Reset()
	}

	for c := para.FirstChild(); c != nil; c = c.NextSibling() {
		if img, ok := c.(*ast.Image); ok {
			flush()
			out = append(out, &doctree.Node{
				Kind: doctree.KindImage,
				Src:  string(img.Destination),
				Alt:  strings.TrimSpace(inlineText(img, src)),
			})
			continue
		}
		buf.WriteString(inlineText(c, src))
	}
	flush()
	return out
}

func (p *MarkdownParser) convertList(list *ast.List, src []byte) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindList, Ordered: list.IsOrdered()}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		itemNode := &doctree.Node{Kind: doctree.KindText}
		var parts []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				itemNode.Children = append(itemNode.Children, p.convertList(nested, src))
				continue
			}
			// Item content arrives as paragraphs or text blocks; split out
			// images so they stay addressable instead of flattening into text.
			for _, child := range splitInlines(c, src) {
				if child.Kind == doctree.KindImage {
					itemNode.Children = append(itemNode.Children, child)
					continue
				}
				if t := strings.TrimSpace(child.Text); t != "" {
					parts = append(parts, t)
				}
			}
		}
		itemNode.Text = strings.Join(parts, " ")
		node.Children = append(node.Children, itemNode)
	}
	return node
}

func convertTable(table *east.Table, src []byte) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindTable}
	for _, a := range table.Alignments {
		node.Alignments = append(node.Alignments, tableAlignment(a))
	}
	for r := table.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row = append(row, strings.TrimSpace(inlineText(cell, src)))
		}
		node.Rows = append(node.Rows, row)
	}
	return node
}

func tableAlignment(a east.Alignment) doctree.Alignment {
	switch a {
	case east.AlignLeft:
		return doctree.AlignLeft
	case east.AlignCenter:
		return doctree.AlignCenter
	case east.AlignRight:
		return doctree.AlignRight
	}
	return doctree.AlignNone
}

// inlineText collects the plain text of a node's inline content.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.URL(src))
		default:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}

// blockLines returns the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
