package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
)

// HTMLParser handles HTML sources. The tokenizer is forgiving, so structural
// damage degrades into a best-effort tree; comments, scripts and
// whitespace-only text are dropped.
type HTMLParser struct{}

func (p *HTMLParser) Parse(data []byte, path string) (*doctree.Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrEncoding)
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		// html.Parse only fails on reader errors; a bytes.Reader cannot
		// produce one, but keep the contract total regardless.
		return nil, fmt.Errorf("%s: %w", path, ErrEncoding)
	}

	doc := &doctree.Document{
		Path: path,
		Root: &doctree.Node{Kind: doctree.KindDocument},
	}
	doc.Meta.Title = titleFromPath(path)
	if t := findElement(root, "title"); t != nil {
		if s := doctree.NormalizeTitle(textContent(t)); s != "" {
			doc.Meta.Title = s
		}
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	walkHTML(body, doc.Root)

	doc.Findings = append(doc.Findings, doctree.HeadingFindings(doc.Root)...)
	return doc, nil
}

// walkHTML appends block nodes for n's content to parent.Children.
func walkHTML(n *html.Node, parent *doctree.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if t := strings.TrimSpace(c.Data); t != "" {
				parent.Children = append(parent.Children, &doctree.Node{Kind: doctree.KindParagraph, Text: t})
			}
			continue
		case html.ElementNode:
		default:
			walkHTML(c, parent)
			continue
		}

		if level := headingLevel(c.Data); level > 0 {
			parent.Children = append(parent.Children, &doctree.Node{
				Kind:  doctree.KindHeading,
				Level: level,
				Title: doctree.NormalizeTitle(textContent(c)),
			})
			continue
		}

		switch c.Data {
		case "script", "style", "nav", "head":
			continue
		case "p", "blockquote":
			parent.Children = append(parent.Children, paragraphNodes(c)...)
		case "img":
			parent.Children = append(parent.Children, imageNode(c))
		case "pre":
			parent.Children = append(parent.Children, preNode(c))
		case "div":
			if hasClass(c, "mermaid") {
				parent.Children = append(parent.Children, &doctree.Node{
					Kind:     doctree.KindDiagram,
					Language: "mermaid",
					Body:     strings.TrimSpace(textContent(c)),
				})
				continue
			}
			walkHTML(c, parent)
		case "ul", "ol":
			parent.Children = append(parent.Children, listNode(c))
		case "table":
			parent.Children = append(parent.Children, tableNode(c))
		default:
			walkHTML(c, parent)
		}
	}
}

// paragraphNodes splits a paragraph element into text and image nodes in
// source order, mirroring the markdown parser's inline handling.
func paragraphNodes(p *html.Node) []*doctree.Node {
	var out []*doctree.Node
	var buf strings.Builder

	flush := func() {
		if t := strings.TrimSpace(buf.String()); t != "" {
			out = append(out, &doctree.Node{Kind: doctree.KindParagraph, Text: t})
		}
		buf.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				buf.WriteString(c.Data)
			case c.Type == html.ElementNode && c.Data == "img":
				flush()
				out = append(out, imageNode(c))
			case c.Type == html.ElementNode:
				walk(c)
			}
		}
	}
	walk(p)
	flush()
	return out
}

func imageNode(img *html.Node) *doctree.Node {
	return &doctree.Node{
		Kind: doctree.KindImage,
		Src:  attr(img, "src"),
		Alt:  attr(img, "alt"),
	}
}

// preNode converts <pre> blocks; a language-* class on the inner <code>
// carries the language, and mermaid-tagged blocks become diagrams.
func preNode(pre *html.Node) *doctree.Node {
	lang := ""
	if code := findElement(pre, "code"); code != nil {
		for _, cls := range strings.Fields(attr(code, "class")) {
			if l, ok := strings.CutPrefix(cls, "language-"); ok {
				lang = l
			}
		}
	}
	body := strings.Trim(textContent(pre), "\n")
	if strings.EqualFold(lang, "mermaid") || hasClass(pre, "mermaid") {
		if lang == "" {
			lang = "mermaid"
		}
		return &doctree.Node{Kind: doctree.KindDiagram, Language: lang, Body: body}
	}
	return &doctree.Node{Kind: doctree.KindCode, Language: lang, Body: body}
}

func listNode(list *html.Node) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindList, Ordered: list.Data == "ol"}
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		item := &doctree.Node{Kind: doctree.KindText}
		var parts []string
		for lc := c.FirstChild; lc != nil; lc = lc.NextSibling {
			switch {
			case lc.Type == html.ElementNode && (lc.Data == "ul" || lc.Data == "ol"):
				item.Children = append(item.Children, listNode(lc))
			case lc.Type == html.ElementNode && lc.Data == "img":
				item.Children = append(item.Children, imageNode(lc))
			case lc.Type == html.ElementNode:
				// Inline markup may wrap images; split them out like a
				// paragraph would so they stay addressable.
				for _, child := range paragraphNodes(lc) {
					if child.Kind == doctree.KindImage {
						item.Children = append(item.Children, child)
						continue
					}
					if t := strings.TrimSpace(child.Text); t != "" {
						parts = append(parts, t)
					}
				}
			case lc.Type == html.TextNode:
				if t := strings.TrimSpace(lc.Data); t != "" {
					parts = append(parts, t)
				}
			}
		}
		item.Text = strings.Join(parts, " ")
		node.Children = append(node.Children, item)
	}
	return node
}

func tableNode(table *html.Node) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindTable}
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tr" {
				rows = append(rows, c)
				continue
			}
			collect(c)
		}
	}
	collect(table)

	for ri, tr := range rows {
		var row []string
		ci := 0
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			row = append(row, doctree.NormalizeTitle(textContent(c)))
			if ri == 0 {
				node.Alignments = append(node.Alignments, cellAlignment(c))
			}
			ci++
		}
		node.Rows = append(node.Rows, row)
	}
	return node
}

func cellAlignment(cell *html.Node) doctree.Alignment {
	align := strings.ToLower(attr(cell, "align"))
	if align == "" {
		style := strings.ToLower(attr(cell, "style"))
		if i := strings.Index(style, "text-align:"); i >= 0 {
			align = strings.Trim(strings.SplitN(style[i+len("text-align:"):], ";", 2)[0], " ")
		}
	}
	switch align {
	case "left":
		return doctree.AlignLeft
	case "center":
		return doctree.AlignCenter
	case "right":
		return doctree.AlignRight
	}
	return doctree.AlignNone
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
