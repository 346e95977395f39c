package converter

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLConverter turns HTML into Markdown, keeping headings, images, code
// fences, lists and plain text; presentation-only markup is discarded.
type HTMLConverter struct{}

func (c *HTMLConverter) Convert(r io.Reader) ([]byte, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out strings.Builder
	body := findTag(root, "body")
	if body == nil {
		body = root
	}
	writeMarkdown(&out, body, 0)
	return []byte(strings.TrimSpace(out.String()) + "\n"), nil
}

func writeMarkdown(out *strings.Builder, n *html.Node, listDepth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if t := strings.TrimSpace(c.Data); t != "" {
				fmt.Fprintf(out, "%s\n\n", t)
			}
			continue
		case html.ElementNode:
		default:
			writeMarkdown(out, c, listDepth)
			continue
		}

		switch c.Data {
		case "script", "style", "nav", "head":
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(c.Data[1] - '0')
			fmt.Fprintf(out, "%s %s\n\n", strings.Repeat("#", level), nodeText(c))
		case "p", "blockquote":
			if t := nodeText(c); t != "" {
				fmt.Fprintf(out, "%s\n\n", t)
			}
		case "img":
			fmt.Fprintf(out, "![%s](%s)\n\n", tagAttr(c, "alt"), tagAttr(c, "src"))
		case "pre":
			lang := ""
			if code := findTag(c, "code"); code != nil {
				for _, cls := range strings.Fields(tagAttr(code, "class")) {
					if l, ok := strings.CutPrefix(cls, "language-"); ok {
						lang = l
					}
				}
			}
			fmt.Fprintf(out, "```%s\n%s\n```\n\n", lang, strings.Trim(rawText(c), "\n"))
		case "ul", "ol":
			writeMarkdownL(out, c, listDepth)
			out.WriteString("\n")
		default:
			writeMarkdown(out, c, listDepth)
		}
	}
}

func writeMarkdownL(out *strings.Builder, list *html.Node, depth int) {
	ordered := list.Data == "ol"
	i := 0
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		i++
		marker := "-"
		if ordered {
			marker = fmt.Sprintf("%d.", i)
		}
		fmt.Fprintf(out, "%s%s %s\n", strings.Repeat("  ", depth), marker, liText(c))
		for lc := c.FirstChild; lc != nil; lc = lc.NextSibling {
			if lc.Type == html.ElementNode && (lc.Data == "ul" || lc.Data == "ol") {
				writeMarkdownL(out, lc, depth+1)
			}
		}
	}
}

// liText gathers an item's own text, excluding nested lists.
func liText(li *html.Node) string {
	var parts []string
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}
		if t := nodeText(c); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func nodeText(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
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
	return buf.String()
}

func tagAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}
