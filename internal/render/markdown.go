package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// MarkdownRenderer regenerates Markdown from the canonical tree. Markdown is
// the round-trip format: placeholders resolve back to their original image
// references and fenced blocks.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Extension() string { return ".md" }

func (r *MarkdownRenderer) RenderSection(s *canonical.Section, res *resource.Store, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if s.Title != "" {
		fmt.Fprintf(&buf, "%s %s\n\n", strings.Repeat("#", s.Level), s.Title)
	}
	for _, n := range s.Content {
		writeMarkdownNode(&buf, n, res, 0)
	}
	return buf.Bytes(), nil
}

func writeMarkdownNode(buf *bytes.Buffer, n *doctree.Node, res *resource.Store, indent int) {
	pad := strings.Repeat("  ", indent)
	switch n.Kind {
	case doctree.KindParagraph, doctree.KindText:
		fmt.Fprintf(buf, "%s%s\n\n", pad, n.Text)

	case doctree.KindPlaceholder:
		writePlaceholder(buf, n, res)

	case doctree.KindImage:
		fmt.Fprintf(buf, "![%s](%s)\n\n", n.Alt, n.Src)

	case doctree.KindCode, doctree.KindDiagram:
		fmt.Fprintf(buf, "```%s\n%s\n```\n\n", n.Language, n.Body)

	case doctree.KindList:
		writeMarkdownList(buf, n, res, indent)
		buf.WriteByte('\n')

	case doctree.KindTable:
		writeMarkdownTable(buf, n)
		buf.WriteByte('\n')
	}
}

func writePlaceholder(buf *bytes.Buffer, n *doctree.Node, res *resource.Store) {
	r, ok := res.ByID(n.RefID)
	if !ok {
		fmt.Fprintf(buf, "<!-- unresolved resource %s -->\n\n", n.RefID)
		return
	}
	switch r.Kind {
	case resource.KindImage:
		fmt.Fprintf(buf, "![%s](%s)\n\n", r.Alt, r.Src)
	case resource.KindCode, resource.KindDiagram:
		fmt.Fprintf(buf, "```%s\n%s\n```\n\n", r.Language, r.Body)
	}
}

func writeMarkdownList(buf *bytes.Buffer, list *doctree.Node, res *resource.Store, indent int) {
	pad := strings.Repeat("  ", indent)
	for i, item := range list.Children {
		marker := "-"
		if list.Ordered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		fmt.Fprintf(buf, "%s%s %s\n", pad, marker, item.Text)
		for _, child := range item.Children {
			switch child.Kind {
			case doctree.KindList:
				writeMarkdownList(buf, child, res, indent+1)
			case doctree.KindImage:
				fmt.Fprintf(buf, "%s  ![%s](%s)\n", pad, child.Alt, child.Src)
			case doctree.KindPlaceholder:
				if r, ok := res.ByID(child.RefID); ok && r.Kind == resource.KindImage {
					fmt.Fprintf(buf, "%s  ![%s](%s)\n", pad, r.Alt, r.Src)
				}
			}
		}
	}
}

func writeMarkdownTable(buf *bytes.Buffer, table *doctree.Node) {
	if len(table.Rows) == 0 {
		return
	}
	cols := len(table.Rows[0])
	writeRow := func(cells []string) {
		buf.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(buf, " %s |", cell)
		}
		buf.WriteByte('\n')
	}

	writeRow(table.Rows[0])
	buf.WriteString("|")
	for i := 0; i < cols; i++ {
		buf.WriteString(" " + alignMarker(columnAlignment(table, i)) + " |")
	}
	buf.WriteByte('\n')
	for _, row := range table.Rows[1:] {
		writeRow(row)
	}
}

func columnAlignment(table *doctree.Node, col int) doctree.Alignment {
	if col < len(table.Alignments) {
		return table.Alignments[col]
	}
	return doctree.AlignNone
}

func alignMarker(a doctree.Alignment) string {
	switch a {
	case doctree.AlignLeft:
		return ":---"
	case doctree.AlignCenter:
		return ":---:"
	case doctree.AlignRight:
		return "---:"
	}
	return "---"
}
