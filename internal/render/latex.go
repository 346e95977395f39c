package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// LaTeXRenderer emits LaTeX body fragments; document preamble and class
// setup belong to the host, not the core.
type LaTeXRenderer struct{}

func (r *LaTeXRenderer) Extension() string { return ".tex" }

var sectionCommands = []string{
	"\\section", "\\section", "\\subsection", "\\subsubsection", "\\paragraph", "\\subparagraph", "\\subparagraph",
}

func (r *LaTeXRenderer) RenderSection(s *canonical.Section, res *resource.Store, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if s.Title != "" {
		level := s.Level
		if level >= len(sectionCommands) {
			level = len(sectionCommands) - 1
		}
		fmt.Fprintf(&buf, "%s{%s}\n\n", sectionCommands[level], escapeLaTeX(s.Title))
	}
	for _, n := range s.Content {
		writeLaTeXNode(&buf, n, res)
	}
	return buf.Bytes(), nil
}

func writeLaTeXNode(buf *bytes.Buffer, n *doctree.Node, res *resource.Store) {
	switch n.Kind {
	case doctree.KindParagraph, doctree.KindText:
		fmt.Fprintf(buf, "%s\n\n", escapeLaTeX(n.Text))

	case doctree.KindPlaceholder:
		r, ok := res.ByID(n.RefID)
		if !ok {
			return
		}
		switch r.Kind {
		case resource.KindImage:
			fmt.Fprintf(buf, "\\includegraphics{%s}\n\n", r.Src)
		case resource.KindCode, resource.KindDiagram:
			fmt.Fprintf(buf, "\\begin{verbatim}\n%s\n\\end{verbatim}\n\n", r.Body)
		}

	case doctree.KindCode, doctree.KindDiagram:
		fmt.Fprintf(buf, "\\begin{verbatim}\n%s\n\\end{verbatim}\n\n", n.Body)

	case doctree.KindImage:
		fmt.Fprintf(buf, "\\includegraphics{%s}\n\n", n.Src)

	case doctree.KindList:
		writeLaTeXList(buf, n, res)
		buf.WriteByte('\n')

	case doctree.KindTable:
		writeLaTeXTable(buf, n)
		buf.WriteByte('\n')
	}
}

func writeLaTeXList(buf *bytes.Buffer, list *doctree.Node, res *resource.Store) {
	env := "itemize"
	if list.Ordered {
		env = "enumerate"
	}
	fmt.Fprintf(buf, "\\begin{%s}\n", env)
	for _, item := range list.Children {
		fmt.Fprintf(buf, "\\item %s\n", escapeLaTeX(item.Text))
		for _, child := range item.Children {
			switch child.Kind {
			case doctree.KindList:
				writeLaTeXList(buf, child, res)
			case doctree.KindImage:
				fmt.Fprintf(buf, "\\includegraphics{%s}\n", child.Src)
			case doctree.KindPlaceholder:
				if r, ok := res.ByID(child.RefID); ok && r.Kind == resource.KindImage {
					fmt.Fprintf(buf, "\\includegraphics{%s}\n", r.Src)
				}
			}
		}
	}
	fmt.Fprintf(buf, "\\end{%s}\n", env)
}

func writeLaTeXTable(buf *bytes.Buffer, table *doctree.Node) {
	if len(table.Rows) == 0 {
		return
	}
	cols := len(table.Rows[0])
	spec := make([]string, cols)
	for i := 0; i < cols; i++ {
		switch columnAlignment(table, i) {
		case doctree.AlignCenter:
			spec[i] = "c"
		case doctree.AlignRight:
			spec[i] = "r"
		default:
			spec[i] = "l"
		}
	}
	fmt.Fprintf(buf, "\\begin{tabular}{%s}\n", strings.Join(spec, ""))
	for i, row := range table.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = escapeLaTeX(cell)
		}
		buf.WriteString(strings.Join(cells, " & "))
		buf.WriteString(" \\\\\n")
		if i == 0 {
			buf.WriteString("\\hline\n")
		}
	}
	buf.WriteString("\\end{tabular}\n")
}

var latexEscaper = strings.NewReplacer(
	"\\", "\\textbackslash{}",
	"&", "\\&",
	"%", "\\%",
	"$", "\\$",
	"#", "\\#",
	"_", "\\_",
	"{", "\\{",
	"}", "\\}",
	"~", "\\textasciitilde{}",
	"^", "\\textasciicircum{}",
)

func escapeLaTeX(s string) string {
	return latexEscaper.Replace(s)
}
