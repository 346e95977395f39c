package parser

import (
	"strings"
	"testing"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
)

func TestHTMLParser_Basic(t *testing.T) {
	input := `<html><head><title>My Page</title><script>var x;</script></head>
<body>
<h1>Overview</h1>
<p>Some intro.</p>
<h2>Details</h2>
<p>More <em>text</em> here.</p>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Meta.Title != "My Page" {
		t.Errorf("expected title from <title>, got %q", doc.Meta.Title)
	}

	if len(doc.Root.Children) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(doc.Root.Children))
	}
	h1 := doc.Root.Children[0]
	if h1.Kind != doctree.KindHeading || h1.Level != 1 || h1.Title != "Overview" {
		t.Errorf("unexpected h1: %+v", h1)
	}
	if doc.Root.Children[3].Text != "More text here." {
		t.Errorf("inline markup not flattened: %q", doc.Root.Children[3].Text)
	}
	for _, n := range doc.Root.Children {
		if strings.Contains(n.Text, "var x") {
			t.Errorf("script content leaked: %q", n.Text)
		}
	}
}

func TestHTMLParser_CodeAndDiagram(t *testing.T) {
	input := `<body>
<pre><code class="language-python">print("hi")</code></pre>
<div class="mermaid">graph LR; A-->B</div>
</body>`

	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Root.Children) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Root.Children))
	}
	code := doc.Root.Children[0]
	if code.Kind != doctree.KindCode || code.Language != "python" {
		t.Errorf("unexpected code node: %+v", code)
	}
	diagram := doc.Root.Children[1]
	if diagram.Kind != doctree.KindDiagram || !strings.Contains(diagram.Body, "graph LR") {
		t.Errorf("unexpected diagram node: %+v", diagram)
	}
}

func TestHTMLParser_ImagesInParagraph(t *testing.T) {
	input := `<body><p>Look at <img src="cat.png" alt="a cat"> now.</p></body>`

	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Root.Children) != 3 {
		t.Fatalf("expected text/image/text, got %d blocks", len(doc.Root.Children))
	}
	img := doc.Root.Children[1]
	if img.Kind != doctree.KindImage || img.Src != "cat.png" || img.Alt != "a cat" {
		t.Errorf("unexpected image: %+v", img)
	}
}

func TestHTMLParser_Table(t *testing.T) {
	input := `<body><table>
<tr><th align="left">Name</th><th style="text-align: center">Qty</th></tr>
<tr><td>ash</td><td>2</td></tr>
</table></body>`

	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl := doc.Root.Children[0]
	if tbl.Kind != doctree.KindTable {
		t.Fatalf("expected table, got %s", tbl.Kind)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[1][0] != "ash" {
		t.Errorf("unexpected rows: %v", tbl.Rows)
	}
	if tbl.Alignments[0] != doctree.AlignLeft || tbl.Alignments[1] != doctree.AlignCenter {
		t.Errorf("unexpected alignments: %v", tbl.Alignments)
	}
}

func TestHTMLParser_MalformedDegrades(t *testing.T) {
	input := `<body><h1>Broken<p>Unclosed paragraph<h2>Next</body>`

	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input), "page.html")
	if err != nil {
		t.Fatalf("malformed html must not fail: %v", err)
	}
	var headings int
	for _, n := range doc.Root.Children {
		if n.Kind == doctree.KindHeading {
			headings++
		}
	}
	if headings != 2 {
		t.Errorf("expected 2 headings from malformed input, got %d", headings)
	}
}

func TestDetect(t *testing.T) {
	cases := map[string]Format{
		"a.md":       FormatMarkdown,
		"a.markdown": FormatMarkdown,
		"a.html":     FormatHTML,
		"a.htm":      FormatHTML,
		"a.txt":      FormatMarkdown,
	}
	for path, want := range cases {
		if got := Detect(path); got != want {
			t.Errorf("Detect(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestHTMLParser_ImagesInListItems(t *testing.T) {
	input := `<body><ul>
<li>step one <img src="shot.png" alt="screen"></li>
<li><p>step two <img src="shot.png" alt="screen"></p></li>
</ul></body>`

	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Root.Children) != 1 || doc.Root.Children[0].Kind != doctree.KindList {
		t.Fatalf("expected a single list, got %+v", doc.Root.Children)
	}
	for i, item := range doc.Root.Children[0].Children {
		if strings.Contains(item.Text, "img") || strings.Contains(item.Text, "shot.png") {
			t.Errorf("item %d: image flattened into text %q", i, item.Text)
		}
		if len(item.Children) != 1 || item.Children[0].Kind != doctree.KindImage || item.Children[0].Src != "shot.png" {
			t.Errorf("item %d: expected image child, got %+v", i, item.Children)
		}
	}
}
