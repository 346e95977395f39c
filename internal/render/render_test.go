package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

func sampleStore(t *testing.T) *resource.Store {
	t.Helper()
	s := resource.NewStore()
	s.GetOrInsert(resource.KindImage, resource.SumText("logo.png"), func(id string) *resource.Resource {
		return &resource.Resource{Src: "logo.png", Alt: "logo", State: resource.StateResolved}
	})
	s.GetOrInsert(resource.KindCode, resource.SumText("go\nx := 1"), func(id string) *resource.Resource {
		return &resource.Resource{Language: "go", Body: "x := 1", State: resource.StateResolved}
	})
	return s
}

func sampleSection() *canonical.Section {
	return &canonical.Section{
		Title: "Results",
		Level: 2,
		Path:  []int{0, 1},
		Content: []*doctree.Node{
			{Kind: doctree.KindParagraph, Text: "Numbers follow."},
			{Kind: doctree.KindPlaceholder, RefKind: "image", RefID: "img_000"},
			{Kind: doctree.KindPlaceholder, RefKind: "code", RefID: "code_000"},
		},
	}
}

func TestMarkdownRenderer_RoundTripsPlaceholders(t *testing.T) {
	out, err := (&MarkdownRenderer{}).RenderSection(sampleSection(), sampleStore(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	md := string(out)
	for _, want := range []string{"## Results", "![logo](logo.png)", "```go\nx := 1\n```"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown output missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownRenderer_UntitledSection(t *testing.T) {
	s := &canonical.Section{Content: []*doctree.Node{{Kind: doctree.KindParagraph, Text: "preamble"}}}
	out, err := (&MarkdownRenderer{}).RenderSection(s, resource.NewStore(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "#") {
		t.Errorf("untitled section must not emit a heading: %q", out)
	}
}

func TestMarkdownRenderer_Table(t *testing.T) {
	s := &canonical.Section{Content: []*doctree.Node{{
		Kind:       doctree.KindTable,
		Alignments: []doctree.Alignment{doctree.AlignLeft, doctree.AlignRight},
		Rows:       [][]string{{"Name", "Qty"}, {"ash", "2"}},
	}}}
	out, _ := (&MarkdownRenderer{}).RenderSection(s, resource.NewStore(), nil)
	if !strings.Contains(string(out), "| :--- | ---: |") {
		t.Errorf("alignment row wrong:\n%s", out)
	}
}

func TestHTMLRenderer_EmitsMarkup(t *testing.T) {
	out, err := (&HTMLRenderer{}).RenderSection(sampleSection(), sampleStore(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "<h2") || !strings.Contains(html, "Results") {
		t.Errorf("expected an h2 heading:\n%s", html)
	}
	if !strings.Contains(html, "<img") {
		t.Errorf("expected an img tag:\n%s", html)
	}
}

func TestLaTeXRenderer_EscapesAndSections(t *testing.T) {
	s := &canonical.Section{
		Title: "Cost & Profit",
		Level: 2,
		Content: []*doctree.Node{
			{Kind: doctree.KindParagraph, Text: "50% of $10"},
		},
	}
	out, err := (&LaTeXRenderer{}).RenderSection(s, resource.NewStore(), nil)
	if err != nil {
		t.Fatal(err)
	}
	tex := string(out)
	if !strings.Contains(tex, "\\subsection{Cost \\& Profit}") {
		t.Errorf("level 2 must map to subsection with escaping:\n%s", tex)
	}
	if !strings.Contains(tex, "50\\% of \\$10") {
		t.Errorf("body must be escaped:\n%s", tex)
	}
}

func TestJSONRenderer_OneLinePerSection(t *testing.T) {
	out, err := (&JSONRenderer{}).RenderSection(sampleSection(), sampleStore(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	line := bytes.TrimRight(out, "\n")
	if bytes.ContainsRune(line, '\n') {
		t.Errorf("section must serialize to a single JSON line:\n%s", out)
	}
	if !bytes.Contains(line, []byte(`"img_000"`)) {
		t.Errorf("placeholder reference missing:\n%s", line)
	}
}

func TestDocxRenderer_WholeDocument(t *testing.T) {
	if !WholeDocument("docx") {
		t.Error("docx must render as a whole document")
	}
	for _, f := range []string{"md", "html", "latex", "json"} {
		if WholeDocument(f) {
			t.Errorf("%s must render per section", f)
		}
	}

	tree := &canonical.Tree{
		DocumentPath: "doc.md",
		Sections:     []*canonical.Section{sampleSection()},
	}
	r, err := ForFormat("docx")
	if err != nil {
		t.Fatal(err)
	}
	dr, ok := r.(DocumentRenderer)
	if !ok {
		t.Fatal("docx renderer must implement DocumentRenderer")
	}
	out, err := dr.RenderDocument(tree, sampleStore(t), nil)
	if err != nil {
		t.Fatalf("render docx: %v", err)
	}
	// A docx container is a zip archive.
	if len(out) < 4 || out[0] != 'P' || out[1] != 'K' {
		t.Errorf("expected a zip container, got % x", out[:min(8, len(out))])
	}
}

func TestForFormat_Unknown(t *testing.T) {
	if _, err := ForFormat("rtf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestMarkdownRenderer_ListItemImages(t *testing.T) {
	s := &canonical.Section{Content: []*doctree.Node{{
		Kind: doctree.KindList,
		Children: []*doctree.Node{{
			Kind: doctree.KindText,
			Text: "see the logo",
			Children: []*doctree.Node{
				{Kind: doctree.KindPlaceholder, RefKind: "image", RefID: "img_000"},
			},
		}},
	}}}
	out, err := (&MarkdownRenderer{}).RenderSection(s, sampleStore(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	md := string(out)
	if !strings.Contains(md, "- see the logo") || !strings.Contains(md, "![logo](logo.png)") {
		t.Errorf("list item image lost in output:\n%s", md)
	}
}
