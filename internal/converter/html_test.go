package converter

import (
	"strings"
	"testing"
)

func TestHTMLConverter_Basic(t *testing.T) {
	input := `<html><head><script>junk()</script></head><body>
<h1>Guide</h1>
<p>Hello <b>world</b>.</p>
<pre><code class="language-sh">ls -la</code></pre>
<img src="shot.png" alt="screenshot">
<ul><li>one</li><li>two<ul><li>nested</li></ul></li></ul>
</body></html>`

	md, err := (&HTMLConverter{}).Convert(strings.NewReader(input))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	out := string(md)

	for _, want := range []string{
		"# Guide",
		"Hello world.",
		"```sh\nls -la\n```",
		"![screenshot](shot.png)",
		"- one",
		"- two",
		"  - nested",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "junk") {
		t.Errorf("script content leaked:\n%s", out)
	}
}

func TestForFormat(t *testing.T) {
	for _, f := range Formats() {
		if _, err := ForFormat(f); err != nil {
			t.Errorf("ForFormat(%q): %v", f, err)
		}
	}
	if _, err := ForFormat("epub"); err == nil {
		t.Error("expected error for unsupported source format")
	}
}
