package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
)

// Format is a declared source format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ErrEncoding is returned when the input byte stream is not valid UTF-8.
// It is the only fatal parser error; structural problems degrade into
// findings on the document instead.
var ErrEncoding = errors.New("undecodable byte stream")

// Parser converts raw document bytes into a doctree.Document.
type Parser interface {
	Parse(data []byte, path string) (*doctree.Document, error)
}

// ForFormat returns the parser for a declared source format.
func ForFormat(f Format) (Parser, error) {
	switch f {
	case FormatMarkdown:
		return &MarkdownParser{}, nil
	case FormatHTML:
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported source format: %s", f)
	}
}

// Detect guesses the source format from a file path, defaulting to Markdown.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// titleFromPath derives a fallback document title from the filename.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
