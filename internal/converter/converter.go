// Package converter implements the inverse conversion direction: foreign
// document formats into Markdown, the pipeline's canonical source format.
package converter

import (
	"fmt"
	"io"
)

// Converter turns a foreign-format document into Markdown bytes.
type Converter interface {
	Convert(r io.Reader) ([]byte, error)
}

// ForFormat returns the converter for a source format name.
func ForFormat(from string) (Converter, error) {
	switch from {
	case "pdf":
		return &PDFConverter{FallbackPdftotext: true}, nil
	case "docx":
		return &DOCXConverter{}, nil
	case "html":
		return &HTMLConverter{}, nil
	default:
		return nil, fmt.Errorf("unsupported conversion source: %s", from)
	}
}

// Formats lists supported conversion source formats.
func Formats() []string {
	return []string{"pdf", "docx", "html"}
}
