package extraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrUnreadable indicates the uploaded bytes could not be parsed as a PDF.
var ErrUnreadable = errors.New("document is not a readable PDF")

// ErrNoText indicates the PDF parsed but no page yielded extractable text.
var ErrNoText = errors.New("document contains no extractable text")

// Extractor extracts plain text from an uploaded document.
type Extractor interface {
	// Extract returns the concatenated text of all pages in page order.
	// It never returns an empty string with a nil error.
	Extract(data []byte) (string, error)
}

// PDF implements Extractor using MuPDF. It operates entirely on the
// request-scoped byte buffer and writes nothing to disk.
type PDF struct{}

// NewPDF creates a new PDF Extractor instance
func NewPDF() *PDF {
	return &PDF{}
}

// Extract parses the document and concatenates the text of every page
func (p *PDF) Extract(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %v", ErrUnreadable, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("%w: reading page %d: %v", ErrUnreadable, i+1, err)
		}
		sb.WriteString(text)
	}

	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return "", ErrNoText
	}

	return content, nil
}
