package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor reads the plain text of a stored document.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// FileExtractor reads PDFs page by page and plain text files as-is.
type FileExtractor struct{}

func (FileExtractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ingest: read %s: %w", filepath.Base(path), err)
		}
		return string(data), nil
	default:
		return "", ErrUnsupportedFile
	}
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("ingest: open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		text, err := pageText(page, fonts)
		if err != nil {
			return "", fmt.Errorf("ingest: read page %d of %s: %w", i, filepath.Base(path), err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// pageText keeps line breaks by grouping text runs into rows.
func pageText(page pdf.Page, fonts map[string]*pdf.Font) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		return page.GetPlainText(fonts)
	}
	var b strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			b.WriteString(word.S)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
