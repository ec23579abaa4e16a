// =============================================================================
// Landed Cost Calculator - Text Source Module
// =============================================================================
//
// This module turns input files into RawDocuments: ordered lines of text per
// page. It is the only place that knows about file formats.
//
// SUPPORTED INPUTS:
//   .pdf - machine-generated PDFs, read with github.com/ledongthuc/pdf.
//          Text runs are grouped into rows by the library; words within a
//          row are joined with a space when a visible gap separates them.
//   .txt - text already extracted by another tool. A form feed ("\f")
//          starts a new page.
//
// Scanned (image only) PDFs yield no text and are reported as empty.
//
// =============================================================================

package textsource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// ErrNoText is returned when a document contains no extractable text.
var ErrNoText = errors.New("document contains no extractable text")

// Extensions lists the file extensions Load understands.
var Extensions = []string{".pdf", ".txt"}

// Supported reports whether Load can read the file.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads a .pdf or .txt file into a RawDocument.
func Load(path string) (*types.RawDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return ReadPDF(bytes.NewReader(data), int64(len(data)), path)

	case ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ReadText(f, path)
	}
	return nil, fmt.Errorf("unsupported input file type: %s", filepath.Ext(path))
}

// ReadText builds a document from plain text.
func ReadText(r io.Reader, source string) (*types.RawDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%s: %w", source, ErrNoText)
	}
	return types.NewRawDocument(source, string(data)), nil
}

// ReadPDF extracts the text rows of every page of a PDF.
func ReadPDF(r io.ReaderAt, size int64, source string) (*types.RawDocument, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", source, err)
	}

	doc := &types.RawDocument{Source: source}
	hasText := false

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, nil)
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d of %s: %w", i, source, err)
		}

		var lines []string
		for _, row := range rows {
			line := joinWords(row.Content)
			if line == "" {
				continue
			}
			lines = append(lines, line)
			hasText = true
		}
		doc.Pages = append(doc.Pages, lines)
	}

	if !hasText {
		return nil, fmt.Errorf("%s: %w", source, ErrNoText)
	}
	return doc, nil
}

// joinWords concatenates the text runs of one row. Many PDFs emit one run
// per glyph, so a space is inserted only where the horizontal gap between
// runs is wider than a fraction of the font size.
func joinWords(runs []pdf.Text) string {
	var b strings.Builder
	var prev *pdf.Text

	for i := range runs {
		t := &runs[i]
		if t.S == "" {
			continue
		}
		if prev != nil {
			gap := t.X - (prev.X + prev.W)
			if gap > 0.2*t.FontSize && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prev = t
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
