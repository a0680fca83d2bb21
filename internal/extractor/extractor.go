// Package extractor turns uploaded documents into plain text.
//
// Two formats are supported and selected by file extension:
//   - DOCX: paragraph texts in document order joined by "\n"; empty
//     paragraphs become empty lines.
//   - PDF: page texts in page order concatenated without a separator;
//     pages without extractable text (scans) contribute nothing.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"aigrader/internal/apperrors"
)

// Format identifies a supported document format.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// ContentType returns the canonical MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Detect maps a filename to its format by extension (case-insensitive).
// Anything else yields *apperrors.UnsupportedFormatError.
func Detect(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return FormatDOCX, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", &apperrors.UnsupportedFormatError{Filename: filename}
	}
}

// Extractor converts document bytes to text. The zero value is ready to use
// and safe for concurrent use.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of data, whose format is declared by filename.
func (e *Extractor) Extract(data []byte, filename string) (string, error) {
	format, err := Detect(filename)
	if err != nil {
		return "", err
	}

	var text string
	switch format {
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatPDF:
		text, err = extractPDF(data)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperrors.ErrExtraction, filename, err)
	}
	return text, nil
}
