// Package extract converts uploaded study documents into plain text.
// It supports PDF, DOCX, and plain-text inputs, resolving the format from
// the declared MIME type first and the file extension second.
//
// Extraction is partial-failure tolerant for PDFs: a page that cannot be
// parsed is replaced with an inline placeholder so the rest of the document
// still reaches the retrieval pipeline.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Format identifies a supported document format.
type Format string

const (
	// FormatPDF is a PDF document.
	FormatPDF Format = "pdf"
	// FormatDOCX is a Word OOXML document.
	FormatDOCX Format = "docx"
	// FormatText is a plain-text document.
	FormatText Format = "txt"
)

// ErrUnsupportedFormat is returned when neither the declared MIME type nor
// the file extension identifies a supported format.
var ErrUnsupportedFormat = errors.New("extract: unsupported file format")

// ErrNoTextContent is returned when extraction succeeded mechanically but
// yielded no usable text (e.g. an image-only scanned PDF).
var ErrNoTextContent = errors.New("extract: no text content found")

// mimeFormats maps declared MIME types to formats.
var mimeFormats = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"text/plain": FormatText,
}

// extFormats maps lowercase file extensions to formats.
var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".txt":  FormatText,
}

// DetectFormat resolves the document format from the declared MIME type,
// falling back to the file extension. Returns ErrUnsupportedFormat when
// neither identifies a supported format.
func DetectFormat(name, declaredType string) (Format, error) {
	if mt := strings.ToLower(strings.TrimSpace(declaredType)); mt != "" {
		// Declared types may carry parameters ("text/plain; charset=utf-8").
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		if f, ok := mimeFormats[mt]; ok {
			return f, nil
		}
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s (type %q)", ErrUnsupportedFormat, name, declaredType)
}

// Extract converts raw file bytes into plain text according to the format
// resolved from name and declaredType. It returns the extracted text and the
// resolved format.
func Extract(ctx context.Context, name, declaredType string, data []byte) (string, Format, error) {
	format, err := DetectFormat(name, declaredType)
	if err != nil {
		return "", "", err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = extractPDF(ctx, data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatText:
		text, err = extractText(data)
	}
	if err != nil {
		return "", format, err
	}

	return text, format, nil
}

// extractText reads plain text as-is, rejecting empty input.
func extractText(data []byte) (string, error) {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTextContent
	}
	return text, nil
}
