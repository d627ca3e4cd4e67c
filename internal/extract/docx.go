package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX pulls the raw text out of a DOCX document body. Structural
// formatting is discarded; paragraphs are joined with newlines.
func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open docx archive: %w", err)
	}

	content, err := readDocumentXML(reader)
	if err != nil {
		return "", err
	}

	text := parseDocumentXML(content)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: docx body is empty", ErrNoTextContent)
	}
	return text, nil
}

// readDocumentXML locates and reads word/document.xml from the archive.
func readDocumentXML(reader *zip.Reader) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("extract: open docx body: %w", err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("extract: read docx body: %w", err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: docx archive has no word/document.xml", ErrNoTextContent)
}

// documentXML mirrors the subset of word/document.xml we care about:
// paragraphs containing runs containing text elements.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML flattens the document XML into newline-joined paragraphs.
func parseDocumentXML(content []byte) string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var sb strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				sb.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
