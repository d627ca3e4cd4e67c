package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

// initEngineOnce guards the one-time PDF engine initialization. The parser
// is resolved lazily on the first PDF extraction and reused for the process
// lifetime.
var initEngineOnce sync.Once

// initEngine performs the idempotent engine setup. The pure-Go parser needs
// no external resources, so this only silences the library's internal debug
// output; it exists as a single initialization point should a remote engine
// ever be wired in.
func initEngine() {
	pdf.DebugOn = false
}

// extractPDF iterates the document's pages in order, prefixing each page's
// text with a "[Page i]" marker so downstream citation can report the source
// page. A page whose extraction fails (or panics inside the parser) is
// replaced with an inline placeholder and processing continues.
//
// Returns ErrNoTextContent when no page yields any text — the signature of
// an image-only or scanned PDF.
func extractPDF(ctx context.Context, data []byte) (string, error) {
	initEngineOnce.Do(initEngine)

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}

	var sb strings.Builder
	gotText := false

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("extract: pdf cancelled at page %d: %w", i, err)
		}

		pageText, pageErr := extractPage(reader, i)
		if pageErr != nil {
			// Partial-failure tolerance: placeholder, keep going.
			sb.WriteString(fmt.Sprintf("[Page %d unavailable]\n", i))
			continue
		}

		sb.WriteString(fmt.Sprintf("[Page %d]\n", i))
		if strings.TrimSpace(pageText) != "" {
			gotText = true
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}

	if !gotText {
		return "", fmt.Errorf("%w: pdf has no extractable text (scanned or image-only?)", ErrNoTextContent)
	}

	return sb.String(), nil
}

// extractPage pulls the plain text of a single 1-based page, converting
// parser panics into errors so one broken page never aborts the document.
func extractPage(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: pdf page %d: parser panic: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("extract: pdf page %d: missing page object", num)
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract: pdf page %d: %w", num, err)
	}
	return text, nil
}
