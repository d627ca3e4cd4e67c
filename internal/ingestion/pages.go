package ingestion

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nikzart/excellor-ai/internal/extract"
)

// pageMarkerPattern matches the page markers the PDF extractor writes,
// including placeholders for pages it could not read.
var pageMarkerPattern = regexp.MustCompile(`\[Page (\d+)(?: unavailable)?\]`)

type segment struct {
	page int
	text string
}

// pageSegments splits extracted text along page markers so chunks can be
// attributed to their source page. Only PDF text carries markers; other
// formats come back as a single segment with page 0 (unknown).
func pageSegments(text string, format extract.Format) []segment {
	if format != extract.FormatPDF {
		return []segment{{page: 0, text: text}}
	}

	markers := pageMarkerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return []segment{{page: 0, text: text}}
	}

	segments := make([]segment, 0, len(markers))
	for i, m := range markers {
		page, _ := strconv.Atoi(text[m[2]:m[3]])
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		if body == "" {
			continue
		}
		segments = append(segments, segment{page: page, text: body})
	}
	return segments
}
