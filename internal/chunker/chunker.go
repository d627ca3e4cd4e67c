// Package chunker splits extracted document text into bounded, overlapping
// passages. Sentence-boundary splitting keeps each chunk semantically
// coherent for embedding; a word-level overlap window between consecutive
// chunks preserves context for queries whose relevant text straddles a
// chunk boundary.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultMaxSize is the default maximum chunk length in characters.
const DefaultMaxSize = 1000

// DefaultOverlapTarget is the default character-count overlap target.
// The actual overlap is approximated in words: overlapTarget/5 words,
// capped at half the closed chunk's word count.
const DefaultOverlapTarget = 100

// MinChunkLength is the trimmed length below which a chunk is discarded.
// Fragments this short carry no retrievable meaning.
const MinChunkLength = 10

// sentencePattern matches sentence-like units: maximal runs of characters
// that contain no terminator. The terminators themselves are dropped; each
// closed chunk is re-terminated with a period.
var sentencePattern = regexp.MustCompile(`[^.!?]+`)

// Chunker splits text into sentence-aligned chunks with word overlap.
type Chunker struct {
	maxSize       int
	overlapTarget int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum chunk length in characters.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithOverlapTarget sets the character-count overlap target.
func WithOverlapTarget(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlapTarget = overlap
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize:       DefaultMaxSize,
		overlapTarget: DefaultOverlapTarget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split breaks text into chunk strings in original document order.
//
// Sentence-like units (split on '.', '!', '?') are greedily accumulated into
// a buffer joined by ". ". When appending the next unit would exceed the
// maximum size, the buffer is closed as one chunk (with a terminating
// period) and the next buffer is seeded with the last
// min(overlapTarget/5, wordCount/2) words of the closed chunk, followed by
// the overflowing unit. The seed shrinks (down to nothing) so that
// seed+unit never exceeds the maximum; only a single unit longer than the
// maximum passes through unsplit. Chunks whose trimmed length is at most
// MinChunkLength are discarded.
func (c *Chunker) Split(text string) []string {
	units := sentencePattern.FindAllString(text, -1)

	var chunks []string
	var buffer string

	appendChunk := func(chunk string) {
		if len(strings.TrimSpace(chunk)) > MinChunkLength {
			chunks = append(chunks, chunk)
		}
	}

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}

		if buffer == "" {
			buffer = unit
			continue
		}

		if len(buffer)+len(". ")+len(unit) > c.maxSize {
			closed := buffer + "."
			appendChunk(closed)
			buffer = c.overlapSeed(closed, c.maxSize-len(unit)) + unit
			continue
		}

		buffer += ". " + unit
	}

	if buffer != "" {
		appendChunk(buffer + ".")
	}

	return chunks
}

// overlapSeed returns the trailing overlap window of a closed chunk: the
// last min(overlapTarget/5, wordCount/2) words, with a trailing space so
// the overflowing unit can be appended directly. Words are shed from the
// front until the seed fits the byte budget; returns "" when nothing fits.
func (c *Chunker) overlapSeed(closed string, budget int) string {
	if budget <= 0 {
		return ""
	}
	words := strings.Fields(closed)
	n := c.overlapTarget / 5
	if half := len(words) / 2; n > half {
		n = half
	}
	for ; n > 0; n-- {
		seed := strings.Join(words[len(words)-n:], " ") + " "
		if len(seed) <= budget {
			return seed
		}
	}
	return ""
}
