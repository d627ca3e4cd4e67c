package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// FallbackEmbedder produces deterministic hash-based vectors with no network
// dependency. The vectors are lexical features, not learned semantics: they
// are only mutually comparable with other fallback vectors, but they keep
// the pipeline's invariant that every chunk carries a Dimensions-length
// embedding even fully offline.
type FallbackEmbedder struct{}

// NewFallbackEmbedder constructs a FallbackEmbedder.
func NewFallbackEmbedder() *FallbackEmbedder {
	return &FallbackEmbedder{}
}

// Embed builds a deterministic vector from text:
//
//  1. each lowercased whitespace-split word increments the slot at
//     fnv1a(word) mod Dimensions by 1;
//  2. every rune of the original text increments the slot at
//     (rune*17) mod Dimensions by 0.1;
//  3. the result is L2-normalized (an all-zero vector stays all-zero).
//
// The error is always nil; the signature satisfies Embedder.
func (e *FallbackEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, Dimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%Dimensions] += 1
	}

	for _, r := range text {
		vec[(uint32(r)*17)%Dimensions] += 0.1
	}

	normalize(vec)
	return vec, nil
}

// normalize scales vec in place to unit L2 length. A zero-magnitude vector
// is left untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	mag := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / mag)
	}
}
