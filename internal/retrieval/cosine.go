package retrieval

import "math"

// CosineSimilarity returns the normalized dot product of a and b:
// dot(a,b) / (|a| * |b|). It is defined as 0 when the vectors' dimensions
// differ or when either has zero magnitude — mismatches count as "no match"
// rather than an error, so a corpus mixing vector generations still
// searches cleanly.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
