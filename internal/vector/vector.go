// Package vector holds the small amount of vector math shared by the index
// implementations and the consolidation pass.
package vector

import "math"

// Cosine calculates the cosine similarity between two vectors.
// Mismatched or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Centroid returns the component-wise mean of the given vectors.
// All vectors must share the same dimension; nil input yields nil.
func Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i := range v {
			sums[i] += float64(v[i])
		}
	}

	out := make([]float32, dim)
	n := float64(len(vectors))
	for i := range sums {
		out[i] = float32(sums[i] / n)
	}
	return out
}
