// Package vectormath provides dense-vector similarity primitives shared by
// the reasoning bank and the memory graph.
//
// All functions are defensive: zero-norm vectors and dimension mismatches
// degrade to neutral values (similarity 0) rather than returning errors, so
// callers can invoke them speculatively from hot paths.
package vectormath

import "math"

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
//
// Returns 0 if the vectors have different dimensions or if either has zero
// norm. Mismatched vectors are treated as unrelated, never as an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged (as a copy).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// WeightedAverage computes the weighted average of vectors, normalized by the
// total weight. Vectors shorter than dim contribute only their defined
// components; vectors longer than dim are truncated. Weights with
// non-positive total produce a zero vector.
func WeightedAverage(vectors [][]float32, weights []float64, dim int) []float32 {
	out := make([]float32, dim)
	if len(vectors) == 0 || len(vectors) != len(weights) || dim <= 0 {
		return out
	}

	var total float64
	for i, v := range vectors {
		w := weights[i]
		if w <= 0 || len(v) == 0 {
			continue
		}
		for j := 0; j < len(v) && j < dim; j++ {
			out[j] += float32(w) * v[j]
		}
		total += w
	}

	if total > 0 {
		for i := range out {
			out[i] = float32(float64(out[i]) / total)
		}
	}

	return out
}
