package vectormath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1.0,
		},
		{
			name: "dimension mismatch is neutral",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2},
			want: 0.0,
		},
		{
			name: "zero vector is neutral",
			a:    []float32{0, 0, 0},
			b:    []float32{1, 2, 3},
			want: 0.0,
		},
		{
			name: "empty vectors are neutral",
			a:    []float32{},
			b:    []float32{},
			want: 0.0,
		},
		{
			name: "scaled vectors are identical",
			a:    []float32{1, 2},
			b:    []float32{10, 20},
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float32{3, 4}), 1e-9)
	assert.Equal(t, 0.0, Norm(nil))
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, Norm(v), 1e-6)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)

	// Zero vector stays zero.
	z := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, z)
}

func TestWeightedAverage(t *testing.T) {
	t.Run("later vectors weighted more", func(t *testing.T) {
		vectors := [][]float32{{0, 0}, {3, 3}}
		weights := []float64{0.5, 1.0}

		got := WeightedAverage(vectors, weights, 2)
		assert.InDelta(t, 2.0, float64(got[0]), 1e-6)
		assert.InDelta(t, 2.0, float64(got[1]), 1e-6)
	})

	t.Run("empty input yields zero vector", func(t *testing.T) {
		got := WeightedAverage(nil, nil, 3)
		assert.Equal(t, []float32{0, 0, 0}, got)
	})

	t.Run("short vectors contribute partial components", func(t *testing.T) {
		got := WeightedAverage([][]float32{{2}}, []float64{1}, 2)
		assert.Equal(t, float32(2), got[0])
		assert.Equal(t, float32(0), got[1])
	})

	t.Run("non-positive weights are skipped", func(t *testing.T) {
		got := WeightedAverage([][]float32{{5, 5}, {1, 1}}, []float64{0, 1}, 2)
		assert.Equal(t, float32(1), got[0])
	})
}

func TestCosineSimilarityRange(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9}
	b := []float32{-0.1, 0.8, 0.4}
	sim := CosineSimilarity(a, b)
	assert.True(t, sim >= -1 && sim <= 1)
	assert.False(t, math.IsNaN(sim))
}
