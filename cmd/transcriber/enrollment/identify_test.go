package enrollment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tcs := []struct {
		name string
		a, b []float32
		exp  float64
	}{
		{
			name: "identical",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			exp:  1,
		},
		{
			name: "scaled",
			a:    []float32{1, 2, 3},
			b:    []float32{2, 4, 6},
			exp:  1,
		},
		{
			name: "orthogonal",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			exp:  0,
		},
		{
			name: "opposite",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			exp:  -1,
		},
		{
			name: "zero norm",
			a:    []float32{0, 0},
			b:    []float32{1, 1},
			exp:  0,
		},
		{
			name: "length mismatch",
			a:    []float32{1, 0, 0},
			b:    []float32{1, 0},
			exp:  0,
		},
		{
			name: "empty",
			exp:  0,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.exp, CosineSimilarity(tc.a, tc.b), 1e-9)
		})
	}
}

func TestIdentify(t *testing.T) {
	profiles := []Profile{
		{Name: "Alex", Embedding: []float32{1, 0, 0}},
		{Name: "Blake", Embedding: []float32{0, 1, 0}},
		{Name: "Alex2", Embedding: []float32{1, 0, 0}},
	}

	t.Run("empty store", func(t *testing.T) {
		for _, threshold := range []float64{-1, 0, 0.75, 1} {
			require.Equal(t, Unknown, Identify(nil, []float32{1, 0, 0}, threshold).Name)
			require.Equal(t, Unknown, Identify(nil, []float32{0, 0, 0}, threshold).Name)
		}
	})

	t.Run("match", func(t *testing.T) {
		m := Identify(profiles, []float32{0.1, 1, 0}, ThresholdDefault)
		require.Equal(t, "Blake", m.Name)
		require.Greater(t, m.Similarity, ThresholdDefault)
	})

	t.Run("below threshold", func(t *testing.T) {
		m := Identify(profiles, []float32{1, 1, 1}, ThresholdDefault)
		require.Equal(t, Unknown, m.Name)
		require.Less(t, m.Similarity, ThresholdDefault)
	})

	t.Run("strictly greater", func(t *testing.T) {
		m := Identify(profiles, []float32{0, 1, 0}, 1)
		require.Equal(t, Unknown, m.Name)
		require.InDelta(t, 1, m.Similarity, 1e-9)
	})

	t.Run("first wins ties", func(t *testing.T) {
		require.Equal(t, "Alex", Identify(profiles, []float32{2, 0, 0}, ThresholdDefault).Name)
	})

	t.Run("zero candidate", func(t *testing.T) {
		require.Equal(t, Unknown, Identify(profiles, []float32{0, 0, 0}, -0.5).Name)
	})

	t.Run("threshold monotonicity", func(t *testing.T) {
		candidate := []float32{0.6, 0.8, 0}
		sim := CosineSimilarity(candidate, profiles[1].Embedding)

		matched := false
		for _, threshold := range []float64{0.95, 0.9, 0.85, 0.8, 0.79, 0.7, 0.5} {
			name := Identify(profiles, candidate, threshold).Name
			if matched {
				require.Equal(t, "Blake", name)
			}
			if name == "Blake" {
				matched = true
				require.Less(t, threshold, sim)
			}
		}
		require.True(t, matched)
	})
}
