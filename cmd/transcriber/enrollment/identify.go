package enrollment

import (
	"gonum.org/v1/gonum/floats"
)

const (
	Unknown          = "Unknown"
	ThresholdDefault = 0.75
)

type Match struct {
	Name       string
	Similarity float64
}

// Identify returns the profile most similar to candidate. The name is only
// reported when the similarity is strictly above threshold; on exact ties
// the earliest profile wins.
func Identify(profiles []Profile, candidate []float32, threshold float64) Match {
	m := Match{Name: Unknown}
	if len(profiles) == 0 {
		return m
	}

	best := -1
	bestSim := 0.0
	for i, p := range profiles {
		sim, ok := cosine(candidate, p.Embedding)
		if !ok {
			// Zero norm or mismatching vectors never match.
			continue
		}
		if best < 0 || sim > bestSim {
			best = i
			bestSim = sim
		}
	}

	if best < 0 {
		return m
	}

	m.Similarity = bestSim
	if bestSim > threshold {
		m.Name = profiles[best].Name
	}

	return m
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 if
// their lengths differ or either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	sim, _ := cosine(a, b)
	return sim
}

func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	x := toFloat64(a)
	y := toFloat64(b)

	normX := floats.Norm(x, 2)
	normY := floats.Norm(y, 2)
	if normX == 0 || normY == 0 {
		return 0, false
	}

	return floats.Dot(x, y) / (normX * normY), true
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
