package enrollment

import (
	"errors"
	"time"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCorruptStore      = errors.New("corrupt enrollment store")
)

// Profile is the enrolled voice print of a speaker.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Embedding   []float32 `json:"embedding"`
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Profile) clone() Profile {
	p.Embedding = append([]float32(nil), p.Embedding...)
	return p
}

func cloneProfiles(profiles []Profile) []Profile {
	if profiles == nil {
		return nil
	}
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		out[i] = p.clone()
	}
	return out
}
