package enrollment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// Store holds the enrolled speaker profiles in insertion order. Every
// mutation is persisted through the backend before returning; if that fails
// the in-memory state is rolled back.
type Store struct {
	backend Backend

	mut      sync.RWMutex
	cfgDim   int
	dim      int
	profiles []Profile
}

// Open loads the profiles from backend. A dim greater than zero pins the
// expected embedding dimension; otherwise it's inferred from the stored
// profiles or from the first enrollment.
func Open(ctx context.Context, backend Backend, dim int) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend should not be nil")
	}
	if dim < 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}

	profiles, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	s := &Store{
		backend: backend,
		cfgDim:  dim,
		dim:     dim,
	}

	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile with empty name", ErrCorruptStore)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrCorruptStore, p.Name)
		}
		seen[p.Name] = true

		if len(p.Embedding) == 0 {
			return nil, fmt.Errorf("%w: profile %q has no embedding", ErrCorruptStore, p.Name)
		}
		if s.dim == 0 {
			s.dim = len(p.Embedding)
		} else if len(p.Embedding) != s.dim {
			return nil, fmt.Errorf("%w: profile %q has dimension %d, expected %d",
				ErrDimensionMismatch, p.Name, len(p.Embedding), s.dim)
		}
	}
	s.profiles = profiles

	slog.Debug("enrollment store loaded", slog.Int("profiles", len(profiles)), slog.Int("dim", s.dim))

	return s, nil
}

// Add stores the element-wise mean of embeddings as the profile for name,
// replacing any previous one. It returns false if there's nothing to enroll.
func (s *Store) Add(ctx context.Context, name string, embeddings [][]float32) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("name should not be empty")
	}
	if len(embeddings) == 0 {
		return false, nil
	}

	n := len(embeddings[0])
	if n == 0 {
		return false, fmt.Errorf("embeddings should not be empty")
	}
	for _, e := range embeddings[1:] {
		if len(e) != n {
			return false, fmt.Errorf("%w: got embeddings of dimension %d and %d", ErrDimensionMismatch, n, len(e))
		}
	}

	mean := MeanEmbedding(embeddings)

	s.mut.Lock()
	defer s.mut.Unlock()

	if s.dim != 0 && n != s.dim {
		return false, fmt.Errorf("%w: got %d, store has %d", ErrDimensionMismatch, n, s.dim)
	}

	prevProfiles := cloneProfiles(s.profiles)
	prevDim := s.dim

	now := time.Now().UTC()
	if idx := s.indexOf(name); idx >= 0 {
		s.profiles[idx].Embedding = mean
		s.profiles[idx].SampleCount = len(embeddings)
		s.profiles[idx].UpdatedAt = now
	} else {
		s.profiles = append(s.profiles, Profile{
			ID:          uuid.NewString(),
			Name:        name,
			Embedding:   mean,
			SampleCount: len(embeddings),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	s.dim = n

	if err := s.backend.Save(ctx, s.profiles); err != nil {
		s.profiles = prevProfiles
		s.dim = prevDim
		return false, fmt.Errorf("failed to save profiles: %w", err)
	}

	slog.Info("speaker enrolled", slog.String("name", name), slog.Int("samples", len(embeddings)))

	return true, nil
}

// Remove deletes the profile for name. It returns false if name isn't enrolled.
func (s *Store) Remove(ctx context.Context, name string) (bool, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return false, nil
	}

	prevProfiles := s.profiles
	prevDim := s.dim

	profiles := make([]Profile, 0, len(s.profiles)-1)
	profiles = append(profiles, s.profiles[:idx]...)
	profiles = append(profiles, s.profiles[idx+1:]...)
	s.profiles = profiles
	if len(s.profiles) == 0 {
		s.dim = s.cfgDim
	}

	if err := s.backend.Save(ctx, s.profiles); err != nil {
		s.profiles = prevProfiles
		s.dim = prevDim
		return false, fmt.Errorf("failed to save profiles: %w", err)
	}

	slog.Info("speaker removed", slog.String("name", name))

	return true, nil
}

// List returns the enrolled names in insertion order.
func (s *Store) List() []string {
	s.mut.RLock()
	defer s.mut.RUnlock()

	names := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		names[i] = p.Name
	}
	return names
}

// Profiles returns a copy of the enrolled profiles in insertion order.
func (s *Store) Profiles() []Profile {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return cloneProfiles(s.profiles)
}

func (s *Store) Get(name string) (Profile, bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if idx := s.indexOf(name); idx >= 0 {
		return s.profiles[idx].clone(), true
	}
	return Profile{}, false
}

func (s *Store) Dim() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return s.dim
}

func (s *Store) Len() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.profiles)
}

// Identify returns the name of the best matching profile, or Unknown.
func (s *Store) Identify(candidate []float32, threshold float64) string {
	return s.Match(candidate, threshold).Name
}

// Match scores candidate against every profile under a consistent snapshot.
func (s *Store) Match(candidate []float32, threshold float64) Match {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return Identify(s.profiles, candidate, threshold)
}

func (s *Store) indexOf(name string) int {
	for i, p := range s.profiles {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// MeanEmbedding returns the element-wise mean of equally sized, non-empty embeddings.
func MeanEmbedding(embeddings [][]float32) []float32 {
	sum := make([]float64, len(embeddings[0]))
	row := make([]float64, len(sum))
	for _, e := range embeddings {
		for i, v := range e {
			row[i] = float64(v)
		}
		floats.Add(sum, row)
	}
	floats.Scale(1/float64(len(embeddings)), sum)

	mean := make([]float32, len(sum))
	for i, v := range sum {
		mean[i] = float32(v)
	}
	return mean
}
