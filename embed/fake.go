package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// Fake is a deterministic embedding provider for tests and offline use.
// It hashes the input text with SHA-256 and uses the hash as a seed to
// generate reproducible, L2-normalized float32 vectors. The same text
// always embeds to the same vector regardless of purpose or mode, so a
// query matches its own document exactly.
type Fake struct {
	dim int
}

// DefaultFakeDimension is used when NewFake is given a non-positive size.
const DefaultFakeDimension = 8

// NewFake creates a Fake producing vectors of the given dimension.
func NewFake(dimension int) *Fake {
	if dimension <= 0 {
		dimension = DefaultFakeDimension
	}
	return &Fake{dim: dimension}
}

// EmbedQuery returns the deterministic vector for text.
func (f *Fake) EmbedQuery(_ context.Context, text string, _ Purpose) ([]float32, error) {
	return f.vector(text), nil
}

// Embed returns deterministic vectors for each input text.
func (f *Fake) Embed(_ context.Context, texts []string, _ Purpose, _ Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.vector(text)
	}
	return vectors, nil
}

func (f *Fake) vector(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	seed := int64(binary.LittleEndian.Uint64(hash[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, f.dim)
	var norm float64
	for i := range vec {
		v := rng.Float32()*2 - 1
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
