package outfitgen

import "math/rand/v2"

// RandomSource is the only source of nondeterminism in generation.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int   { return rand.IntN(n) }
func (globalRandom) Float64() float64 { return rand.Float64() }

// DefaultRandom is safe for concurrent use.
func DefaultRandom() RandomSource {
	return globalRandom{}
}

// NewSeededRandom returns a reproducible source, not safe for concurrent use.
func NewSeededRandom(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func shuffle[T any](r RandomSource, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func pick[T any](r RandomSource, items []T) T {
	return items[r.IntN(len(items))]
}
