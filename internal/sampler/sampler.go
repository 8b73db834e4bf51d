package sampler

import (
	"math/rand"
)

// Sampler produces random values from a fixed seed. Two samplers created with
// the same seed return identical sequences.
type Sampler struct {
	seed int64
	rng  *rand.Rand
}

// New returns a Sampler seeded with seed.
func New(seed int64) *Sampler {
	return &Sampler{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the sampler started from.
func (s *Sampler) Seed() int64 {
	return s.seed
}

// Jitter returns a uniform value in [-r, +r].
func (s *Sampler) Jitter(r float64) float64 {
	if r <= 0 {
		return 0
	}
	return (s.rng.Float64()*2 - 1) * r
}

// Between returns a uniform value in [min, max].
func (s *Sampler) Between(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + s.rng.Float64()*(max-min)
}

// Chance reports true with probability p.
func (s *Sampler) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// Intn returns a value in [0, n). n <= 0 yields 0.
func (s *Sampler) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// Perm returns a permutation of [0, n).
func (s *Sampler) Perm(n int) []int {
	return s.rng.Perm(n)
}

// Fork returns an independent sampler whose seed is drawn from s.
func (s *Sampler) Fork() *Sampler {
	return New(s.rng.Int63())
}

// Derive mixes a base seed with a counter (splitmix64), so consecutive runs get
// unrelated but reproducible seeds.
func Derive(seed int64, n uint64) int64 {
	z := uint64(seed) + (n+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// Jitter is the pure form of Sampler.Jitter: the i-th draw of a sampler seeded
// with seed.
func Jitter(seed int64, i int, r float64) float64 {
	s := New(seed)
	var v float64
	for k := 0; k <= i; k++ {
		v = s.Jitter(r)
	}
	return v
}

// Pick returns a random element of items. items must not be empty.
func Pick[T any](s *Sampler, items []T) T {
	return items[s.Intn(len(items))]
}
