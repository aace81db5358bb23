// Package shuffle computes reproducible pseudo-random orderings used to
// paginate the photo stream.
package shuffle

import "math/rand/v2"

// streamSalt derives the second PCG word from the seed.
const streamSalt = 0x9e3779b97f4a7c15

// Permutation returns a uniformly random permutation of [0, n) fully
// determined by seed.
func Permutation(seed uint64, n int) []int {
	if n <= 0 {
		return []int{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^streamSalt))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}

// Page returns Permutation(seed, total)[start:start+size], clamped to total.
// It is empty when start is past the end or size is not positive.
func Page(seed uint64, total, start, size int) []int {
	if start < 0 || start >= total || size <= 0 {
		return []int{}
	}
	end := start + size
	if end > total {
		end = total
	}
	return Permutation(seed, total)[start:end]
}
