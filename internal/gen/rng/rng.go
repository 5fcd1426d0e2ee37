// Package rng is the deterministic random source threaded through every
// generation stage.
//
// The generator is SplitMix64 (Steele, Lea and Flood, 2014): the state
// advances by the golden-ratio increment 0x9e3779b97f4a7c15 and each output is
// the state passed through the SplitMix64 finalizer. The period is 2^64. The
// algorithm uses only 64-bit integer arithmetic, so any reimplementation
// produces the same stream for the same seed.
package rng

import "worldforge.ai/internal/gen/mathx"

const golden = 0x9e3779b97f4a7c15

// Source is not safe for concurrent use. Stages that fan out across
// goroutines hash cell coordinates instead of sharing a Source.
type Source struct {
	state uint64
	draws uint64
}

func New(seed int64) *Source {
	return &Source{state: uint64(seed)}
}

// Uint64 returns the next raw 64-bit output.
func (s *Source) Uint64() uint64 {
	z := s.state
	s.state += golden
	s.draws++
	return mathx.Mix64(z)
}

// Float returns a value in [0,1) built from the top 53 bits of one draw.
func (s *Source) Float() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// IntRange returns a value in [min,max], both inclusive. It consumes exactly
// one draw even when min == max. The reduction is a plain modulo; the bias is
// below 2^-32 for spans that fit in 32 bits.
func (s *Source) IntRange(min, max int) int {
	if max < min {
		min, max = max, min
	}
	span := uint64(max-min) + 1
	v := s.Uint64()
	if span == 0 {
		return min + int(v)
	}
	return min + int(v%span)
}

// Bool returns true with probability p.
func (s *Source) Bool(p float64) bool {
	return s.Float() < p
}

// Draws reports how many outputs have been consumed.
func (s *Source) Draws() uint64 { return s.draws }

// State exposes the internal counter so callers can prove a call consumed
// nothing.
func (s *Source) State() uint64 { return s.state }
