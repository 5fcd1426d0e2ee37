// Package noise implements the continuous 2D field every terrain layer samples.
package noise

import (
	"math"

	"worldforge.ai/internal/gen/rng"
)

// Field is 2D Perlin gradient noise over a permutation table shuffled by a
// random source.
type Field struct {
	perm   [512]int
	ox, oy float64
}

// New consumes 257 draws from src: 255 for the Fisher–Yates shuffle of 0..255
// and two for the lattice offsets. The offsets move the origin off a lattice
// point, so Noise2D(0,0) depends on the draws instead of always being zero.
func New(src *rng.Source) *Field {
	f := &Field{}
	var base [256]int
	for i := range base {
		base[i] = i
	}
	for i := 255; i > 0; i-- {
		j := src.IntRange(0, i)
		base[i], base[j] = base[j], base[i]
	}
	for i := 0; i < 256; i++ {
		f.perm[i] = base[i]
		f.perm[i+256] = base[i]
	}
	f.ox = src.Float() * 256
	f.oy = src.Float() * 256
	return f
}

// fade is 6t^5-15t^4+10t^3. Every product is rounded before the following
// add so no platform can fuse them.
func fade(t float64) float64 {
	a := float64(t*6) - 15
	b := float64(t*a) + 10
	return float64(t*t*t) * b
}

func lerp(t, a, b float64) float64 {
	return a + float64(t*(b-a))
}

func grad(hash int, x, y float64) float64 {
	switch hash & 3 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	default:
		return -x - y
	}
}

// Noise2D returns a value in [-1,1]. The field is continuous in both axes.
func (f *Field) Noise2D(x, y float64) float64 {
	x += f.ox
	y += f.oy
	fx := math.Floor(x)
	fy := math.Floor(y)
	xi := int(fx) & 255
	yi := int(fy) & 255
	xf := x - fx
	yf := y - fy

	u := fade(xf)
	v := fade(yf)

	aa := f.perm[f.perm[xi]+yi]
	ab := f.perm[f.perm[xi]+yi+1]
	ba := f.perm[f.perm[xi+1]+yi]
	bb := f.perm[f.perm[xi+1]+yi+1]

	x1 := lerp(u, grad(aa, xf, yf), grad(ba, xf-1, yf))
	x2 := lerp(u, grad(ab, xf, yf-1), grad(bb, xf-1, yf-1))
	n := lerp(v, x1, x2)
	if n > 1 {
		return 1
	}
	if n < -1 {
		return -1
	}
	return n
}

// FBM sums octaves of Noise2D and divides by the total amplitude, so the
// result stays in [-1,1].
func (f *Field) FBM(x, y float64, octaves int, persistence, lacunarity float64) float64 {
	var total, norm float64
	freq, amp := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		total += float64(f.Noise2D(float64(x*freq), float64(y*freq)) * amp)
		norm += amp
		amp = float64(amp * persistence)
		freq = float64(freq * lacunarity)
	}
	if norm == 0 {
		return 0
	}
	return total / norm
}
