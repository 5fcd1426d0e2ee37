package model

import (
	"fmt"

	"worldforge.ai/internal/gen/mathx"
)

type Point = mathx.Point

// Grid is a dense row-major W×H layer. A stage builds a grid and hands it to
// later stages, which only read it; adjustments produce a new grid via Clone.
type Grid[T any] struct {
	W, H  int
	cells []T
}

func NewGrid[T any](w, h int) *Grid[T] {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Grid[T]{W: w, H: h, cells: make([]T, w*h)}
}

// GridFrom wraps a copy of vals; len(vals) must equal w*h.
func GridFrom[T any](w, h int, vals []T) (*Grid[T], error) {
	if w < 0 || h < 0 || len(vals) != w*h {
		return nil, fmt.Errorf("grid shape mismatch: %dx%d with %d cells", w, h, len(vals))
	}
	g := &Grid[T]{W: w, H: h, cells: make([]T, len(vals))}
	copy(g.cells, vals)
	return g, nil
}

func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

func (g *Grid[T]) Index(x, y int) int { return x + y*g.W }

func (g *Grid[T]) PointOf(i int) Point { return Point{X: i % g.W, Y: i / g.W} }

func (g *Grid[T]) At(x, y int) T { return g.cells[g.Index(x, y)] }

func (g *Grid[T]) AtPoint(p Point) T { return g.cells[g.Index(p.X, p.Y)] }

func (g *Grid[T]) Set(x, y int, v T) { g.cells[g.Index(x, y)] = v }

func (g *Grid[T]) Len() int { return len(g.cells) }

// Values returns a copy of the cells in row-major order.
func (g *Grid[T]) Values() []T {
	out := make([]T, len(g.cells))
	copy(out, g.cells)
	return out
}

func (g *Grid[T]) Clone() *Grid[T] {
	c := &Grid[T]{W: g.W, H: g.H, cells: make([]T, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// Row exposes the backing slice of row y. Writers must own the grid and touch
// only their own rows.
func (g *Grid[T]) Row(y int) []T {
	return g.cells[y*g.W : (y+1)*g.W]
}

// SameShape reports whether two grids cover the same dimensions.
func SameShape[A, B any](a *Grid[A], b *Grid[B]) bool {
	return a != nil && b != nil && a.W == b.W && a.H == b.H
}

// Offsets8 is the fixed neighbour scan order N, NE, E, SE, S, SW, W, NW.
var Offsets8 = [8]Point{
	{X: 0, Y: -1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 1, Y: 1},
	{X: 0, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: 0},
	{X: -1, Y: -1},
}

// Offsets4 is the boundary scan order right, down, left, up.
var Offsets4 = [4]Point{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

// OnEdge reports whether (x,y) lies on the outer ring of the grid.
func (g *Grid[T]) OnEdge(x, y int) bool {
	return x == 0 || y == 0 || x == g.W-1 || y == g.H-1
}
