package model

import "sort"

// Sparse is a per-cell overlay whose memory is proportional to occupancy.
// Iteration is always row-major so results never depend on map order.
type Sparse[T any] struct {
	m map[Point]T
}

func NewSparse[T any]() *Sparse[T] {
	return &Sparse[T]{m: make(map[Point]T)}
}

func (s *Sparse[T]) Set(p Point, v T) {
	if s.m == nil {
		s.m = make(map[Point]T)
	}
	s.m[p] = v
}

func (s *Sparse[T]) Get(p Point) (T, bool) {
	v, ok := s.m[p]
	return v, ok
}

func (s *Sparse[T]) Has(p Point) bool {
	_, ok := s.m[p]
	return ok
}

func (s *Sparse[T]) Len() int { return len(s.m) }

// Points returns the occupied cells sorted by row, then column.
func (s *Sparse[T]) Points() []Point {
	out := make([]Point, 0, len(s.m))
	for p := range s.m {
		out = append(out, p)
	}
	SortRowMajor(out)
	return out
}

// Each visits occupied cells in row-major order.
func (s *Sparse[T]) Each(fn func(p Point, v T)) {
	for _, p := range s.Points() {
		fn(p, s.m[p])
	}
}

func SortRowMajor(pts []Point) {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Y != pts[j].Y {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})
}
