package model

import "testing"

func TestGrid_CloneIsIndependent(t *testing.T) {
	g := NewGrid[float64](3, 2)
	g.Set(2, 1, 0.5)
	c := g.Clone()
	c.Set(2, 1, 0.9)
	if g.At(2, 1) != 0.5 {
		t.Fatalf("clone aliased the source grid")
	}
	if p := g.PointOf(g.Index(2, 1)); p != (Point{X: 2, Y: 1}) {
		t.Fatalf("PointOf/Index mismatch: %v", p)
	}
}

func TestGridFrom_RejectsBadShape(t *testing.T) {
	if _, err := GridFrom(2, 2, []int{1, 2, 3}); err == nil {
		t.Fatalf("expected shape error")
	}
	g, err := GridFrom(2, 1, []int{4, 5})
	if err != nil || g.At(1, 0) != 5 {
		t.Fatalf("GridFrom: %v", err)
	}
}

func TestSparse_RowMajorOrder(t *testing.T) {
	s := NewSparse[string]()
	s.Set(Point{X: 3, Y: 1}, "c")
	s.Set(Point{X: 0, Y: 2}, "d")
	s.Set(Point{X: 5, Y: 0}, "a")
	s.Set(Point{X: 1, Y: 1}, "b")
	var got string
	s.Each(func(_ Point, v string) { got += v })
	if got != "abcd" {
		t.Fatalf("iteration order: got %q", got)
	}
}

func TestDistanceField_Chebyshev(t *testing.T) {
	d := DistanceField(5, 5, []Point{{X: 0, Y: 0}, {X: 4, Y: 4}})
	if d.At(0, 0) != 0 || d.At(2, 1) != 2 || d.At(3, 3) != 1 || d.At(4, 0) != 4 {
		t.Fatalf("unexpected distances: %v", d.Values())
	}
	empty := DistanceField(2, 2, nil)
	if empty.At(1, 1) != Unreachable {
		t.Fatalf("expected unreachable without sources")
	}
}
