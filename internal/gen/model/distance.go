package model

// Unreachable marks cells with no source in DistanceField.
const Unreachable = -1

// DistanceField returns, for every cell, the Chebyshev distance to the
// nearest source cell (multi-source BFS over the 8-neighbourhood). Cells are
// Unreachable only when sources is empty.
func DistanceField(w, h int, sources []Point) *Grid[int] {
	d := NewGrid[int](w, h)
	for i := range d.cells {
		d.cells[i] = Unreachable
	}
	queue := make([]int, 0, len(sources))
	for _, p := range sources {
		if !d.InBounds(p.X, p.Y) {
			continue
		}
		i := d.Index(p.X, p.Y)
		if d.cells[i] == 0 {
			continue
		}
		d.cells[i] = 0
		queue = append(queue, i)
	}
	for head := 0; head < len(queue); head++ {
		i := queue[head]
		p := d.PointOf(i)
		next := d.cells[i] + 1
		for _, o := range Offsets8 {
			nx, ny := p.X+o.X, p.Y+o.Y
			if !d.InBounds(nx, ny) {
				continue
			}
			j := d.Index(nx, ny)
			if d.cells[j] != Unreachable {
				continue
			}
			d.cells[j] = next
			queue = append(queue, j)
		}
	}
	return d
}
