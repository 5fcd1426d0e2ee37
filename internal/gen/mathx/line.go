package mathx

// Point is an integer grid coordinate.
type Point struct {
	X int
	Y int
}

// Line rasterizes the segment (x0,y0)-(x1,y1) with Bresenham's algorithm.
// Both endpoints are included and points are ordered from the first endpoint
// to the second. A degenerate segment yields a single point.
func Line(x0, y0, x1, y1 int) []Point {
	dx := AbsInt(x1 - x0)
	dy := -AbsInt(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}

	out := make([]Point, 0, MaxInt(dx, -dy)+1)
	err := dx + dy
	x, y := x0, y0
	for {
		out = append(out, Point{X: x, Y: y})
		if x == x1 && y == y1 {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}
