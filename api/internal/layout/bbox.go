package layout

// BoundingBox returns the smallest axis-aligned rectangle covering pts as
// four corners: top-left, top-right, bottom-right, bottom-left.
// Empty input yields an empty (non-nil) slice, which callers treat as
// "no grounding available".
func BoundingBox(pts []Point) []Point {
	if len(pts) == 0 {
		return []Point{}
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return []Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}
