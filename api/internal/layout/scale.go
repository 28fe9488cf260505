package layout

// Rect is an axis-aligned rectangle in display coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScaleBox maps a box in natural image pixels onto an image displayed at
// displayW x displayH. ok is false when the box is empty or a dimension is not
// positive.
func ScaleBox(box []Point, naturalW, naturalH, displayW, displayH float64) (Rect, bool) {
	if len(box) == 0 || naturalW <= 0 || naturalH <= 0 || displayW <= 0 || displayH <= 0 {
		return Rect{}, false
	}
	sx, sy := displayW/naturalW, displayH/naturalH
	bb := BoundingBox(box)
	return Rect{
		X:      bb[0].X * sx,
		Y:      bb[0].Y * sy,
		Width:  (bb[2].X - bb[0].X) * sx,
		Height: (bb[2].Y - bb[0].Y) * sy,
	}, true
}
