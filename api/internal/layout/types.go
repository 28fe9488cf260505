package layout

// Point is a pixel-space coordinate on the source image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Token is one OCR-recognized fragment. Polygon is the vendor quadrilateral
// (4 vertices, vendor order).
type Token struct {
	Text    string  `json:"text"`
	Polygon []Point `json:"polygon"`
}

// top is the y of the first polygon vertex; tokens without a polygon sort first.
func (t Token) top() float64 {
	if len(t.Polygon) == 0 {
		return 0
	}
	return t.Polygon[0].Y
}

// Paragraph is a merged run of tokens. Tokens is kept in memory only.
type Paragraph struct {
	Text        string  `json:"text"`
	BoundingBox []Point `json:"boundingBox"`
	Tokens      []Token `json:"-"`
}
