package layout

import "strings"

// Ground returns the bounding box of the first paragraph whose text contains
// content as an exact, case-sensitive substring. A nil or empty content, or no
// match, yields an empty box.
func Ground(content *string, paragraphs []Paragraph) []Point {
	if content == nil || *content == "" {
		return []Point{}
	}
	for _, p := range paragraphs {
		if strings.Contains(p.Text, *content) {
			return clonePoints(p.BoundingBox)
		}
	}
	return []Point{}
}

func clonePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
