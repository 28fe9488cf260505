package analysis

import (
	"fmt"

	"contract-lens/api/internal/layout"
)

// Highlight is a grounded item's box in display coordinates.
type Highlight struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Status   bool   `json:"status"`
	layout.Rect
}

// Highlights scales every grounded item of rec onto an image displayed at
// displayW x displayH. Ungrounded items are skipped.
func Highlights(rec Record, displayW, displayH float64) ([]Highlight, error) {
	if displayW <= 0 || displayH <= 0 {
		return nil, fmt.Errorf("%w: display size must be positive", ErrBadInput)
	}
	if rec.ImageWidth <= 0 || rec.ImageHeight <= 0 {
		return nil, fmt.Errorf("%w: analysis has no image size", ErrBadInput)
	}
	out := []Highlight{}
	for _, c := range rec.Sections {
		for _, it := range c.Items {
			r, ok := layout.ScaleBox(it.BoundingBox, float64(rec.ImageWidth), float64(rec.ImageHeight), displayW, displayH)
			if !ok {
				continue
			}
			out = append(out, Highlight{Category: c.Label, Title: it.Title, Status: it.Status, Rect: r})
		}
	}
	return out, nil
}
