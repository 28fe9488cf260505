package ocr

import (
	"errors"
	"fmt"

	"contract-lens/api/internal/layout"
)

// Page is the token list for one recognized page plus its pixel size.
// Width/Height are 0 when the vendor does not report them.
type Page struct {
	Tokens []layout.Token `json:"tokens"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
}

var ErrEmptyPage = errors.New("ocr: no text recognized")

// Validate rejects a page that cannot be segmented: no tokens, or a token
// whose polygon is not a quadrilateral.
func Validate(p Page) error {
	if len(p.Tokens) == 0 {
		return ErrEmptyPage
	}
	for i, t := range p.Tokens {
		if len(t.Polygon) != 4 {
			return fmt.Errorf("ocr: token %d (%q) has %d vertices, want 4", i, t.Text, len(t.Polygon))
		}
	}
	return nil
}
