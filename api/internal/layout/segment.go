package layout

import (
	"sort"
	"strings"
)

// Segment groups one page of tokens into paragraphs.
//
// Tokens are ordered top to bottom by the y of their first vertex; the sort is
// stable, so tokens on the same y keep the vendor order. A boundary token (see
// Rules.IsBoundary) closes the running paragraph and starts a new one seeded
// with itself; every other token is appended to the running paragraph.
// The input slice is not modified.
func Segment(tokens []Token, rules Rules) []Paragraph {
	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].top() < sorted[j].top()
	})

	var (
		out []Paragraph
		acc paragraphBuilder
	)
	for _, t := range sorted {
		if rules.IsBoundary(t.Text) {
			if !acc.empty() {
				out = append(out, acc.build())
			}
			acc = paragraphBuilder{}
		}
		acc.add(t)
	}
	if !acc.empty() {
		out = append(out, acc.build())
	}
	return out
}

type paragraphBuilder struct {
	text   strings.Builder
	points []Point
	tokens []Token
}

func (b *paragraphBuilder) empty() bool { return len(b.tokens) == 0 }

func (b *paragraphBuilder) add(t Token) {
	if len(b.tokens) > 0 {
		b.text.WriteByte(' ')
	}
	b.text.WriteString(t.Text)
	b.points = append(b.points, t.Polygon...)
	b.tokens = append(b.tokens, t)
}

func (b *paragraphBuilder) build() Paragraph {
	return Paragraph{
		Text:        b.text.String(),
		BoundingBox: BoundingBox(b.points),
		Tokens:      b.tokens,
	}
}

// Texts returns the paragraph texts in order.
func Texts(ps []Paragraph) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}
