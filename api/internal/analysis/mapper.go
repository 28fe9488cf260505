package analysis

import (
	"contract-lens/api/internal/layout"
)

// MapSections builds the record payload: all categories in declared order,
// each item grounded on the paragraphs. A category the model omitted is
// present with no items. Located-nowhere contents are reported as warnings.
func MapSections(out LLMOutput, paragraphs []layout.Paragraph) (Payload, []Warning) {
	var warnings []Warning
	p := Payload{
		Sections:       make(Sections, 0, len(Labels)),
		RiskFactors:    copyString(out.RiskFactors),
		MissingFactors: copyString(out.MissingFactors),
		LegalTerms:     copyString(out.LegalTerms),
	}
	for _, label := range Labels {
		c := Category{Label: label, Items: []ChecklistItem{}}
		if src, ok := out.Category(label); ok {
			for _, it := range src.Items {
				item := ChecklistItem{
					Title:       it.Title,
					Status:      it.Status,
					Content:     copyString(it.Content),
					BoundingBox: layout.Ground(it.Content, paragraphs),
				}
				if item.Content != nil && *item.Content != "" && len(item.BoundingBox) == 0 {
					warnings = append(warnings, Warning{
						Kind:     WarnGroundingMiss,
						Category: label,
						Title:    it.Title,
						Detail:   *item.Content,
					})
				}
				c.Items = append(c.Items, item)
			}
		}
		p.Sections = append(p.Sections, c)
	}
	return p, warnings
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
