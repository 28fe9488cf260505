package telegram

import (
	"strings"

	"contract-lens/api/internal/analysis"
)

// FormatReport renders an analysis as a plain-text chat message: each
// category with its items, then the free-text findings.
func FormatReport(res analysis.Result) string {
	rec := res.Record
	var b strings.Builder
	b.WriteString("📄 계약서 점검 결과\n")

	for _, c := range rec.Sections {
		if len(c.Items) == 0 {
			continue
		}
		b.WriteString("\n■ ")
		b.WriteString(c.Label)
		b.WriteString("\n")
		for _, it := range c.Items {
			if it.Status {
				b.WriteString("✅ ")
			} else {
				b.WriteString("❌ ")
			}
			b.WriteString(it.Title)
			if len(it.BoundingBox) > 0 {
				b.WriteString(" 📍")
			}
			b.WriteString("\n")
		}
	}

	writeFreeText(&b, "⚠️ 위험 요인", rec.RiskFactors)
	writeFreeText(&b, "📝 누락 요소", rec.MissingFactors)
	writeFreeText(&b, "📚 법률 용어", rec.LegalTerms)

	for _, w := range res.Warnings {
		if w.Kind == analysis.WarnGroundingMiss {
			b.WriteString("\n(📍 표시가 없는 항목 중 일부는 사진에서 위치를 찾지 못했습니다.)\n")
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeFreeText(b *strings.Builder, title string, v *string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return
	}
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(*v))
	b.WriteString("\n")
}
