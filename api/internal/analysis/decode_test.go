package analysis

import (
	"errors"
	"testing"
)

func TestDecodeLLMOutput(t *testing.T) {
	raw := "```json\n" + `{
  "보증금 및 월세 조건": {
    "보증금 및 월세 명시 (금액 숫자 정확히 기입)": {"status": true, "content": "보증금 10,000,000원"},
    "월세 납부 방법 명시 (계좌이체/현금 납부 방식)": {"status": false, "content": null}
  },
  "기본 계약 정보": {
    "계약 기간 명시": {"status": true}
  },
  "기타 사항": {"x": {"status": true, "content": "y"}},
  "점수": 87,
  "위험요인": "특약 없음",
  "누락요소": null,
  "법률단어": ["대항력", "확정일자"]
}` + "\n```"

	out, warnings, err := DecodeLLMOutput(raw)
	if err != nil {
		t.Fatalf("DecodeLLMOutput: %v", err)
	}
	if len(out.Categories) != 2 || out.Categories[0].Label != "보증금 및 월세 조건" {
		t.Fatalf("Expected model order kept, got %+v", out.Categories)
	}
	items := out.Categories[0].Items
	if len(items) != 2 || items[0].Title != "보증금 및 월세 명시 (금액 숫자 정확히 기입)" || !items[0].Status ||
		items[0].Content == nil || *items[0].Content != "보증금 10,000,000원" {
		t.Errorf("unexpected first item %+v", items[0])
	}
	if items[1].Status || items[1].Content != nil {
		t.Errorf("unexpected second item %+v", items[1])
	}
	if it := out.Categories[1].Items[0]; it.Content != nil {
		t.Errorf("missing content must decode as null, got %q", *it.Content)
	}

	if out.RiskFactors == nil || *out.RiskFactors != "특약 없음" {
		t.Errorf("RiskFactors = %v", out.RiskFactors)
	}
	if out.MissingFactors != nil {
		t.Errorf("MissingFactors = %v", *out.MissingFactors)
	}
	if out.LegalTerms == nil || *out.LegalTerms != "대항력\n확정일자" {
		t.Errorf("LegalTerms = %v", out.LegalTerms)
	}

	want := []Warning{
		{Kind: WarnUnknownCategory, Category: "기타 사항", Detail: "dropped"},
		{Kind: WarnUnknownField, Detail: "점수"},
	}
	if len(warnings) != len(want) {
		t.Fatalf("Expected %d warnings, got %+v", len(want), warnings)
	}
	for i := range want {
		if warnings[i] != want[i] {
			t.Errorf("warning %d = %+v, want %+v", i, warnings[i], want[i])
		}
	}
}

func TestDecodeLLMOutput_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "분석 결과를 드릴 수 없습니다"},
		{"array", `[{"status": true}]`},
		{"truncated", `{"기본 계약 정보": {"계약 기간 명시": {"status": true}`},
		{"trailing", `{} {}`},
		{"category not object", `{"기본 계약 정보": "ok"}`},
		{"item not object", `{"기본 계약 정보": {"계약 기간 명시": true}}`},
		{"status missing", `{"기본 계약 정보": {"계약 기간 명시": {"content": "2년"}}}`},
		{"status not bool", `{"기본 계약 정보": {"계약 기간 명시": {"status": "yes"}}}`},
		{"status null", `{"기본 계약 정보": {"계약 기간 명시": {"status": null}}}`},
		{"content number", `{"기본 계약 정보": {"계약 기간 명시": {"status": true, "content": 24}}}`},
		{"free text object", `{"위험요인": {"a": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeLLMOutput(tt.raw)
			if !errors.Is(err, ErrMalformedOutput) {
				t.Errorf("Expected ErrMalformedOutput, got %v", err)
			}
		})
	}
}

func TestDecodeLLMOutput_EmptyObject(t *testing.T) {
	out, warnings, err := DecodeLLMOutput("{}")
	if err != nil || len(out.Categories) != 0 || len(warnings) != 0 {
		t.Errorf("got %+v %+v %v", out, warnings, err)
	}
	if out.RiskFactors != nil || out.MissingFactors != nil || out.LegalTerms != nil {
		t.Error("absent free-text fields must be null")
	}
}

func TestDecodeLLMOutput_EmptyContentKept(t *testing.T) {
	out, _, err := DecodeLLMOutput(`{"특약 사항 명시": {"특약 사항 기재 여부": {"status": false, "content": ""}}}`)
	if err != nil {
		t.Fatal(err)
	}
	c := out.Categories[0].Items[0].Content
	if c == nil || *c != "" {
		t.Errorf("Expected empty string content, got %v", c)
	}
}

func TestDecodeLLMOutput_BackticksInContent(t *testing.T) {
	out, _, err := DecodeLLMOutput(`{"특약 사항 명시": {"특약": {"status": true, "content": "코드 ` + "```" + ` 표기"}}}`)
	if err != nil {
		t.Fatalf("DecodeLLMOutput: %v", err)
	}
	c, ok := out.Category("특약 사항 명시")
	if !ok || len(c.Items) != 1 || c.Items[0].Content == nil || *c.Items[0].Content != "코드 ``` 표기" {
		t.Errorf("unexpected category %+v", c)
	}
}

func TestDecodeLLMOutput_NullCategory(t *testing.T) {
	out, warnings, err := DecodeLLMOutput(`{"전세 계약 시 추가 확인 사항": null, "기본 계약 정보": {"계약 기간 명시": {"status": true}}}`)
	if err != nil {
		t.Fatalf("Expected null category to be accepted, got %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %+v", warnings)
	}
	if c, ok := out.Category("전세 계약 시 추가 확인 사항"); ok && len(c.Items) != 0 {
		t.Errorf("Expected no items, got %+v", c.Items)
	}

	payload, _ := MapSections(out, nil)
	c, ok := payload.Sections.Get("전세 계약 시 추가 확인 사항")
	if !ok || c.Items == nil || len(c.Items) != 0 {
		t.Errorf("Expected an empty category in the payload, got %+v", c)
	}
}
