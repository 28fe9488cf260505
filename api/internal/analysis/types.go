package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contract-lens/api/internal/layout"
)

// Labels is the closed category taxonomy, in declared order.
var Labels = []string{
	"기본 계약 정보",
	"보증금 및 월세 조건",
	"관리비 및 공과금 부담 명확화",
	"시설 및 수리 책임 조항",
	"전세 계약 시 추가 확인 사항",
	"반전세(준전세) 계약 시 추가 확인 사항",
	"계약 해지 및 갱신 조건 명시",
	"특약 사항 명시",
}

// Top-level keys of the free-text fields in model output.
const (
	KeyRiskFactors    = "위험요인"
	KeyMissingFactors = "누락요소"
	KeyLegalTerms     = "법률단어"
)

var (
	ErrVendorUnavailable = errors.New("vendor unavailable")
	ErrMalformedOutput   = errors.New("malformed llm output")
	ErrNotFound          = errors.New("analysis not found")
	ErrBadInput          = errors.New("bad input")
)

func isLabel(s string) bool {
	for _, l := range Labels {
		if l == s {
			return true
		}
	}
	return false
}

// ChecklistItem is one answered question. BoundingBox is empty when content
// is null or could not be located on the page.
type ChecklistItem struct {
	Title       string         `json:"-"`
	Status      bool           `json:"status"`
	Content     *string        `json:"content"`
	BoundingBox []layout.Point `json:"boundingBox"`
}

type Category struct {
	Label string
	Items []ChecklistItem
}

// Item returns the item with the given title.
func (c Category) Item(title string) (ChecklistItem, bool) {
	for _, it := range c.Items {
		if it.Title == title {
			return it, true
		}
	}
	return ChecklistItem{}, false
}

// Sections is the ordered category list. It encodes as a JSON object keyed by
// label, items keyed by title, both in slice order.
type Sections []Category

// Get returns the category with the given label.
func (s Sections) Get(label string) (Category, bool) {
	for _, c := range s {
		if c.Label == label {
			return c, true
		}
	}
	return Category{}, false
}

func (s Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Label); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, it := range c.Items {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, it.Title); err != nil {
				return nil, err
			}
			if it.BoundingBox == nil {
				it.BoundingBox = []layout.Point{}
			}
			b, err := json.Marshal(it)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, k string) error {
	b, err := json.Marshal(k)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func (s *Sections) UnmarshalJSON(data []byte) error {
	var out Sections
	err := walkObject(data, func(label string, raw json.RawMessage) error {
		c := Category{Label: label, Items: []ChecklistItem{}}
		err := walkObject(raw, func(title string, raw json.RawMessage) error {
			var it ChecklistItem
			if err := json.Unmarshal(raw, &it); err != nil {
				return fmt.Errorf("item %q: %w", title, err)
			}
			it.Title = title
			if it.BoundingBox == nil {
				it.BoundingBox = []layout.Point{}
			}
			c.Items = append(c.Items, it)
			return nil
		})
		if err != nil {
			return fmt.Errorf("category %q: %w", label, err)
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// Payload is the structured content of a record: the stored JSON document.
type Payload struct {
	Sections       Sections `json:"sections"`
	RiskFactors    *string  `json:"riskFactors"`
	MissingFactors *string  `json:"missingFactors"`
	LegalTerms     *string  `json:"legalTerms"`
}

type WarningKind string

const (
	WarnUnknownCategory WarningKind = "unknown_category"
	WarnUnknownField    WarningKind = "unknown_field"
	WarnGroundingMiss   WarningKind = "grounding_miss"
)

// Warning reports something the pipeline dropped or could not locate.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Category string      `json:"category,omitempty"`
	Title    string      `json:"title,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

// Record is one stored analysis. It is written once and never updated.
type Record struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"userId"`
	Image       string    `json:"image"`
	ImageWidth  int       `json:"imageWidth"`
	ImageHeight int       `json:"imageHeight"`
	Payload
	Warnings  []Warning `json:"warnings"`
	OCREngine string    `json:"ocrEngine"`
	LLMEngine string    `json:"llmEngine"`
	LLMModel  string    `json:"llmModel,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
