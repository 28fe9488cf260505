package ocr

import (
	"errors"
	"testing"

	"contract-lens/api/internal/layout"
)

func quad() []layout.Point {
	return []layout.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}}
}

func TestValidate(t *testing.T) {
	if err := Validate(Page{}); !errors.Is(err, ErrEmptyPage) {
		t.Errorf("Expected ErrEmptyPage, got %v", err)
	}
	ok := Page{Tokens: []layout.Token{{Text: "임대인", Polygon: quad()}}}
	if err := Validate(ok); err != nil {
		t.Errorf("Expected valid page, got %v", err)
	}
	bad := Page{Tokens: []layout.Token{{Text: "임대인", Polygon: quad()}, {Text: "x", Polygon: quad()[:3]}}}
	if err := Validate(bad); err == nil {
		t.Error("Expected error for a 3-vertex polygon")
	}
}

func TestGetEngine(t *testing.T) {
	e := &Engines{Default: "clova"}
	if _, err := e.GetEngine(""); err == nil {
		t.Error("Expected unconfigured default to fail")
	}
	if _, err := e.GetEngine("tesseract"); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("Expected ErrUnknownEngine, got %v", err)
	}
}
