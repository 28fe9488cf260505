package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (Page, error)
}

// Engines holds the configured OCR vendors. A nil field means the vendor is
// not configured.
type Engines struct {
	Clova   Engine
	Yandex  Engine
	DocAI   Engine
	Default string
}

var ErrUnknownEngine = errors.New("unknown ocr engine; use 'clova', 'yandex' or 'docai'")

func (e *Engines) GetEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = e.Default
	}
	var eng Engine
	switch name {
	case "clova", "naver":
		eng = e.Clova
	case "yandex":
		eng = e.Yandex
	case "docai", "documentai", "google":
		eng = e.DocAI
	default:
		return nil, ErrUnknownEngine
	}
	if eng == nil {
		return nil, fmt.Errorf("ocr engine %q is not configured", name)
	}
	return eng, nil
}
