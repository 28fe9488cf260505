package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Input is what an analyzer sees of a contract: its paragraphs in reading order.
type Input struct {
	Paragraphs []string
}

// Analyzer asks a model for the checklist review of a contract and returns
// the raw reply text. Decoding is left to the caller.
type Analyzer interface {
	Name() string
	GetModel() string
	Analyze(ctx context.Context, in Input) (string, error)
}

type Engines struct {
	OpenAI  Analyzer
	Gemini  Analyzer
	Default string
}

var ErrUnknownEngine = errors.New("unknown llm_name; use 'gpt' or 'gemini'")

// CanonicalProvider maps an analyzer name or alias to the name the analyzer
// reports from Name(), which is also its prompt override directory.
func CanonicalProvider(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gpt", "openai":
		return "gpt", true
	case "gemini":
		return "gemini", true
	}
	return "", false
}

func (e *Engines) GetEngine(llmName string) (Analyzer, error) {
	llmName = strings.ToLower(strings.TrimSpace(llmName))
	if llmName == "" {
		llmName = e.Default
	}
	var a Analyzer
	switch llmName {
	case "gpt", "openai":
		a = e.OpenAI
	case "gemini":
		a = e.Gemini
	default:
		return nil, ErrUnknownEngine
	}
	if a == nil {
		return nil, fmt.Errorf("llm engine %q is not configured", llmName)
	}
	return a, nil
}
