package llm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubAnalyzer struct{ name string }

func (s stubAnalyzer) Name() string     { return s.name }
func (s stubAnalyzer) GetModel() string { return "stub" }
func (s stubAnalyzer) Analyze(context.Context, Input) (string, error) {
	return "{}", nil
}

func TestGetEngine(t *testing.T) {
	e := &Engines{OpenAI: stubAnalyzer{"gpt"}, Default: "gpt"}

	for _, name := range []string{"", "gpt", "OpenAI "} {
		a, err := e.GetEngine(name)
		if err != nil || a.Name() != "gpt" {
			t.Errorf("GetEngine(%q) = %v, %v", name, a, err)
		}
	}
	if _, err := e.GetEngine("gemini"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Expected not configured error, got %v", err)
	}
	if _, err := e.GetEngine("claude"); err != ErrUnknownEngine {
		t.Errorf("Expected ErrUnknownEngine, got %v", err)
	}
}

func TestLoadSystemPrompt(t *testing.T) {
	def, err := LoadSystemPrompt("", "gpt")
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{"기본 계약 정보", "반전세(준전세) 계약 시 추가 확인 사항", "특약 사항 명시", "위험요인", "누락요소", "법률단어"} {
		if !strings.Contains(def, label) {
			t.Errorf("default prompt lacks %q", label)
		}
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "gemini"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gemini", "analyze.system.txt"), []byte("  custom  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := LoadSystemPrompt(dir, "gemini"); got != "custom" {
		t.Errorf("Expected override, got %q", got)
	}
	if got, _ := LoadSystemPrompt(dir, "gpt"); got != def {
		t.Error("Expected fallback to the built-in prompt")
	}
	if _, err := LoadSystemPrompt(dir, "../etc"); err == nil {
		t.Error("Expected invalid provider error")
	}
	if _, err := LoadSystemPrompt(dir, "foo"); err == nil {
		t.Error("Expected unknown provider error")
	}
}

func TestCanonicalProvider(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"gpt", "gpt", true},
		{"OpenAI", "gpt", true},
		{" gemini ", "gemini", true},
		{"foo", "", false},
		{"../gpt", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalProvider(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalProvider(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestUserPrompt(t *testing.T) {
	got := UserPrompt(Input{Paragraphs: []string{"1. 계약", "임대인 홍길동"}})
	if !strings.HasSuffix(got, "1. 계약\n임대인 홍길동\n") {
		t.Errorf("unexpected prompt %q", got)
	}
}
