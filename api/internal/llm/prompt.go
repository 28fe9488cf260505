package llm

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const ANALYZE = "analyze"

//go:embed prompt/analyze.system.txt
var defaultSystemPrompt string

// LoadSystemPrompt returns <dir>/<provider>/analyze.system.txt when it exists
// and is non-empty, otherwise the built-in prompt. Aliases such as "openai"
// read the canonical provider's file.
func LoadSystemPrompt(dir, name string) (string, error) {
	provider, ok := CanonicalProvider(name)
	if !ok {
		return "", fmt.Errorf("invalid provider %q", name)
	}
	if dir != "" {
		p := filepath.Join(dir, provider, ANALYZE+".system.txt")
		if b, err := os.ReadFile(p); err == nil && len(strings.TrimSpace(string(b))) > 0 {
			return strings.TrimSpace(string(b)), nil
		}
	}
	return strings.TrimSpace(defaultSystemPrompt), nil
}

// UserPrompt lists the paragraphs one per line.
func UserPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("다음은 임대차 계약서를 OCR로 읽어 문단별로 나눈 텍스트입니다. 한 줄이 한 문단입니다.\n")
	b.WriteString("지정된 JSON 형식으로만 답하세요.\n\n")
	for _, p := range in.Paragraphs {
		b.WriteString(strings.ReplaceAll(p, "\n", " "))
		b.WriteByte('\n')
	}
	return b.String()
}
