package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// StripCodeFences removes a markdown code fence around a model reply.
// "```json\n{...}\n```", "```\n{...}```" and fences with a leading sentence
// all yield the inner text. A reply that is already a JSON document is only
// trimmed, even when its strings contain backticks.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return s
	}
	start := fenceStart(s)
	if start < 0 {
		return s
	}
	body := s[start+3:]
	// drop the info string ("json", "JSON", ...) up to the end of the line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(strings.TrimPrefix(body, "json"), "JSON")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// fenceStart finds an opening fence: one at the start of the reply or at the
// start of a line.
func fenceStart(s string) int {
	if strings.HasPrefix(s, "```") {
		return 0
	}
	if i := strings.Index(s, "\n```"); i >= 0 {
		return i + 1
	}
	return -1
}

func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Truncate cuts s to at most n runes, appending "…" when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
