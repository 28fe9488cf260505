package util

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", ` {"a":1} `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"upper fence", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"one line", "```json{\"a\":1}```", `{"a":1}`},
		{"leading prose", "결과입니다:\n```json\n{\"a\":1}\n```\n", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
		{"backticks in unfenced json", "{\"a\":\"코드 ``` 표기\"}", "{\"a\":\"코드 ``` 표기\"}"},
		{"backticks in fenced json", "```json\n{\"a\":\"x ``` y\"}\n```", "{\"a\":\"x ``` y\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("임대차계약", 3); got != "임대차…" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("짧음", 10); got != "짧음" {
		t.Errorf("got %q", got)
	}
}

func TestSniffFormatAndImageSize(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 31, 17))); err != nil {
		t.Fatal(err)
	}
	if f := SniffFormat(buf.Bytes()); f != "png" {
		t.Errorf("Expected png, got %q", f)
	}
	if w, h := ImageSize(buf.Bytes()); w != 31 || h != 17 {
		t.Errorf("Expected 31x17, got %dx%d", w, h)
	}
	if f := SniffFormat([]byte("%PDF-1.7")); f != "pdf" {
		t.Errorf("Expected pdf, got %q", f)
	}
	if w, h := ImageSize([]byte("%PDF-1.7")); w != 0 || h != 0 {
		t.Errorf("Expected 0x0 for pdf, got %dx%d", w, h)
	}
	if m := SniffMimeHTTP([]byte{0xFF, 0xD8, 0xFF}); m != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %q", m)
	}
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	b, mime, err := DecodeBase64MaybeDataURL("data:image/png;base64," + payload)
	if err != nil || string(b) != "hello" || mime != "image/png" {
		t.Errorf("got %q %q %v", b, mime, err)
	}
	b, mime, err = DecodeBase64MaybeDataURL(payload)
	if err != nil || string(b) != "hello" || mime != "" {
		t.Errorf("got %q %q %v", b, mime, err)
	}
	if _, _, err := DecodeBase64MaybeDataURL("%%%"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestRetry(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), func() (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	if err == nil || calls != RetryAttempts {
		t.Errorf("Expected %d attempts and an error, got %d, %v", RetryAttempts, calls, err)
	}

	calls = 0
	sentinel := errors.New("bad request")
	_, err = Retry(context.Background(), func() (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) || calls != 1 {
		t.Errorf("Expected a single attempt returning the permanent error, got %d, %v", calls, err)
	}

	calls = 0
	v, err := Retry(context.Background(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("once")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("Expected ok after retry, got %q, %v", v, err)
	}
}

func TestStatusError(t *testing.T) {
	mk := func(code int) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader("boom"))}
	}
	calls := 0
	_, err := Retry(context.Background(), func() (int, error) {
		calls++
		return 0, StatusError("vendor", mk(http.StatusBadRequest))
	})
	if calls != 1 || err == nil || !strings.Contains(err.Error(), "vendor 400: boom") {
		t.Errorf("Expected permanent 400, got %d calls, %v", calls, err)
	}

	calls = 0
	_, _ = Retry(context.Background(), func() (int, error) {
		calls++
		return 0, StatusError("vendor", mk(http.StatusBadGateway))
	})
	if calls != RetryAttempts {
		t.Errorf("Expected 5xx to be retried, got %d calls", calls)
	}
}
