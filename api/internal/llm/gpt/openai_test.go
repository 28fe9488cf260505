package gpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contract-lens/api/internal/llm"
)

func TestAnalyze(t *testing.T) {
	var body struct {
		Model          string            `json:"model"`
		Messages       []message         `json:"messages"`
		ResponseFormat map[string]string `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + "```json\\n{}\\n```" + `"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	tr := &countingTransport{rt: srv.Client().Transport}
	e := New("sk-test", "gpt-4o-mini").WithHTTPClient(&http.Client{Transport: tr})
	e.URL = srv.URL
	got, err := e.Analyze(context.Background(), llm.Input{Paragraphs: []string{"임대인 홍길동"}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got != "```json\n{}\n```" {
		t.Errorf("Expected raw reply, got %q", got)
	}
	if body.Model != "gpt-4o-mini" || body.ResponseFormat["type"] != "json_object" {
		t.Errorf("unexpected request %+v", body)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || !strings.Contains(body.Messages[1].Content, "임대인 홍길동") {
		t.Errorf("unexpected messages %+v", body.Messages)
	}
	if tr.n != 1 {
		t.Errorf("Expected the injected client to carry 1 request, got %d", tr.n)
	}
}

type countingTransport struct {
	n  int
	rt http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n++
	return c.rt.RoundTrip(r)
}

func TestWithHTTPClientIgnoresNil(t *testing.T) {
	e := New("k", "m")
	before := e.httpc
	if e.WithHTTPClient(nil).httpc != before {
		t.Error("nil client must keep the default")
	}
}

func TestAnalyze_Errors(t *testing.T) {
	if _, err := New("", "m").Analyze(context.Background(), llm.Input{}); err == nil {
		t.Error("Expected missing key error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  "},"finish_reason":"length"}]}`))
	}))
	defer srv.Close()
	e := New("k", "m")
	e.URL = srv.URL
	if _, err := e.Analyze(context.Background(), llm.Input{}); err == nil || !strings.Contains(err.Error(), "length") {
		t.Errorf("Expected empty output error, got %v", err)
	}
}
