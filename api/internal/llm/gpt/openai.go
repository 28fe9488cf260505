package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"contract-lens/api/internal/llm"
	"contract-lens/api/internal/util"
)

const defaultURL = "https://api.openai.com/v1/chat/completions"

type Engine struct {
	APIKey    string
	Model     string
	URL       string
	PromptDir string
	httpc     *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// long contracts take a while before the first byte
		ResponseHeaderTimeout: 120 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		URL:    defaultURL,
		httpc:  &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

func (e *Engine) Analyze(ctx context.Context, in llm.Input) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is empty")
	}
	system, err := llm.LoadSystemPrompt(e.PromptDir, e.Name())
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"model": e.Model,
		"messages": []message{
			{Role: "system", Content: system},
			{Role: "user", Content: llm.UserPrompt(in)},
		},
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	out, err := util.Retry(ctx, func() (chatResponse, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.APIKey)

		resp, err := e.httpc.Do(req)
		if err != nil {
			return chatResponse{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return chatResponse{}, util.StatusError("openai analyze", resp)
		}
		var cr chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return chatResponse{}, util.Permanent(fmt.Errorf("openai analyze: bad JSON: %w", err))
		}
		return cr, nil
	})
	if err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai analyze: no choices")
	}
	txt := strings.TrimSpace(out.Choices[0].Message.Content)
	if txt == "" {
		return "", fmt.Errorf("openai analyze: empty output (finish_reason=%s)", out.Choices[0].FinishReason)
	}
	return txt, nil
}
