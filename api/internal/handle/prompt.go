package handle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"contract-lens/api/internal/llm"
)

type UpdatePromptRequest struct {
	Text string `json:"text"`
}

type UpdatePromptResponse struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Updated  string `json:"updated_at"`
}

func validatePrompt(req UpdatePromptRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if len(req.Text) > 2*1024*1024 {
		return fmt.Errorf("text too large (max 2 MiB)")
	}
	return nil
}

// UpdatePrompt replaces <PROMPT_DIR>/<provider>/analyze.system.txt using an
// atomic rename. The next analysis with that provider picks it up.
func (h *Handle) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	if h.promptDir == "" {
		http.Error(w, "PROMPT_DIR is not configured", http.StatusServiceUnavailable)
		return
	}
	defer r.Body.Close()

	provider, ok := llm.CanonicalProvider(r.PathValue("provider"))
	if !ok {
		http.Error(w, "unknown provider; use 'gpt' or 'gemini'", http.StatusBadRequest)
		return
	}
	var req UpdatePromptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validatePrompt(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	baseDir := filepath.Join(h.promptDir, provider)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		http.Error(w, "make dir: "+err.Error(), http.StatusInternalServerError)
		return
	}
	dstPath := filepath.Join(baseDir, llm.ANALYZE+".system.txt")

	tmp, err := os.CreateTemp(baseDir, llm.ANALYZE+".*.tmp")
	if err != nil {
		http.Error(w, "create temp: "+err.Error(), http.StatusInternalServerError)
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(req.Text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		http.Error(w, "write temp: "+err.Error(), http.StatusInternalServerError)
		return
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		http.Error(w, "close temp: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		http.Error(w, "rename: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.log.Info("prompt updated", zap.String("provider", provider), zap.Int("size", len(req.Text)))

	writeJSON(w, http.StatusOK, UpdatePromptResponse{
		OK:       true,
		Provider: provider,
		Path:     dstPath,
		Size:     len(req.Text),
		Updated:  time.Now().UTC().Format(time.RFC3339),
	})
}
