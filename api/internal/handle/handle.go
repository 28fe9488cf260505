package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contract-lens/api/internal/analysis"
	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/ocr"
)

// Service is the analysis pipeline as the HTTP layer uses it.
type Service interface {
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) (analysis.Result, error)
	Recognize(ctx context.Context, image []byte, ocrName, template string) (ocr.Page, []layout.Paragraph, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (analysis.Record, error)
	List(ctx context.Context, userID string, limit int) ([]analysis.Record, error)
	Highlights(ctx context.Context, userID string, id uuid.UUID, displayW, displayH float64) ([]analysis.Highlight, error)
}

type Handle struct {
	svc       Service
	log       *zap.Logger
	timeout   time.Duration
	promptDir string
	ping      func(ctx context.Context) error
}

type Options struct {
	Log       *zap.Logger
	Timeout   time.Duration
	PromptDir string
	Ping      func(ctx context.Context) error
}

func New(svc Service, opt Options) *Handle {
	h := &Handle{
		svc:       svc,
		log:       opt.Log,
		timeout:   opt.Timeout,
		promptDir: opt.PromptDir,
		ping:      opt.Ping,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.timeout <= 0 {
		h.timeout = 180 * time.Second
	}
	return h
}

// Register mounts the API on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("POST /v1/ocr", h.Recognize)
	mux.HandleFunc("POST /v1/analysis", h.CreateAnalysis)
	mux.HandleFunc("GET /v1/analysis", h.ListAnalyses)
	mux.HandleFunc("GET /v1/analysis/{id}", h.GetAnalysis)
	mux.HandleFunc("GET /v1/analysis/{id}/highlights", h.Highlights)
	mux.HandleFunc("PUT /v1/prompts/{provider}", h.UpdatePrompt)
}

const maxBodyBytes = 25 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// requestContext applies the X-Request-Timeout header (seconds), or the
// configured default.
func (h *Handle) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := h.timeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), deadline)
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// fail maps pipeline errors to a status code. Vendor details go to the log,
// not to the client.
func (h *Handle) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, analysis.ErrBadInput):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, analysis.ErrNotFound):
		code, msg = http.StatusNotFound, "analysis not found"
	case errors.Is(err, analysis.ErrVendorUnavailable):
		code, msg = http.StatusBadGateway, "upstream service unavailable"
	case errors.Is(err, analysis.ErrMalformedOutput):
		code, msg = http.StatusBadGateway, "analysis failed: unreadable model output"
	case errors.Is(err, context.DeadlineExceeded):
		code, msg = http.StatusGatewayTimeout, "request timed out"
	}
	if code >= 500 {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	http.Error(w, msg, code)
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.Warn("healthz: db ping failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
