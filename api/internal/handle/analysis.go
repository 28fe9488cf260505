package handle

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"contract-lens/api/internal/analysis"
	"contract-lens/api/internal/util"
)

type AnalysisRequest struct {
	ImageB64 string `json:"image_b64"`
	ImageRef string `json:"image_ref"`
	OCRName  string `json:"ocr_name"`
	LLMName  string `json:"llm_name"`
	Template string `json:"template"`
}

func (h *Handle) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		http.Error(w, "X-User-ID header is required", http.StatusUnauthorized)
		return
	}
	var req AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	img, _, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		http.Error(w, "bad image_b64", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.svc.Analyze(ctx, analysis.AnalyzeRequest{
		UserID:   uid,
		Image:    img,
		ImageRef: req.ImageRef,
		OCR:      req.OCRName,
		LLM:      req.LLMName,
		Template: req.Template,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handle) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		http.Error(w, "X-User-ID header is required", http.StatusUnauthorized)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = v
	}
	recs, err := h.svc.List(r.Context(), uid, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": recs})
}

func (h *Handle) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := recordRef(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Highlights returns the grounded boxes scaled to the displayed image size.
func (h *Handle) Highlights(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := recordRef(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	dw, err1 := strconv.ParseFloat(q.Get("display_width"), 64)
	dh, err2 := strconv.ParseFloat(q.Get("display_height"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "display_width and display_height are required", http.StatusBadRequest)
		return
	}
	hs, err := h.svc.Highlights(r.Context(), uid, id, dw, dh)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"highlights": hs})
}

func recordRef(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	uid := userID(r)
	if uid == "" {
		http.Error(w, "X-User-ID header is required", http.StatusUnauthorized)
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad analysis id", http.StatusBadRequest)
		return "", uuid.Nil, false
	}
	return uid, id, true
}
