package handle

import (
	"encoding/json"
	"net/http"

	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/util"
)

type RecognizeRequest struct {
	ImageB64 string `json:"image_b64"`
	OCRName  string `json:"ocr_name"`
	Template string `json:"template"`
}

type RecognizeResponse struct {
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Tokens     []layout.Token     `json:"tokens"`
	Paragraphs []layout.Paragraph `json:"paragraphs"`
}

// Recognize runs OCR and paragraph segmentation without the model review.
func (h *Handle) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
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

	page, paragraphs, err := h.svc.Recognize(ctx, img, req.OCRName, req.Template)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecognizeResponse{
		Width:      page.Width,
		Height:     page.Height,
		Tokens:     page.Tokens,
		Paragraphs: paragraphs,
	})
}
