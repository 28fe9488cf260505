package clova

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/ocr"
	"contract-lens/api/internal/util"
)

// Engine calls the NAVER CLOVA General OCR API gateway.
type Engine struct {
	URL    string
	Secret string
	Lang   string
	httpc  *http.Client
}

func New(url, secret string) *Engine {
	return &Engine{
		URL:    strings.TrimSpace(url),
		Secret: strings.TrimSpace(secret),
		Lang:   "ko",
		httpc:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithHTTPClient overrides the internal HTTP client.
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string { return "clova" }

type request struct {
	Version   string         `json:"version"`
	RequestID string         `json:"requestId"`
	Timestamp int64          `json:"timestamp"`
	Lang      string         `json:"lang,omitempty"`
	Images    []requestImage `json:"images"`
}

type requestImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Data   string `json:"data"`
}

type response struct {
	Images []struct {
		InferResult        string `json:"inferResult"`
		Message            string `json:"message"`
		ConvertedImageInfo *struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"convertedImageInfo,omitempty"`
		Fields []struct {
			InferText    string `json:"inferText"`
			BoundingPoly struct {
				Vertices []layout.Point `json:"vertices"`
			} `json:"boundingPoly"`
		} `json:"fields"`
	} `json:"images"`
}

func (e *Engine) Recognize(ctx context.Context, image []byte) (ocr.Page, error) {
	if e.URL == "" || e.Secret == "" {
		return ocr.Page{}, fmt.Errorf("CLOVA_OCR_URL / CLOVA_OCR_SECRET is empty")
	}
	format := util.SniffFormat(image)
	if format == "" {
		format = "jpg"
	}
	payload, _ := json.Marshal(request{
		Version:   "V2",
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Lang:      e.Lang,
		Images: []requestImage{{
			Format: format,
			Name:   "contract",
			Data:   base64.StdEncoding.EncodeToString(image),
		}},
	})

	out, err := util.Retry(ctx, func() (response, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-OCR-SECRET", e.Secret)

		resp, err := e.httpc.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return response{}, util.StatusError("clova ocr", resp)
		}
		var out response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return response{}, util.Permanent(fmt.Errorf("clova ocr: bad JSON: %w", err))
		}
		return out, nil
	})
	if err != nil {
		return ocr.Page{}, err
	}

	if len(out.Images) == 0 {
		return ocr.Page{}, fmt.Errorf("clova ocr: empty images in response")
	}
	img := out.Images[0]
	if img.InferResult != "" && img.InferResult != "SUCCESS" {
		return ocr.Page{}, fmt.Errorf("clova ocr: %s: %s", img.InferResult, img.Message)
	}

	page := ocr.Page{Tokens: make([]layout.Token, 0, len(img.Fields))}
	if img.ConvertedImageInfo != nil {
		page.Width, page.Height = img.ConvertedImageInfo.Width, img.ConvertedImageInfo.Height
	}
	for _, f := range img.Fields {
		page.Tokens = append(page.Tokens, layout.Token{
			Text:    f.InferText,
			Polygon: f.BoundingPoly.Vertices,
		})
	}
	return page, nil
}
