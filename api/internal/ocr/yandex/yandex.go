package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/ocr"
	"contract-lens/api/internal/util"
)

const defaultURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

// Engine calls Yandex Vision OCR. Tokens are recognized words.
type Engine struct {
	URL      string
	Langs    []string
	Model    string
	iamc     *IamClient
	folderID string
	httpc    *http.Client
}

func New(oauth2Token, folderID string) *Engine {
	return &Engine{
		URL:      defaultURL,
		Langs:    []string{"ko", "en"},
		Model:    "page",
		iamc:     NewIamClient(oauth2Token),
		folderID: folderID,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "yandex" }

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"`      // "JPEG" | "PNG" | "PDF"
	LanguageCodes []string `json:"languageCodes,omitempty"` // ["ko","en"]
	Model         string   `json:"model,omitempty"`         // "page", "handwritten"
}

// num accepts both 12 and "12"; the API encodes int64 fields as strings.
type num float64

func (n *num) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = num(f)
	return nil
}

type boundingBox struct {
	Vertices []struct {
		X num `json:"x"`
		Y num `json:"y"`
	} `json:"vertices"`
}

func (b boundingBox) polygon() []layout.Point {
	pts := make([]layout.Point, 0, len(b.Vertices))
	for _, v := range b.Vertices {
		pts = append(pts, layout.Point{X: float64(v.X), Y: float64(v.Y)})
	}
	return pts
}

type response struct {
	Result *struct {
		TextAnnotation *struct {
			Width  num `json:"width"`
			Height num `json:"height"`
			Blocks []struct {
				Lines []struct {
					Text        string      `json:"text"`
					BoundingBox boundingBox `json:"boundingBox"`
					Words       []struct {
						Text        string      `json:"text"`
						BoundingBox boundingBox `json:"boundingBox"`
					} `json:"words"`
				} `json:"lines"`
			} `json:"blocks"`
		} `json:"textAnnotation"`
	} `json:"result"`
}

var errUnauthorized = errors.New("yandex ocr 401")

func mimeForOCR(image []byte) string {
	switch util.SniffFormat(image) {
	case "png":
		return "PNG"
	case "pdf":
		return "PDF"
	}
	return "JPEG"
}

func (e *Engine) Recognize(ctx context.Context, image []byte) (ocr.Page, error) {
	if e.folderID == "" {
		return ocr.Page{}, fmt.Errorf("YC_FOLDER_ID is empty")
	}
	payload, _ := json.Marshal(request{
		Content:       base64.StdEncoding.EncodeToString(image),
		MimeType:      mimeForOCR(image),
		LanguageCodes: e.Langs,
		Model:         e.Model,
	})

	out, err := util.Retry(ctx, func() (response, error) {
		iamToken, err := e.iamc.Token(ctx)
		if err != nil {
			return response{}, util.Permanent(err)
		}
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+iamToken)
		req.Header.Set("x-folder-id", e.folderID)

		resp, err := e.httpc.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			// stale IAM token: refresh and try again
			e.iamc.Invalidate()
			return response{}, errUnauthorized
		}
		if resp.StatusCode != http.StatusOK {
			return response{}, util.StatusError("yandex ocr", resp)
		}
		var out response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return response{}, util.Permanent(fmt.Errorf("yandex ocr: bad JSON: %w", err))
		}
		return out, nil
	})
	if err != nil {
		return ocr.Page{}, err
	}

	var page ocr.Page
	if out.Result == nil || out.Result.TextAnnotation == nil {
		return page, nil
	}
	ta := out.Result.TextAnnotation
	page.Width, page.Height = int(ta.Width), int(ta.Height)
	for _, b := range ta.Blocks {
		for _, l := range b.Lines {
			if len(l.Words) == 0 {
				// some models return lines only
				if strings.TrimSpace(l.Text) != "" {
					page.Tokens = append(page.Tokens, layout.Token{Text: l.Text, Polygon: l.BoundingBox.polygon()})
				}
				continue
			}
			for _, w := range l.Words {
				page.Tokens = append(page.Tokens, layout.Token{Text: w.Text, Polygon: w.BoundingBox.polygon()})
			}
		}
	}
	return page, nil
}
