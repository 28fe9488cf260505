package docai

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/ocr"
	"contract-lens/api/internal/util"
)

type Config struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
}

// Engine runs an OCR processor of Google Document AI. Only the first page of
// the document is used.
type Engine struct {
	client *documentai.DocumentProcessorClient
	name   string
}

func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("DOCAI_PROJECT_ID / DOCAI_PROCESSOR_ID is empty")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &Engine{
		client: client,
		name:   fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
	}, nil
}

func (e *Engine) Name() string { return "docai" }

func (e *Engine) Close() error { return e.client.Close() }

func (e *Engine) Recognize(ctx context.Context, image []byte) (ocr.Page, error) {
	req := &documentaipb.ProcessRequest{
		Name: e.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: util.SniffMimeHTTP(image),
			},
		},
		SkipHumanReview: true,
	}
	resp, err := util.Retry(ctx, func() (*documentaipb.ProcessResponse, error) {
		return e.client.ProcessDocument(ctx, req)
	})
	if err != nil {
		return ocr.Page{}, fmt.Errorf("docai: failed to process document: %w", err)
	}
	return pageFromDocument(resp.GetDocument()), nil
}

// pageFromDocument converts the first page's tokens to pixel-space polygons.
// Normalized vertices are scaled by the page dimension when pixel vertices are
// missing.
func pageFromDocument(doc *documentaipb.Document) ocr.Page {
	if doc == nil || len(doc.Pages) == 0 {
		return ocr.Page{}
	}
	p := doc.Pages[0]
	var page ocr.Page
	var w, h float64
	if d := p.GetDimension(); d != nil {
		w, h = float64(d.Width), float64(d.Height)
		page.Width, page.Height = int(w+0.5), int(h+0.5)
	}
	fullText := []rune(doc.Text)
	for _, t := range p.Tokens {
		text := strings.TrimSpace(textFromLayout(t.GetLayout(), fullText))
		if text == "" {
			continue
		}
		page.Tokens = append(page.Tokens, layout.Token{
			Text:    text,
			Polygon: polygon(t.GetLayout().GetBoundingPoly(), w, h),
		})
	}
	return page
}

func polygon(bp *documentaipb.BoundingPoly, w, h float64) []layout.Point {
	if bp == nil {
		return nil
	}
	if len(bp.Vertices) > 0 {
		pts := make([]layout.Point, 0, len(bp.Vertices))
		for _, v := range bp.Vertices {
			pts = append(pts, layout.Point{X: float64(v.X), Y: float64(v.Y)})
		}
		return pts
	}
	pts := make([]layout.Point, 0, len(bp.NormalizedVertices))
	for _, v := range bp.NormalizedVertices {
		pts = append(pts, layout.Point{X: float64(v.X) * w, Y: float64(v.Y) * h})
	}
	return pts
}

func textFromLayout(l *documentaipb.Document_Page_Layout, runes []rune) string {
	if l == nil || l.TextAnchor == nil {
		return ""
	}
	var sb strings.Builder
	total := len(runes)
	for _, seg := range l.TextAnchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if end > total {
			end = total
		}
		if start < 0 {
			start = 0
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}
