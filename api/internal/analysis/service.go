package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/llm"
	"contract-lens/api/internal/ocr"
	"contract-lens/api/internal/util"
)

type OCREngines interface {
	GetEngine(name string) (ocr.Engine, error)
}

type Analyzers interface {
	GetEngine(name string) (llm.Analyzer, error)
}

// Records persists analyses. Get and ListByUser only see the owner's records;
// Get returns ErrNotFound otherwise.
type Records interface {
	Insert(ctx context.Context, rec Record) error
	Get(ctx context.Context, userID string, id uuid.UUID) (Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
}

// PageCache keeps recognized pages by image hash and OCR engine.
type PageCache interface {
	FindByHash(ctx context.Context, imageHash, engine string) (ocr.Page, bool, error)
	Upsert(ctx context.Context, imageHash, engine string, page ocr.Page) error
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Service struct {
	OCR     OCREngines
	LLM     Analyzers
	Rules   *layout.RuleSet
	Records Records
	Pages   PageCache // optional
	Log     *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

func NewService(ocrs OCREngines, llms Analyzers, rules *layout.RuleSet, records Records, pages PageCache, log *zap.Logger) *Service {
	if rules == nil {
		rules = layout.DefaultRuleSet()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		OCR:     ocrs,
		LLM:     llms,
		Rules:   rules,
		Records: records,
		Pages:   pages,
		Log:     log,
		now:     time.Now,
		newID:   uuid.New,
	}
}

type AnalyzeRequest struct {
	UserID   string
	Image    []byte
	ImageRef string // defaults to sha256:<hex of Image>
	OCR      string
	LLM      string
	Template string
}

type Result struct {
	Record   Record    `json:"analysis"`
	Warnings []Warning `json:"warnings"`
}

// Analyze runs OCR, segmentation, the model review and grounding, then stores
// the record. Nothing is stored when any step fails.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Result, error) {
	if req.UserID == "" {
		return Result{}, fmt.Errorf("%w: user id is required", ErrBadInput)
	}
	if len(req.Image) == 0 {
		return Result{}, fmt.Errorf("%w: image is empty", ErrBadInput)
	}
	analyzer, err := s.LLM.GetEngine(req.LLM)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	hash := util.SHA256Hex(req.Image)
	log := s.Log.With(zap.String("user_id", req.UserID), zap.String("image_hash", hash))

	page, paragraphs, ocrName, err := s.recognize(ctx, log, hash, req.Image, req.OCR, req.Template)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	raw, err := analyzer.Analyze(ctx, llm.Input{Paragraphs: layout.Texts(paragraphs)})
	if err != nil {
		log.Error("llm analyze failed", zap.String("llm", analyzer.Name()), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %s: %v", ErrVendorUnavailable, analyzer.Name(), err)
	}
	out, warnings, err := DecodeLLMOutput(raw)
	if err != nil {
		log.Error("llm output rejected", zap.String("llm", analyzer.Name()),
			zap.String("reply", util.Truncate(raw, 500)), zap.Error(err))
		return Result{}, err
	}

	payload, misses := MapSections(out, paragraphs)
	warnings = append(warnings, misses...)
	if warnings == nil {
		warnings = []Warning{}
	}

	ref := req.ImageRef
	if ref == "" {
		ref = "sha256:" + hash
	}
	rec := Record{
		ID:          s.newID(),
		UserID:      req.UserID,
		Image:       ref,
		ImageWidth:  page.Width,
		ImageHeight: page.Height,
		Payload:     payload,
		Warnings:    warnings,
		OCREngine:   ocrName,
		LLMEngine:   analyzer.Name(),
		LLMModel:    analyzer.GetModel(),
		CreatedAt:   s.now().UTC(),
	}
	log = log.With(zap.String("analysis_id", rec.ID.String()))
	for _, w := range warnings {
		log.Warn("analysis warning",
			zap.String("kind", string(w.Kind)),
			zap.String("category", w.Category),
			zap.String("title", w.Title),
			zap.String("detail", util.Truncate(w.Detail, 200)))
	}

	if err := s.Records.Insert(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("save analysis: %w", err)
	}
	log.Info("analysis stored",
		zap.String("llm", rec.LLMEngine),
		zap.Int("paragraphs", len(paragraphs)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("llm_took", time.Since(started)))
	return Result{Record: rec, Warnings: warnings}, nil
}

// Recognize runs OCR and segmentation only.
func (s *Service) Recognize(ctx context.Context, image []byte, ocrName, template string) (ocr.Page, []layout.Paragraph, error) {
	if len(image) == 0 {
		return ocr.Page{}, nil, fmt.Errorf("%w: image is empty", ErrBadInput)
	}
	hash := util.SHA256Hex(image)
	page, paragraphs, _, err := s.recognize(ctx, s.Log.With(zap.String("image_hash", hash)), hash, image, ocrName, template)
	return page, paragraphs, err
}

func (s *Service) recognize(ctx context.Context, log *zap.Logger, hash string, image []byte, ocrName, template string) (ocr.Page, []layout.Paragraph, string, error) {
	rules, err := s.Rules.Get(template)
	if err != nil {
		return ocr.Page{}, nil, "", fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	engine, err := s.OCR.GetEngine(ocrName)
	if err != nil {
		return ocr.Page{}, nil, "", fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	log = log.With(zap.String("ocr", engine.Name()))

	page, cached := s.cachedPage(ctx, log, hash, engine.Name())
	if !cached {
		page, err = engine.Recognize(ctx, image)
		if err != nil {
			log.Error("ocr failed", zap.Error(err))
			return ocr.Page{}, nil, "", fmt.Errorf("%w: %s: %v", ErrVendorUnavailable, engine.Name(), err)
		}
		if err := ocr.Validate(page); err != nil {
			log.Error("ocr page rejected", zap.Error(err))
			return ocr.Page{}, nil, "", fmt.Errorf("%w: %s: %v", ErrVendorUnavailable, engine.Name(), err)
		}
		if page.Width == 0 || page.Height == 0 {
			page.Width, page.Height = util.ImageSize(image)
		}
		if s.Pages != nil {
			if err := s.Pages.Upsert(ctx, hash, engine.Name(), page); err != nil {
				log.Warn("ocr cache write failed", zap.Error(err))
			}
		}
	}

	paragraphs := layout.Segment(page.Tokens, rules)
	log.Debug("page segmented",
		zap.Bool("cached", cached),
		zap.Int("tokens", len(page.Tokens)),
		zap.Int("paragraphs", len(paragraphs)))
	return page, paragraphs, engine.Name(), nil
}

func (s *Service) cachedPage(ctx context.Context, log *zap.Logger, hash, engine string) (ocr.Page, bool) {
	if s.Pages == nil {
		return ocr.Page{}, false
	}
	page, ok, err := s.Pages.FindByHash(ctx, hash, engine)
	if err != nil {
		log.Warn("ocr cache read failed", zap.Error(err))
		return ocr.Page{}, false
	}
	if !ok || ocr.Validate(page) != nil {
		return ocr.Page{}, false
	}
	return page, true
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (Record, error) {
	if userID == "" {
		return Record{}, fmt.Errorf("%w: user id is required", ErrBadInput)
	}
	return s.Records.Get(ctx, userID, id)
}

// List returns the user's records, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrBadInput)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.Records.ListByUser(ctx, userID, limit)
}

// Highlights loads a record and scales its grounded boxes to the display size.
func (s *Service) Highlights(ctx context.Context, userID string, id uuid.UUID, displayW, displayH float64) ([]Highlight, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return Highlights(rec, displayW, displayH)
}
