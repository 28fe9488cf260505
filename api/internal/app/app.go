// Package app wires configuration into the analysis service shared by the
// API server and the Telegram bot.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"contract-lens/api/internal/analysis"
	"contract-lens/api/internal/config"
	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/llm"
	"contract-lens/api/internal/llm/gemini"
	"contract-lens/api/internal/llm/gpt"
	"contract-lens/api/internal/ocr"
	"contract-lens/api/internal/ocr/clova"
	"contract-lens/api/internal/ocr/docai"
	"contract-lens/api/internal/ocr/yandex"
	"contract-lens/api/internal/store"
)

type App struct {
	DB      *sql.DB
	Service *analysis.Service

	closers []func() error
}

// New connects to Postgres, applies the schema and builds the service with
// every vendor that has credentials.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(cfg.DatabaseURL)))
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{DB: db}
	a.closers = append(a.closers, db.Close)

	rules := layout.DefaultRuleSet()
	if cfg.SegmentRulesFile != "" {
		if rules, err = layout.LoadRuleSet(cfg.SegmentRulesFile); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("segment rules: %w", err)
		}
	}

	ocrs, err := a.ocrEngines(ctx, cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	llms := analyzers(cfg, log)

	pages := store.NewOCRRepo(db)
	pages.MaxAge = cfg.OCRCacheMaxAge

	a.Service = analysis.NewService(ocrs, llms, rules, store.NewAnalysisRepo(db), pages, log)
	return a, nil
}

// ocrEngines leaves a vendor nil unless its credentials are set.
func (a *App) ocrEngines(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ocr.Engines, error) {
	e := &ocr.Engines{Default: cfg.DefaultOCR}
	if cfg.ClovaOCRURL != "" && cfg.ClovaOCRSecret != "" {
		e.Clova = clova.New(cfg.ClovaOCRURL, cfg.ClovaOCRSecret)
	}
	if cfg.YCOAuthToken != "" && cfg.YCFolderID != "" {
		e.Yandex = yandex.New(cfg.YCOAuthToken, cfg.YCFolderID)
	}
	if cfg.DocAIProjectID != "" && cfg.DocAIProcessorID != "" {
		d, err := docai.New(ctx, docai.Config{
			ProjectID:       cfg.DocAIProjectID,
			Location:        cfg.DocAILocation,
			ProcessorID:     cfg.DocAIProcessorID,
			CredentialsFile: cfg.GoogleCredentials,
		})
		if err != nil {
			return nil, err
		}
		e.DocAI = d
		a.closers = append(a.closers, d.Close)
	}
	log.Info("ocr engines",
		zap.Bool("clova", e.Clova != nil),
		zap.Bool("yandex", e.Yandex != nil),
		zap.Bool("docai", e.DocAI != nil),
		zap.String("default", e.Default))
	return e, nil
}

func analyzers(cfg *config.Config, log *zap.Logger) *llm.Engines {
	e := &llm.Engines{Default: cfg.DefaultLLM}
	if cfg.OpenAIAPIKey != "" {
		g := gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		g.PromptDir = cfg.PromptDir
		e.OpenAI = g
	}
	if cfg.GeminiAPIKey != "" {
		g := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		g.PromptDir = cfg.PromptDir
		e.Gemini = g
	}
	log.Info("llm engines",
		zap.Bool("gpt", e.OpenAI != nil),
		zap.Bool("gemini", e.Gemini != nil),
		zap.String("default", e.Default))
	return e
}

// Close releases vendor clients and the database, last opened first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
