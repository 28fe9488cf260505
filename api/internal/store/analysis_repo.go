package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contract-lens/api/internal/analysis"
)

// AnalysisRepo stores analysis records. Rows are inserted once and never updated.
type AnalysisRepo struct{ DB *sql.DB }

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{DB: db} }

func (r *AnalysisRepo) Insert(ctx context.Context, rec analysis.Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []analysis.Warning{}
	}
	ws, _ := json.Marshal(warnings)
	const q = `
insert into analyses (
  id, user_id, image, image_width, image_height,
  payload, warnings, ocr_engine, llm_engine, llm_model, created_at
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.DB.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.Image, rec.ImageWidth, rec.ImageHeight,
		string(payload), string(ws), rec.OCREngine, rec.LLMEngine, rec.LLMModel, rec.CreatedAt)
	return err
}

const selectAnalysis = `
select id, user_id, image, image_width, image_height,
       payload, warnings, ocr_engine, llm_engine, llm_model, created_at
from analyses`

// Get returns analysis.ErrNotFound when the record does not exist or belongs
// to another user.
func (r *AnalysisRepo) Get(ctx context.Context, userID string, id uuid.UUID) (analysis.Record, error) {
	row := r.DB.QueryRowContext(ctx, selectAnalysis+` where id = $1 and user_id = $2`, id, userID)
	rec, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.Record{}, analysis.ErrNotFound
	}
	return rec, err
}

// ListByUser returns the newest records first.
func (r *AnalysisRepo) ListByUser(ctx context.Context, userID string, limit int) ([]analysis.Record, error) {
	rows, err := r.DB.QueryContext(ctx,
		selectAnalysis+` where user_id = $1 order by created_at desc, id desc limit $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []analysis.Record{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (analysis.Record, error) {
	var (
		rec      analysis.Record
		payload  []byte
		warnings []byte
		ts       time.Time
	)
	if err := s.Scan(&rec.ID, &rec.UserID, &rec.Image, &rec.ImageWidth, &rec.ImageHeight,
		&payload, &warnings, &rec.OCREngine, &rec.LLMEngine, &rec.LLMModel, &ts); err != nil {
		return analysis.Record{}, err
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return analysis.Record{}, fmt.Errorf("analysis %s: bad payload: %w", rec.ID, err)
	}
	if err := json.Unmarshal(warnings, &rec.Warnings); err != nil {
		return analysis.Record{}, fmt.Errorf("analysis %s: bad warnings: %w", rec.ID, err)
	}
	rec.CreatedAt = ts.UTC()
	return rec, nil
}
