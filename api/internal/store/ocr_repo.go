package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/ocr"
)

// OCRRepo caches recognized pages by (image_hash, engine).
type OCRRepo struct {
	DB     *sql.DB
	MaxAge time.Duration // 0 keeps entries forever
}

func NewOCRRepo(db *sql.DB) *OCRRepo { return &OCRRepo{DB: db} }

// FindByHash reports ok=false on a miss, a stale entry or a broken row.
func (r *OCRRepo) FindByHash(ctx context.Context, imageHash, engine string) (ocr.Page, bool, error) {
	const q = `select tokens, width, height, created_at
	           from ocr_results
	           where image_hash=$1 and engine=$2`
	var (
		js   []byte
		page ocr.Page
		ts   time.Time
	)
	err := r.DB.QueryRowContext(ctx, q, imageHash, engine).Scan(&js, &page.Width, &page.Height, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return ocr.Page{}, false, nil
	}
	if err != nil {
		return ocr.Page{}, false, err
	}
	if r.MaxAge > 0 && time.Since(ts) > r.MaxAge {
		return ocr.Page{}, false, nil
	}
	var tokens []layout.Token
	if err := json.Unmarshal(js, &tokens); err != nil {
		return ocr.Page{}, false, nil
	}
	page.Tokens = tokens
	return page, true, nil
}

func (r *OCRRepo) Upsert(ctx context.Context, imageHash, engine string, page ocr.Page) error {
	js, err := json.Marshal(page.Tokens)
	if err != nil {
		return err
	}
	const q = `
insert into ocr_results(image_hash, engine, tokens, width, height)
values ($1,$2,$3,$4,$5)
on conflict (image_hash, engine)
do update set tokens=excluded.tokens, width=excluded.width, height=excluded.height, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, imageHash, engine, string(js), page.Width, page.Height)
	return err
}
