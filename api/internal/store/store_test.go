package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"contract-lens/api/internal/analysis"
	"contract-lens/api/internal/layout"
	"contract-lens/api/internal/ocr"
)

func TestSafeDSNSummary(t *testing.T) {
	got := SafeDSNSummary("postgres://lens:secret@db:5432/lens?sslmode=disable")
	if got != "host=db port=5432 db=lens user=lens" {
		t.Errorf("got %q", got)
	}
	if got := SafeDSNSummary("postgres://lens@localhost/lens"); got != "host=localhost db=lens user=lens" {
		t.Errorf("got %q", got)
	}
}

// testDB connects to TEST_DATABASE_URL; the tests are skipped without it.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(ctx, db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestAnalysisRepo_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	out, _, err := analysis.DecodeLLMOutput(`{
  "특약 사항 명시": {"특약 사항 기재 여부": {"status": true, "content": "반려동물 <금지>"}},
  "기본 계약 정보": {"계약 기간 명시": {"status": true, "content": "2년"}, "계약서 상 임대인 정보 확인": {"status": false, "content": null}},
  "위험요인": "줄1\n줄2"
}`)
	if err != nil {
		t.Fatal(err)
	}
	paragraphs := []layout.Paragraph{{Text: "계약기간 2년", BoundingBox: []layout.Point{{X: 1.5, Y: 2.25}, {X: 30.125, Y: 2.25}, {X: 30.125, Y: 9}, {X: 1.5, Y: 9}}}}
	payload, warnings := analysis.MapSections(out, paragraphs)

	rec := analysis.Record{
		ID:          uuid.New(),
		UserID:      "u-" + uuid.NewString(),
		Image:       "sha256:abc",
		ImageWidth:  800,
		ImageHeight: 1000,
		Payload:     payload,
		Warnings:    warnings,
		OCREngine:   "clova",
		LLMEngine:   "gpt",
		LLMModel:    "gpt-4o-mini",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, rec.UserID, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := json.Marshal(rec.Payload)
	back, _ := json.Marshal(got.Payload)
	if string(want) != string(back) {
		t.Errorf("payload changed:\n%s\n%s", want, back)
	}
	var stored string
	if err := db.QueryRowContext(ctx, `select payload::text from analyses where id=$1`, rec.ID).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored != string(want) {
		t.Errorf("stored bytes differ:\n%s\n%s", want, stored)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) || got.LLMModel != rec.LLMModel {
		t.Errorf("unexpected record %+v", got)
	}

	if _, err := repo.Get(ctx, "someone-else", rec.ID); !errors.Is(err, analysis.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	list, err := repo.ListByUser(ctx, rec.UserID, 10)
	if err != nil || len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("ListByUser = %+v, %v", list, err)
	}
}

func TestOCRRepo(t *testing.T) {
	db := testDB(t)
	repo := NewOCRRepo(db)
	ctx := context.Background()
	hash := uuid.NewString()

	if _, ok, err := repo.FindByHash(ctx, hash, "clova"); ok || err != nil {
		t.Fatalf("Expected a miss, got %v %v", ok, err)
	}
	page := ocr.Page{Width: 10, Height: 20, Tokens: []layout.Token{
		{Text: "임대인", Polygon: []layout.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 2}, {X: 0, Y: 2}}},
	}}
	if err := repo.Upsert(ctx, hash, "clova", page); err != nil {
		t.Fatal(err)
	}
	page.Width = 11
	if err := repo.Upsert(ctx, hash, "clova", page); err != nil {
		t.Fatal(err)
	}
	got, ok, err := repo.FindByHash(ctx, hash, "clova")
	if err != nil || !ok || !reflect.DeepEqual(got, page) {
		t.Errorf("FindByHash = %+v, %v, %v", got, ok, err)
	}
}
