package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const maxDownloadBytes = 20 << 20

// imageFileID returns the largest photo size, or an image sent as a document.
func imageFileID(msg *tgbotapi.Message) string {
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return d.FileID
	}
	return ""
}

func (r *Router) acceptImage(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	cid := msg.Chat.ID
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.logger().Warn("telegram get file failed", zap.Int64("chat_id", cid), zap.Error(err))
		r.SendError(cid, err)
		return
	}
	fetch := r.Fetch
	if fetch == nil {
		fetch = download
	}
	img, err := fetch(ctx, url)
	if err != nil {
		r.logger().Warn("telegram download failed", zap.Int64("chat_id", cid), zap.Error(err))
		r.SendError(cid, err)
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	var first, full bool
	for {
		bi, _ := batches.LoadOrStore(key, &photoBatch{ChatID: cid, Key: key})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.closed {
			// flushed after we loaded it; start a new one
			b.mu.Unlock()
			batches.CompareAndDelete(key, b)
			continue
		}
		first = len(b.images) == 0
		if len(b.images) < maxPages {
			b.images = append(b.images, img)
		} else if !b.capped {
			b.capped = true
			full = true
		}
		if b.timer != nil {
			b.timer.Stop()
		}
		bctx := context.WithoutCancel(ctx)
		b.timer = time.AfterFunc(debounce, func() { r.flush(bctx, b) })
		b.mu.Unlock()
		break
	}

	switch {
	case first:
		r.send(cid, "사진을 받았습니다. 계약서가 여러 장이면 이어서 보내 주세요. 잠시 후 분석을 시작합니다.")
	case full:
		r.send(cid, fmt.Sprintf("한 번에 최대 %d장까지 분석합니다. 이후 사진은 제외했습니다.", maxPages))
	}
}

func (r *Router) processBatch(ctx context.Context, key string) {
	if bi, ok := batches.Load(key); ok {
		r.flush(ctx, bi.(*photoBatch))
	}
}

// flush closes the batch and analyses its pages. A closed batch takes no
// more photos; later ones start a new batch.
func (r *Router) flush(ctx context.Context, b *photoBatch) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	images := b.images
	b.mu.Unlock()
	batches.CompareAndDelete(b.Key, b)

	if len(images) == 0 {
		return
	}
	page := images[0]
	if len(images) > 1 {
		merged, err := stitchPages(images)
		if err != nil {
			r.logger().Warn("stitch pages failed", zap.String("key", b.Key), zap.Error(err))
			r.SendError(b.ChatID, err)
			return
		}
		page = merged
	}
	r.analyze(ctx, b.ChatID, page)
}

// stitchPages stacks page images top to bottom on a white canvas, centred
// horizontally, and downsamples the result to at most maxPixels.
func stitchPages(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for i, b := range images {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", i+1, err)
		}
		decoded = append(decoded, img)
		maxW = max(maxW, img.Bounds().Dx())
		sumH += img.Bounds().Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("stitch: empty images")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	var out image.Image = canvas
	if px := maxW * sumH; px > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(px))
		w := max(1, int(float64(maxW)*scale+0.5))
		h := max(1, int(float64(sumH)*scale+0.5))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("telegram file %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

var httpClient = &http.Client{Timeout: 60 * time.Second}
