package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"contract-lens/api/internal/analysis"
)

// Bot is the part of tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Analyzer runs the contract review for one image.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) (analysis.Result, error)
}

type Router struct {
	Bot     Bot
	Svc     Analyzer
	Log     *zap.Logger
	Timeout time.Duration

	// Fetch downloads a Telegram file URL; nil means download.
	Fetch func(ctx context.Context, url string) ([]byte, error)
}

const maxMessageLen = 3900

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	fileID := imageFileID(msg)
	if fileID == "" {
		if msg.Text != "" {
			r.send(msg.Chat.ID, "계약서 사진을 보내 주세요. 도움말은 /start")
		}
		return
	}
	r.acceptImage(ctx, msg, fileID)
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "임대차 계약서 사진을 보내 주시면 항목별 점검 결과를 알려 드립니다.\n"+
			"여러 장이면 연달아 보내 주세요. 한 장으로 이어 붙여 분석합니다.\n"+
			"명령: /health, /engine")
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "알 수 없는 명령입니다")
	}
}

// handleEngineCommand switches the OCR or LLM vendor for a chat.
//
//	/engine            show the current choice
//	/engine clova      OCR: clova | yandex | docai
//	/engine gemini     LLM: gpt | gemini
//	/engine reset
func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	switch {
	case name == "":
		p := getPrefs(chatID)
		r.send(chatID, fmt.Sprintf("OCR: %s\nLLM: %s\n사용법: /engine {clova|yandex|docai|gpt|gemini|reset}",
			orDefault(p.OCR), orDefault(p.LLM)))
	case name == "reset":
		clearPrefs(chatID)
		r.send(chatID, "✅ 기본 엔진으로 되돌렸습니다.")
	case ocrNames[name]:
		setOCR(chatID, name)
		r.send(chatID, "✅ OCR 엔진: "+name)
	case llmNames[name]:
		setLLM(chatID, name)
		r.send(chatID, "✅ LLM 엔진: "+name)
	default:
		r.send(chatID, "알 수 없는 엔진입니다. clova | yandex | docai | gpt | gemini")
	}
}

func orDefault(s string) string {
	if s == "" {
		return "기본값"
	}
	return s
}

// analyze reviews one (possibly stitched) contract image and replies with
// the report.
func (r *Router) analyze(ctx context.Context, chatID int64, image []byte) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	p := getPrefs(chatID)
	res, err := r.Svc.Analyze(ctx, analysis.AnalyzeRequest{
		UserID: userID(chatID),
		Image:  image,
		OCR:    p.OCR,
		LLM:    p.LLM,
	})
	if err != nil {
		r.logger().Warn("analyze failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.SendError(chatID, err)
		return
	}
	r.send(chatID, FormatReport(res))
}

func userID(chatID int64) string { return fmt.Sprintf("tg:%d", chatID) }

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncateMessage(text))
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// SendError tells the user what went wrong without vendor details.
func (r *Router) SendError(chatID int64, err error) {
	var text string
	switch {
	case errors.Is(err, analysis.ErrBadInput):
		text = "이미지를 처리할 수 없습니다. 계약서 사진(JPG/PNG)을 다시 보내 주세요."
	case errors.Is(err, analysis.ErrMalformedOutput), errors.Is(err, analysis.ErrVendorUnavailable):
		text = "분석 서비스가 일시적으로 응답하지 않습니다. 잠시 후 다시 시도해 주세요."
	case errors.Is(err, context.DeadlineExceeded):
		text = "분석 시간이 초과되었습니다. 다시 시도해 주세요."
	default:
		text = "오류가 발생했습니다. 다시 시도해 주세요."
	}
	r.send(chatID, "⚠️ "+text)
}

func truncateMessage(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	// back off to a rune boundary
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "…"
}
