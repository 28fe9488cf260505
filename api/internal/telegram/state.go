package telegram

import (
	"sync"
	"time"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
	maxPages  = 6
)

var (
	ocrNames = map[string]bool{"clova": true, "yandex": true, "docai": true}
	llmNames = map[string]bool{"gpt": true, "gemini": true}
)

// prefs is the per-chat engine choice; empty fields use the service defaults.
type prefs struct {
	OCR string
	LLM string
}

var (
	chatPrefs sync.Map // chatID -> prefs
	batches   sync.Map // key -> *photoBatch
)

func getPrefs(chatID int64) prefs {
	if v, ok := chatPrefs.Load(chatID); ok {
		return v.(prefs)
	}
	return prefs{}
}

func setOCR(chatID int64, name string) {
	p := getPrefs(chatID)
	p.OCR = name
	chatPrefs.Store(chatID, p)
}

func setLLM(chatID int64, name string) {
	p := getPrefs(chatID)
	p.LLM = name
	chatPrefs.Store(chatID, p)
}

func clearPrefs(chatID int64) { chatPrefs.Delete(chatID) }

// photoBatch collects the pages of one contract sent as an album or as
// consecutive photos.
type photoBatch struct {
	ChatID int64
	Key    string // "grp:<mediaGroupID>" | "chat:<chatID>"

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
	closed bool // flushed; no more pages
	capped bool // a page over maxPages was dropped
}
