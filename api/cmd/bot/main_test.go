package main

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func TestRetryDelayFromError(t *testing.T) {
	tests := []struct {
		err  error
		want time.Duration
	}{
		{nil, 0},
		{errors.New("Too Many Requests: retry after 7"), 7 * time.Second},
		{errors.New("too many requests"), 3 * time.Second},
		{errors.New("connection reset"), time.Second},
	}
	for _, tt := range tests {
		if got := retryDelayFromError(tt.err); got != tt.want {
			t.Errorf("retryDelayFromError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

type fakeUpdates struct {
	calls   int
	offsets []int
	cancel  context.CancelFunc
}

func (f *fakeUpdates) GetUpdates(c tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.calls++
	f.offsets = append(f.offsets, c.Offset)
	switch f.calls {
	case 1:
		return []tgbotapi.Update{{UpdateID: 10}, {UpdateID: 11}}, nil
	case 2:
		return nil, errors.New("bad gateway")
	default:
		f.cancel()
		return []tgbotapi.Update{{UpdateID: 12}}, nil
	}
}

func TestRunPollingAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &fakeUpdates{cancel: cancel}

	var seen []int
	runPolling(ctx, src, zap.NewNop(), func(u tgbotapi.Update) { seen = append(seen, u.UpdateID) })

	if len(seen) != 3 || seen[2] != 12 {
		t.Errorf("unexpected updates %v", seen)
	}
	if src.offsets[0] != 0 || src.offsets[1] != 12 || src.offsets[2] != 12 {
		t.Errorf("unexpected offsets %v", src.offsets)
	}
}

func TestShortHashStable(t *testing.T) {
	a, b := shortHash("123:abc"), shortHash("123:abc")
	if a != b || a == shortHash("123:abd") || a == "" {
		t.Errorf("unexpected hashes %q %q", a, b)
	}
}
