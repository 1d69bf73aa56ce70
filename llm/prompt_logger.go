package llm

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

const contentPreviewMaxLen = 200

// PromptLogger wraps a Generator and writes one JSONL line per exchange.
type PromptLogger struct {
	inner Generator
	file  *os.File

	mu    sync.Mutex
	count int
}

// NewPromptLogger creates a prompt logger that writes to the given file path.
func NewPromptLogger(inner Generator, filename string) (*PromptLogger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &PromptLogger{inner: inner, file: f}, nil
}

// Close closes the underlying file.
func (pl *PromptLogger) Close() {
	if pl.file != nil {
		pl.file.Close()
	}
}

// exchangeSnapshot is the line written per exchange.
type exchangeSnapshot struct {
	Exchange        int     `json:"exchange"`
	Timestamp       string  `json:"timestamp"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	Prompt          string  `json:"prompt"`
	ResponsePreview string  `json:"response_preview,omitempty"`
	ResponseLength  int     `json:"response_length"`
	DurationMs      int64   `json:"duration_ms"`
	Error           string  `json:"error,omitempty"`
}

func (pl *PromptLogger) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	start := time.Now()
	out, err := pl.inner.Generate(ctx, prompt, maxTokens, temperature)

	snap := exchangeSnapshot{
		Timestamp:       start.Format(time.RFC3339Nano),
		MaxTokens:       maxTokens,
		Temperature:     temperature,
		Prompt:          prompt,
		ResponsePreview: preview(out),
		ResponseLength:  len(out),
		DurationMs:      time.Since(start).Milliseconds(),
	}
	if err != nil {
		snap.Error = err.Error()
	}

	pl.mu.Lock()
	pl.count++
	snap.Exchange = pl.count
	if data, mErr := json.Marshal(snap); mErr == nil {
		pl.file.Write(append(data, '\n'))
	}
	pl.mu.Unlock()

	return out, err
}

func preview(s string) string {
	if len(s) <= contentPreviewMaxLen {
		return s
	}
	return s[:contentPreviewMaxLen] + "..."
}
