package metrics

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TokenCounter estimates prompt sizes with a BPE encoding. The encoding is
// loaded on first use; when it cannot be loaded the counter degrades to a
// rune based estimate of four runes per token.
type TokenCounter struct {
	encoding string
	logger   *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter for the named encoding.
func NewTokenCounter(encoding string, logger *slog.Logger) *TokenCounter {
	if strings.TrimSpace(encoding) == "" {
		encoding = defaultEncoding
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCounter{encoding: encoding, logger: logger.With("component", "metrics.tokens")}
}

// Count returns the number of tokens in text and whether the value is an estimate.
func (c *TokenCounter) Count(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	if c == nil {
		return estimateTokens(text), true
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.logger.Warn("tokenizer unavailable, using estimate", "encoding", c.encoding, "error", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return estimateTokens(text), true
	}
	return len(c.enc.Encode(text, nil, nil)), false
}

func estimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}
