// Package tokenizer approximates token counts when the agent reports no usage.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/marutilai/open-deep-research/internal/domain"
)

const (
	defaultEncoding = "cl100k_base"

	// charsPerToken is the rough ratio used when no encoding is available.
	charsPerToken = 4

	// messageOverhead covers role and separator tokens of a chat message.
	messageOverhead = 4
)

// Checked in order; the first key contained in the model name wins.
//
//nolint:gochecknoglobals // static lookup table
var modelEncodings = []struct {
	key      string
	encoding string
}{
	{"gpt-4", "cl100k_base"},
	{"gpt-3.5", "cl100k_base"},
	{"claude", "cl100k_base"},
	{"gemini", "cl100k_base"},
}

// Encoder turns text into tokens.
type Encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// Loader returns the encoder for an encoding name.
type Loader func(encoding string) (Encoder, error)

// Estimator implements domain.TokenEstimator with tiktoken encodings.
type Estimator struct {
	load Loader

	mu       sync.Mutex
	encoders map[string]Encoder
	failed   map[string]bool
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLoader overrides how encodings are obtained.
func WithLoader(load Loader) Option {
	return func(e *Estimator) {
		e.load = load
	}
}

// New creates a new estimator. Encodings are loaded lazily and cached.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		load:     loadTiktoken,
		encoders: make(map[string]Encoder),
		failed:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func loadTiktoken(encoding string) (Encoder, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// Estimate approximates the tokens of text for model.
func (e *Estimator) Estimate(text, model string) int {
	if text == "" {
		return 0
	}

	enc := e.encoder(EncodingFor(model))
	if enc == nil {
		return len(text) / charsPerToken
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateMessages approximates the tokens of a chat transcript.
func (e *Estimator) EstimateMessages(messages []domain.Message, model string) int {
	total := 0
	for _, m := range messages {
		total += e.Estimate(m.Content, model) + messageOverhead
	}
	return total
}

// EncodingFor returns the encoding name used for model.
func EncodingFor(model string) string {
	lowered := strings.ToLower(model)
	for _, entry := range modelEncodings {
		if strings.Contains(lowered, entry.key) {
			return entry.encoding
		}
	}
	return defaultEncoding
}

// encoder returns nil when the encoding cannot be loaded. Failures are remembered.
func (e *Estimator) encoder(name string) Encoder {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encoders[name]; ok {
		return enc
	}
	if e.failed[name] {
		return nil
	}

	enc, err := e.load(name)
	if err != nil || enc == nil {
		e.failed[name] = true
		return nil
	}

	e.encoders[name] = enc
	return enc
}
