// Package stream reconstructs research results from the agent's
// server-sent event responses.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

const (
	// MaxLineSize bounds a single stream line. Final reports arrive as one large JSON line.
	MaxLineSize = 16 * 1024 * 1024

	initialBufferSize = 64 * 1024
	skipLogChars      = 100
)

//nolint:gochecknoglobals // wire markers
var (
	dataPrefix  = []byte("data:")
	eventPrefix = []byte("event:")
)

// errNotObject rejects payloads that decode to something other than a JSON object.
var errNotObject = errors.New("payload is not a JSON object")

// Reader consumes a line-oriented event stream.
type Reader struct {
	observer    domain.ProgressObserver
	maxLineSize int
}

// Option configures a Reader.
type Option func(*Reader)

// WithObserver sets the progress observer. The default logs through the context logger.
func WithObserver(observer domain.ProgressObserver) Option {
	return func(r *Reader) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithMaxLineSize overrides MaxLineSize.
func WithMaxLineSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineSize = n
		}
	}
}

// NewReader creates a new stream reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		observer:    LogObserver{},
		maxLineSize: MaxLineSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read consumes body until the first event carrying a non-empty final report.
//
// Malformed lines are skipped and an empty final report counts as absent. A stream that ends without a final report
// yields an incomplete_result error carrying the notes seen so far. Errors
// from body are returned wrapped for the caller to classify; the partial
// result is returned alongside every error.
func (r *Reader) Read(ctx context.Context, body io.Reader) (*domain.StreamResult, error) {
	result := &domain.StreamResult{Notes: []string{}}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, min(initialBufferSize, r.maxLineSize)), r.maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw := scanner.Bytes()
		result.Lines++
		result.Bytes += int64(len(raw)) + 1

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasPrefix(line, eventPrefix):
			name := string(bytes.TrimSpace(line[len(eventPrefix):]))
			r.observer.OnProgress(ctx, domain.Progress{Kind: domain.ProgressEvent, Name: name})

		case bytes.HasPrefix(line, dataPrefix):
			payload := bytes.TrimSpace(line[len(dataPrefix):])
			event, err := decodeEvent(payload)
			if err != nil {
				r.skip(ctx, result, line, err)
				continue
			}

			result.Events++
			if done := r.apply(ctx, result, event); done {
				return result, nil
			}

		default:
			r.skip(ctx, result, line, errors.New("missing data prefix"))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		if errors.Is(err, bufio.ErrTooLong) {
			tooBig := domain.NewIncompleteError(result.Notes)
			tooBig.Err = fmt.Errorf("stream chunk too big: line exceeds %d bytes: %w", r.maxLineSize, err)
			return result, tooBig
		}
		return result, fmt.Errorf("failed to read stream: %w", err)
	}

	return result, domain.NewIncompleteError(result.Notes)
}

// apply merges one event into result and reports whether it was terminal.
func (r *Reader) apply(ctx context.Context, result *domain.StreamResult, event *domain.StreamEvent) bool {
	if len(event.Notes) > 0 {
		result.Notes = append(result.Notes, event.Notes...)
		r.observer.OnProgress(ctx, domain.Progress{Kind: domain.ProgressNotes, Notes: event.Notes})
	}

	if event.CostTracking != nil {
		result.CostTracking = event.CostTracking
	}

	if event.ResearchBrief != nil {
		result.ResearchBrief = *event.ResearchBrief
	}

	if event.FinalReport == nil || *event.FinalReport == "" {
		return false
	}

	result.FinalReport = *event.FinalReport
	r.observer.OnProgress(ctx, domain.Progress{
		Kind:         domain.ProgressFinalReport,
		ReportLength: len(result.FinalReport),
	})
	return true
}

func (r *Reader) skip(ctx context.Context, result *domain.StreamResult, line []byte, err error) {
	result.Skipped++
	r.observer.OnProgress(ctx, domain.Progress{
		Kind: domain.ProgressSkip,
		Line: string(line),
		Err:  err,
	})
}

func decodeEvent(payload []byte) (*domain.StreamEvent, error) {
	if len(payload) == 0 || payload[0] != '{' {
		return nil, errNotObject
	}

	var event domain.StreamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &event, nil
}

// LogObserver reports stream progress through the context logger.
type LogObserver struct{}

// OnProgress implements domain.ProgressObserver.
func (LogObserver) OnProgress(ctx context.Context, p domain.Progress) {
	logger := observability.FromContext(ctx)

	switch p.Kind {
	case domain.ProgressNotes:
		logger.Info("research notes received", observability.Int("count", len(p.Notes)))
	case domain.ProgressFinalReport:
		logger.Info("final report received", observability.Int("length", p.ReportLength))
	case domain.ProgressEvent:
		logger.Debug("stream event", observability.String("name", p.Name))
	case domain.ProgressSkip:
		line := p.Line
		if len(line) > skipLogChars {
			line = line[:skipLogChars]
		}
		logger.Warn("skipping stream line",
			observability.String("error_kind", string(domain.ErrorKindParseSkip)),
			observability.String("line", line),
			observability.Error(p.Err))
	}
}
