package domain

import (
	"context"
	"time"
)

// AgentClient calls the deep-research agent service.
type AgentClient interface {
	// Research runs one research task and returns the reconstructed stream result.
	Research(ctx context.Context, req *ResearchRequest) (*StreamResult, error)

	// Ping checks that the agent service answers HTTP requests.
	Ping(ctx context.Context) error
}

// ResultCache stores angle results between runs.
type ResultCache interface {
	// Get returns a cached result or ErrCacheMiss.
	Get(ctx context.Context, key string) (*AngleResult, error)

	// Set stores a result under key.
	Set(ctx context.Context, key string, result *AngleResult) error
}

// UsageRecorder accepts the usage of a completed call.
type UsageRecorder interface {
	Record(model string, inputTokens, outputTokens int64, duration time.Duration, task string) error
}

// TokenEstimator approximates token counts when exact usage is unavailable.
type TokenEstimator interface {
	// Estimate approximates the tokens of text for the given model.
	Estimate(text, model string) int

	// EstimateMessages approximates the tokens of a chat transcript.
	EstimateMessages(messages []Message, model string) int
}

// Summarizer condenses a research report into an executive summary.
type Summarizer interface {
	Summarize(ctx context.Context, company, angle, report string) (*Summary, error)
}

// Summary is the output of a Summarizer along with the usage it cost.
type Summary struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// ProgressKind names a stream reader notification.
type ProgressKind string

const (
	ProgressNotes       ProgressKind = "notes"
	ProgressFinalReport ProgressKind = "final_report"
	ProgressEvent       ProgressKind = "event"
	ProgressSkip        ProgressKind = "skip"
)

// Progress is one notification emitted while a response stream is read.
type Progress struct {
	Kind ProgressKind
	// Notes holds the batch for ProgressNotes.
	Notes []string
	// Name holds the event name for ProgressEvent.
	Name string
	// Line holds the offending line for ProgressSkip.
	Line string
	Err  error
	// ReportLength is set for ProgressFinalReport.
	ReportLength int
}

// ProgressObserver receives stream reader notifications. Implementations must not block.
type ProgressObserver interface {
	OnProgress(ctx context.Context, p Progress)
}
