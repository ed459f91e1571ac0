package domain

import (
	"errors"
	"fmt"
	"time"
)

// UnknownTask labels records that were recorded without a task.
const UnknownTask = "unknown"

// ErrInvalidUsage indicates negative token counts or duration.
var ErrInvalidUsage = errors.New("invalid usage")

// FallbackPrice prices every record when Summarize receives a nil table.
// Callers with a configured table, such as pricing.Default, never hit it.
//
//nolint:gochecknoglobals // read-only pricing constant
var FallbackPrice = ModelPrice{Input: 1.0, Output: 2.0}

// CostLedger accumulates usage records for one tracking session.
//
// A ledger is owned by its caller and is not safe for concurrent mutation.
// Concurrent calls either serialize Record or use one ledger each and combine
// the results with MergeSummaries.
type CostLedger struct {
	records []UsageRecord
	start   time.Time
	now     func() time.Time
}

// LedgerOption configures a CostLedger.
type LedgerOption func(*CostLedger)

// WithClock overrides the ledger's time source.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *CostLedger) {
		l.now = now
	}
}

// NewCostLedger creates an empty ledger whose session starts now.
func NewCostLedger(opts ...LedgerOption) *CostLedger {
	l := &CostLedger{
		records: nil,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.start = l.now()
	return l
}

// Record appends the usage of one completed call.
func (l *CostLedger) Record(
	model string,
	inputTokens, outputTokens int64,
	duration time.Duration,
	task string,
) error {
	if inputTokens < 0 || outputTokens < 0 {
		return fmt.Errorf("%w: negative token count for model %s", ErrInvalidUsage, model)
	}
	if duration < 0 {
		return fmt.Errorf("%w: negative duration for model %s", ErrInvalidUsage, model)
	}

	l.records = append(l.records, UsageRecord{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Timestamp:    l.now(),
		Duration:     duration,
		Task:         task,
	})
	return nil
}

// Reset clears all records and restarts the session clock.
func (l *CostLedger) Reset() {
	l.records = nil
	l.start = l.now()
}

// Records returns a copy of the recorded usage.
func (l *CostLedger) Records() []UsageRecord {
	out := make([]UsageRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *CostLedger) Len() int {
	return len(l.records)
}

// StartedAt returns the start of the current session.
func (l *CostLedger) StartedAt() time.Time {
	return l.start
}

// Summarize computes totals and per-model and per-task breakdowns.
// Costs are recomputed from every record on each call. A nil table means
// FallbackPrice for every model; it never consults the table's default entry.
func (l *CostLedger) Summarize(table *PricingTable) CostSummary {
	summary := newCostSummary()

	for _, record := range l.records {
		var cost float64
		if table != nil {
			cost = table.RecordCost(record)
		} else {
			cost = FallbackPrice.Cost(record.InputTokens, record.OutputTokens)
		}

		stats := UsageStats{
			InputTokens:  record.InputTokens,
			OutputTokens: record.OutputTokens,
			Cost:         cost,
			Calls:        1,
			Duration:     record.Duration.Seconds(),
		}

		summary.TotalInputTokens += stats.InputTokens
		summary.TotalOutputTokens += stats.OutputTokens
		summary.TotalCost += stats.Cost
		summary.TotalDuration += stats.Duration

		task := record.Task
		if task == "" {
			task = UnknownTask
		}

		addStats(summary.ByModel, record.Model, stats)
		addStats(summary.ByTask, task, stats)
	}

	now := l.now()
	summary.TotalTime = now.Sub(l.start).Seconds()
	summary.Timestamp = now

	return summary
}

// MergeSummaries combines summaries produced by independent ledgers.
// TotalTime is the longest input session; Timestamp is the latest.
func MergeSummaries(summaries ...CostSummary) CostSummary {
	merged := newCostSummary()

	for _, s := range summaries {
		merged.TotalInputTokens += s.TotalInputTokens
		merged.TotalOutputTokens += s.TotalOutputTokens
		merged.TotalCost += s.TotalCost
		merged.TotalDuration += s.TotalDuration

		for model, stats := range s.ByModel {
			addStats(merged.ByModel, model, *stats)
		}
		for task, stats := range s.ByTask {
			addStats(merged.ByTask, task, *stats)
		}

		if s.TotalTime > merged.TotalTime {
			merged.TotalTime = s.TotalTime
		}
		if s.Timestamp.After(merged.Timestamp) {
			merged.Timestamp = s.Timestamp
		}
	}

	return merged
}

func newCostSummary() CostSummary {
	return CostSummary{
		ByModel: make(map[string]*UsageStats),
		ByTask:  make(map[string]*UsageStats),
	}
}

func addStats(group map[string]*UsageStats, key string, stats UsageStats) {
	current, ok := group[key]
	if !ok {
		current = &UsageStats{}
		group[key] = current
	}
	current.add(stats)
}
