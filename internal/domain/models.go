package domain

import "time"

// Message represents a chat message sent to the research agent.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// UsageRecord is the token usage of a single completed call.
// Records are created by CostLedger and never mutated.
type UsageRecord struct {
	Model        string        `json:"model"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Timestamp    time.Time     `json:"timestamp"`
	Duration     time.Duration `json:"duration"`
	Task         string        `json:"task,omitempty"`
}

// UsageStats aggregates usage for one model or one task.
type UsageStats struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	Calls        int     `json:"calls"`
	Duration     float64 `json:"duration"` // seconds
}

func (s *UsageStats) add(other UsageStats) {
	s.InputTokens += other.InputTokens
	s.OutputTokens += other.OutputTokens
	s.Cost += other.Cost
	s.Calls += other.Calls
	s.Duration += other.Duration
}

// CostSummary is derived from the ledger records and a pricing table on demand.
type CostSummary struct {
	TotalInputTokens  int64                  `json:"total_input_tokens"`
	TotalOutputTokens int64                  `json:"total_output_tokens"`
	TotalCost         float64                `json:"total_cost"`
	TotalDuration     float64                `json:"total_duration"` // summed call seconds
	ByModel           map[string]*UsageStats `json:"by_model"`
	ByTask            map[string]*UsageStats `json:"by_task"`
	TotalTime         float64                `json:"total_time"` // wall-clock seconds since start or reset
	Timestamp         time.Time              `json:"timestamp"`
}

// CostTracking is the usage snapshot the agent service may embed in a stream event.
type CostTracking struct {
	TotalCost         float64               `json:"total_cost"`
	TotalInputTokens  *int64                `json:"total_input_tokens,omitempty"`
	TotalOutputTokens *int64                `json:"total_output_tokens,omitempty"`
	ByModel           map[string]UsageStats `json:"by_model,omitempty"`
}

// StreamEvent is the decoded payload of one `data:` line.
// Every field is optional; unknown keys are ignored.
type StreamEvent struct {
	Notes         []string      `json:"notes,omitempty"`
	FinalReport   *string       `json:"final_report,omitempty"`
	CostTracking  *CostTracking `json:"cost_tracking,omitempty"`
	ResearchBrief *string       `json:"research_brief,omitempty"`
}

// StreamResult is the logical result reconstructed from a response stream.
type StreamResult struct {
	Notes         []string      `json:"notes"`
	FinalReport   string        `json:"final_report"`
	CostTracking  *CostTracking `json:"cost_tracking,omitempty"`
	ResearchBrief string        `json:"research_brief,omitempty"`

	Lines   int   `json:"lines"`
	Bytes   int64 `json:"bytes"`
	Events  int   `json:"events"`
	Skipped int   `json:"skipped"`
}

// ResearchRequest describes one call to the research agent.
type ResearchRequest struct {
	Prompt       string                 `json:"prompt"`
	Configurable map[string]interface{} `json:"configurable,omitempty"`

	// Timeout overrides the client default when positive.
	Timeout time.Duration `json:"-"`
}
