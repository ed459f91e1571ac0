// Package echo provides a fake research agent that echoes its prompt back.
// It speaks the same HTTP and event-stream protocol as the real agent service
// without making external calls, for tests and local development.
package echo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

const (
	assistantName  = "Deep Researcher"
	modelName      = "echo4"
	defaultDelay   = 10 * time.Millisecond
	wordsPerBatch  = 8
	maxNoteBatches = 3
)

// Handler emulates the agent service endpoints.
type Handler struct {
	delay      time.Duration
	withReport bool
	mux        *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithDelay sets the pause between streamed events.
func WithDelay(d time.Duration) Option {
	return func(h *Handler) {
		h.delay = d
	}
}

// WithoutFinalReport makes every stream end before the final report.
func WithoutFinalReport() Option {
	return func(h *Handler) {
		h.withReport = false
	}
}

// NewHandler creates a new echo agent.
// No configuration is required as it operates entirely in-memory.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		delay:      defaultDelay,
		withReport: true,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("/runs/stream", h.handleRunStream)
	h.mux.HandleFunc("/docs", h.handleDocs)
	h.mux.HandleFunc("/assistants/", h.handleAssistant)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type runRequest struct {
	AssistantID string `json:"assistant_id"`
	Input       struct {
		Messages []domain.Message `json:"messages"`
	} `json:"input"`
	Config struct {
		Configurable map[string]interface{} `json:"configurable"`
	} `json:"config"`
}

func (h *Handler) handleRunStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Input.Messages) == 0 {
		http.Error(w, "input.messages cannot be empty", http.StatusUnprocessableEntity)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	report := buildEchoContent(req.Input.Messages)
	model, _ := req.Config.Configurable["research_model"].(string)
	if model == "" {
		model = modelName
	}

	send := func(payload map[string]interface{}) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(h.delay):
		}

		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: values\ndata: %s\n\n", data)
		flusher.Flush()
		return true
	}

	brief := "Echo research on: " + firstLine(req.Input.Messages[len(req.Input.Messages)-1].Content)
	if !send(map[string]interface{}{"research_brief": brief}) {
		return
	}

	for _, batch := range noteBatches(report) {
		if !send(map[string]interface{}{"notes": batch}) {
			return
		}
	}

	if !h.withReport {
		logger.Debug("echo stream closed without final report")
		return
	}

	promptTokens := countTokens(report)
	send(map[string]interface{}{
		"final_report": report,
		"cost_tracking": map[string]interface{}{
			"total_cost":          0.0,
			"total_input_tokens":  promptTokens,
			"total_output_tokens": promptTokens,
			"by_model": map[string]interface{}{
				model: map[string]interface{}{
					"input_tokens":  promptTokens,
					"output_tokens": promptTokens,
					"cost":          0.0,
					"calls":         1,
				},
			},
		},
	})

	logger.Debug("echo stream completed", observability.Int("tokens", promptTokens))
}

func (h *Handler) handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body>echo agent</body></html>"))
}

func (h *Handler) handleAssistant(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/assistants/")
	if id == "" {
		http.Error(w, "assistant not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"assistant_id": id,
		"graph_id":     "deep_researcher",
		"name":         assistantName,
		"config_schema": map[string]interface{}{
			"properties": map[string]interface{}{
				"search_api":                map[string]interface{}{"default": "openai"},
				"research_model":            map[string]interface{}{"default": "openai:" + modelName},
				"max_researcher_iterations": map[string]interface{}{"default": 3},
				"allow_clarification":       map[string]interface{}{"default": true},
				"mcp_config":                map[string]interface{}{"type": "object"},
			},
		},
	})
}

// buildEchoContent constructs the echo report from request messages.
func buildEchoContent(messages []domain.Message) string {
	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
	}
	return builder.String()
}

// noteBatches splits content into a few groups of words.
func noteBatches(content string) [][]string {
	words := strings.Fields(content)
	batches := make([][]string, 0, maxNoteBatches)
	for i := 0; i < len(words) && len(batches) < maxNoteBatches; i += wordsPerBatch {
		end := min(i+wordsPerBatch, len(words))
		batches = append(batches, []string{strings.Join(words[i:end], " ")})
	}
	return batches
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
