package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/provider/openai"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4.1-mini-2025-04-14",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  Acme faces supply risk.  "}
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

type capturedRequest struct {
	path     string
	auth     string
	model    string
	messages int
}

func newChatServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")

		var payload struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		captured.model = payload.Model
		captured.messages = len(payload.Messages)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func TestNewSummarizer(t *testing.T) {
	tests := []struct {
		name    string
		config  openai.Config
		wantErr string
		model   string
	}{
		{
			name:   "uses the configured model",
			config: openai.Config{APIKey: "key", SummaryModel: "gpt-4o-mini"},
			model:  "gpt-4o-mini",
		},
		{
			name:   "falls back to the default model",
			config: openai.Config{APIKey: "key"},
			model:  "gpt-4.1-mini",
		},
		{
			name:    "requires an API key",
			config:  openai.Config{},
			wantErr: "OpenAI API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summarizer, err := openai.NewSummarizer(tt.config)

			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				require.Nil(t, summarizer)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.model, summarizer.Model())
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	require.False(t, openai.Config{}.Enabled())
	require.True(t, openai.Config{APIKey: "k"}.Enabled())
}

func TestSummarizer_Summarize(t *testing.T) {
	t.Run("should return the summary with its usage", func(t *testing.T) {
		srv, captured := newChatServer(t, http.StatusOK, completionBody)
		summarizer, err := openai.NewSummarizer(openai.Config{
			APIKey:       "test-key",
			BaseURL:      srv.URL + "/v1/",
			SummaryModel: "gpt-4.1-mini",
		})
		require.NoError(t, err)

		summary, err := summarizer.Summarize(context.Background(), "Acme", "watch_factors", "A long report.")

		require.NoError(t, err)
		require.Equal(t, "Acme faces supply risk.", summary.Text)
		require.Equal(t, "gpt-4.1-mini-2025-04-14", summary.Model)
		require.Equal(t, int64(120), summary.InputTokens)
		require.Equal(t, int64(30), summary.OutputTokens)
		require.GreaterOrEqual(t, summary.Duration.Nanoseconds(), int64(0))

		require.Equal(t, "/v1/chat/completions", captured.path)
		require.Equal(t, "Bearer test-key", captured.auth)
		require.Equal(t, "gpt-4.1-mini", captured.model)
		require.Equal(t, 2, captured.messages)
	})

	t.Run("should fail on an API error", func(t *testing.T) {
		srv, _ := newChatServer(t, http.StatusBadRequest,
			`{"error": {"message": "bad request", "type": "invalid_request_error"}}`)
		summarizer, err := openai.NewSummarizer(openai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
		require.NoError(t, err)

		_, err = summarizer.Summarize(context.Background(), "Acme", "watch_factors", "report")

		require.ErrorContains(t, err, "OpenAI API call failed")
	})

	t.Run("should fail when no choices are returned", func(t *testing.T) {
		srv, _ := newChatServer(t, http.StatusOK,
			`{"id": "x", "object": "chat.completion", "model": "m", "choices": [], "usage": {}}`)
		summarizer, err := openai.NewSummarizer(openai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
		require.NoError(t, err)

		_, err = summarizer.Summarize(context.Background(), "Acme", "watch_factors", "report")

		require.ErrorContains(t, err, "no choices")
	})

	t.Run("should reject an empty report", func(t *testing.T) {
		summarizer, err := openai.NewSummarizer(openai.Config{APIKey: "k"})
		require.NoError(t, err)

		_, err = summarizer.Summarize(context.Background(), "Acme", "watch_factors", "  ")

		require.ErrorContains(t, err, "report cannot be empty")
	})
}
