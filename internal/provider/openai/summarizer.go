// Package openai condenses research reports with the OpenAI chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

const (
	defaultSummaryModel = "gpt-4.1-mini"

	// maxReportRunes keeps very long reports inside the model context.
	maxReportRunes = 48_000
)

const systemPrompt = "You are an M&A analyst. Write a concise executive summary " +
	"of the research report you are given. Lead with the most material risks, " +
	"then opportunities. Use at most five sentences and no headings."

// Summarizer implements domain.Summarizer on top of chat completions.
type Summarizer struct {
	client    openai.Client
	model     string
	maxTokens int
	now       func() time.Time
}

// NewSummarizer creates a new OpenAI summarizer.
func NewSummarizer(config Config) (*Summarizer, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	model := config.SummaryModel
	if model == "" {
		model = defaultSummaryModel
	}

	return &Summarizer{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: config.SummaryMaxTokens,
		now:       time.Now,
	}, nil
}

// Model returns the chat model used for summaries.
func (s *Summarizer) Model() string {
	return s.model
}

// Summarize sends the report to the chat API and returns the summary with its usage.
func (s *Summarizer) Summarize(ctx context.Context, company, angle, report string) (*domain.Summary, error) {
	if strings.TrimSpace(report) == "" {
		return nil, errors.New("report cannot be empty")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API",
		observability.String("model", s.model),
		observability.String("angle", angle))

	start := s.now()
	resp, err := s.client.Chat.Completions.New(ctx, s.toSDKParams(company, angle, report))
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	duration := s.now().Sub(start)

	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI API returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, errors.New("OpenAI API returned an empty summary")
	}

	model := resp.Model
	if model == "" {
		model = s.model
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int64("prompt_tokens", resp.Usage.PromptTokens),
		observability.Int64("completion_tokens", resp.Usage.CompletionTokens),
		observability.Duration("duration", duration))

	return &domain.Summary{
		Text:         text,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Duration:     duration,
	}, nil
}

func (s *Summarizer) toSDKParams(company, angle, report string) openai.ChatCompletionNewParams {
	if r := []rune(report); len(r) > maxReportRunes {
		report = string(r[:maxReportRunes])
	}

	user := fmt.Sprintf("Company: %s\nResearch angle: %s\n\nReport:\n%s",
		company, domain.Angle(angle).Title(), report)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
	}

	if s.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(s.maxTokens))
	}

	return params
}
