// Package agent talks to the deep-research agent service over HTTP.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
	"github.com/marutilai/open-deep-research/internal/stream"
)

const (
	runsStreamPath = "/runs/stream"
	docsPath       = "/docs"
	assistantsPath = "/assistants/"

	maxErrorBodyBytes = 64 * 1024
)

// Client implements domain.AgentClient against the agent's HTTP API.
type Client struct {
	baseURL     string
	assistantID string
	timeout     time.Duration
	pingTimeout time.Duration
	httpClient  *http.Client
	reader      *stream.Reader
}

// NewClient creates a new agent client.
func NewClient(cfg *config.AgentConfig, reader *stream.Reader) *Client {
	if reader == nil {
		reader = stream.NewReader()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		assistantID: cfg.AssistantID,
		timeout:     cfg.RequestTimeout(),
		pingTimeout: time.Duration(cfg.PingTimeout) * time.Second,
		// Per-call budgets come from contexts; a client-wide timeout would cut long streams.
		httpClient: &http.Client{},
		reader:     reader,
	}
}

// runRequest is the body of a streamed run.
type runRequest struct {
	AssistantID string                 `json:"assistant_id"`
	Input       runInput               `json:"input"`
	Config      runConfig              `json:"config"`
	StreamMode  []string               `json:"stream_mode"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type runInput struct {
	Messages []domain.Message `json:"messages"`
}

type runConfig struct {
	Configurable map[string]interface{} `json:"configurable,omitempty"`
}

// Research runs one research task and reads its stream to the final report.
func (c *Client) Research(ctx context.Context, req *domain.ResearchRequest) (*domain.StreamResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if req.Prompt == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling research agent",
		observability.String("assistant_id", c.assistantID),
		observability.Duration("timeout", timeout))

	//nolint:bodyclose // closed below once the stream has been read
	resp, err := c.executeStreamRequest(callCtx, req)
	if err != nil {
		return nil, c.classify(ctx, callCtx, timeout, nil, err)
	}
	defer resp.Body.Close()

	result, err := c.reader.Read(callCtx, resp.Body)
	if err != nil {
		if errors.Is(err, domain.ErrIncomplete) {
			return nil, err
		}
		var notes []string
		if result != nil {
			notes = result.Notes
		}
		return nil, c.classify(ctx, callCtx, timeout, notes, err)
	}

	logger.Debug("research agent call succeeded",
		observability.Int("notes", len(result.Notes)),
		observability.Int("report_length", len(result.FinalReport)),
		observability.Int("skipped_lines", result.Skipped))

	return result, nil
}

// executeStreamRequest creates and executes the HTTP request for streaming.
func (c *Client) executeStreamRequest(ctx context.Context, req *domain.ResearchRequest) (*http.Response, error) {
	body := runRequest{
		AssistantID: c.assistantID,
		Input: runInput{
			Messages: []domain.Message{{Role: "user", Content: req.Prompt}},
		},
		Config:     runConfig{Configurable: req.Configurable},
		StreamMode: []string{"values"},
	}
	if runID := observability.GetRunID(ctx); runID != "" {
		body.Metadata = map[string]interface{}{"run_id": runID}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+runsStreamPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = resp.Body.Close()
		return nil, domain.NewRemoteError(resp.StatusCode, string(errBody))
	}

	return resp, nil
}

// classify maps transport and read failures onto research error kinds.
func (c *Client) classify(parent, callCtx context.Context, timeout time.Duration, notes []string, err error) error {
	var researchErr *domain.ResearchError
	if errors.As(err, &researchErr) {
		return err
	}

	if parent.Err() != nil {
		return parent.Err()
	}

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return domain.NewTimeoutError(timeout, notes, err)
	}

	return domain.NewConnectionError(notes, err)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Ping checks that the agent service answers HTTP requests at all.
func (c *Client) Ping(ctx context.Context) error {
	if c.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pingTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+docsPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.NewConnectionError(nil, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return nil
}

// AssistantInfo describes an assistant registered with the agent service.
type AssistantInfo struct {
	AssistantID string
	GraphID     string
	Name        string
	// Defaults holds the default of every configurable property.
	Defaults map[string]interface{}
}

// AssistantInfo fetches an assistant and its configurable defaults.
func (c *Client) AssistantInfo(ctx context.Context, id string) (*AssistantInfo, error) {
	if id == "" {
		id = c.assistantID
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+assistantsPath+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewConnectionError(nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, stream.MaxLineSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read assistant: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewRemoteError(resp.StatusCode, string(body))
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.New("assistant response is not valid JSON")
	}

	parsed := gjson.ParseBytes(body)
	info := &AssistantInfo{
		AssistantID: parsed.Get("assistant_id").String(),
		GraphID:     parsed.Get("graph_id").String(),
		Name:        parsed.Get("name").String(),
		Defaults:    make(map[string]interface{}),
	}

	parsed.Get("config_schema.properties").ForEach(func(key, value gjson.Result) bool {
		if def := value.Get("default"); def.Exists() {
			info.Defaults[key.String()] = def.Value()
		}
		return true
	})

	return info, nil
}
