package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/marutilai/open-deep-research/internal/observability"
)

// SummaryTask labels ledger records produced by the Summarizer.
const SummaryTask = "summary"

//nolint:gochecknoglobals // compiled once
var sourceURLPattern = regexp.MustCompile(`https?://[^\s)\]>"'<]+`)

// ResearchOptions tunes a ResearchService.
type ResearchOptions struct {
	// SearchAPI is forwarded to the agent as `search_api`.
	SearchAPI string
	// Pace is the minimum interval between agent calls. Zero disables pacing.
	Pace time.Duration
	// Timeout is the per-call budget; zero keeps the agent client's default.
	Timeout time.Duration
}

// ResearchService orchestrates research runs over several angles.
type ResearchService struct {
	agent      AgentClient
	cache      ResultCache
	estimator  TokenEstimator
	pricing    *PricingTable
	summarizer Summarizer
	events     EventPublisher
	limiter    *rate.Limiter
	opts       ResearchOptions
	now        func() time.Time
}

// NewResearchService creates a new research service (DI constructor).
// cache, summarizer and events may be nil. A nil pricing table prices every
// record at FallbackPrice.
func NewResearchService(
	agent AgentClient,
	cache ResultCache,
	estimator TokenEstimator,
	pricing *PricingTable,
	summarizer Summarizer,
	events EventPublisher,
	opts ResearchOptions,
) *ResearchService {
	limit := rate.Inf
	if opts.Pace > 0 {
		limit = rate.Every(opts.Pace)
	}

	return &ResearchService{
		agent:      agent,
		cache:      cache,
		estimator:  estimator,
		pricing:    pricing,
		summarizer: summarizer,
		events:     events,
		limiter:    rate.NewLimiter(limit, 1),
		opts:       opts,
		now:        time.Now,
	}
}

// Run researches company from each angle in order.
//
// A failed angle becomes a Limited result carrying its error kind and the run
// continues. Only cancellation of ctx aborts the run; the partial session is
// returned alongside the error.
func (s *ResearchService) Run(
	ctx context.Context,
	company string,
	angles []Angle,
	mode Mode,
	forceRefresh bool,
) (*Session, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, errors.New("company cannot be empty")
	}
	if len(angles) == 0 {
		return nil, errors.New("at least one angle is required")
	}
	if _, ok := modeConfigs[mode]; !ok {
		return nil, fmt.Errorf("unknown research mode %q", mode)
	}

	runID := observability.GenerateRunID()
	ctx = observability.WithRunID(ctx, runID)
	ctx = observability.WithCompany(ctx, company)
	logger := observability.FromContext(ctx)

	ledger := NewCostLedger(WithClock(s.now))
	session := &Session{
		RunID:     runID,
		Company:   company,
		Mode:      mode,
		Results:   make([]*AngleResult, 0, len(angles)),
		StartedAt: ledger.StartedAt(),
	}

	logger.Info("research run started",
		observability.String("mode", string(mode)),
		observability.Int("angles", len(angles)),
		observability.Bool("force_refresh", forceRefresh))

	var runErr error
	for i, angle := range angles {
		angleCtx := observability.WithAngle(ctx, string(angle))
		s.publish(angleCtx, "angle_started", map[string]interface{}{
			"index": i + 1,
			"total": len(angles),
		})

		result, err := s.researchAngle(angleCtx, ledger, company, angle, mode, forceRefresh)
		if err != nil {
			runErr = err
			break
		}

		session.Results = append(session.Results, result)
		if session.Ticker == "" && result.Ticker != "" {
			session.Ticker = result.Ticker
		}

		s.publish(angleCtx, "angle_finished", map[string]interface{}{
			"quality":  string(result.ResearchQuality),
			"findings": len(result.Findings),
			"cached":   result.Cached,
			"failed":   result.Failed(),
		})
	}

	session.Cost = ledger.Summarize(s.pricing)

	logger.Info("research run finished",
		observability.Int("results", len(session.Results)),
		observability.Int("successful", session.Successful()),
		observability.Int("findings", session.TotalFindings()),
		observability.Float64("total_cost", session.Cost.TotalCost))

	if runErr != nil {
		return session, runErr
	}
	return session, nil
}

// researchAngle returns an error only when ctx is done.
func (s *ResearchService) researchAngle(
	ctx context.Context,
	ledger *CostLedger,
	company string,
	angle Angle,
	mode Mode,
	forceRefresh bool,
) (*AngleResult, error) {
	logger := observability.FromContext(ctx)
	key := CacheKey(company, angle, mode)

	if !forceRefresh && s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil && cached != nil:
			logger.Info("cache HIT - using cached research", observability.String("key", key))
			cached.Cached = true
			return cached, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			logger.Warn("cache get failed, continuing without cache", observability.Error(err))
		}
	}

	prompt, err := angle.Prompt(company)
	if err != nil {
		return FailedAngleResult(company, angle, err, s.now()), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("research paused: %w", err)
	}

	req := &ResearchRequest{
		Prompt:       prompt,
		Configurable: mode.Configurable(s.opts.SearchAPI),
		Timeout:      s.opts.Timeout,
	}

	start := s.now()
	res, err := s.agent.Research(ctx, req)
	elapsed := s.now().Sub(start)
	if err == nil && (res == nil || res.FinalReport == "") {
		var notes []string
		if res != nil {
			notes = res.Notes
		}
		err = NewIncompleteError(notes)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("research call failed",
			observability.String("error_kind", string(KindOf(err))),
			observability.Duration("elapsed", elapsed),
			observability.Error(err))
		return FailedAngleResult(company, angle, err, s.now()), nil
	}

	s.recordResearchUsage(ctx, ledger, mode, angle, prompt, res, elapsed)

	result := BuildAngleResult(company, angle, res, s.now())

	if s.summarizer != nil && res.FinalReport != "" {
		summary, sumErr := s.summarizer.Summarize(ctx, company, string(angle), res.FinalReport)
		if sumErr != nil {
			logger.Warn("executive summary failed, keeping extracted summary", observability.Error(sumErr))
		} else {
			result.Summary = summary.Text
			if recErr := ledger.Record(summary.Model, summary.InputTokens, summary.OutputTokens,
				summary.Duration, SummaryTask); recErr != nil {
				logger.Warn("failed to record summary usage", observability.Error(recErr))
			}
		}
	}

	if s.cache != nil {
		stored := *result
		stored.RawResearch = ""
		if setErr := s.cache.Set(ctx, key, &stored); setErr != nil {
			logger.Warn("failed to store in cache", observability.Error(setErr))
		}
	}

	return result, nil
}

// recordResearchUsage prefers the agent's own token totals and falls back to estimates.
func (s *ResearchService) recordResearchUsage(
	ctx context.Context,
	ledger *CostLedger,
	mode Mode,
	angle Angle,
	prompt string,
	res *StreamResult,
	elapsed time.Duration,
) {
	logger := observability.FromContext(ctx)
	model := mode.Config().ResearchModel

	var inputTokens, outputTokens int64
	estimated := false

	switch {
	case res.CostTracking != nil && res.CostTracking.TotalInputTokens != nil && res.CostTracking.TotalOutputTokens != nil:
		inputTokens = *res.CostTracking.TotalInputTokens
		outputTokens = *res.CostTracking.TotalOutputTokens
	case s.estimator != nil:
		estimated = true
		inputTokens = int64(s.estimator.EstimateMessages([]Message{{Role: "user", Content: prompt}}, model))
		outputTokens = int64(s.estimator.Estimate(res.FinalReport, model))
	default:
		logger.Debug("no usage available for research call")
		return
	}

	if err := ledger.Record(model, inputTokens, outputTokens, elapsed, string(angle)); err != nil {
		logger.Warn("failed to record research usage", observability.Error(err))
		return
	}

	logger.Info("research usage recorded",
		observability.String("model", model),
		observability.Int64("input_tokens", inputTokens),
		observability.Int64("output_tokens", outputTokens),
		observability.Bool("estimated", estimated))
}

func (s *ResearchService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events != nil {
		s.events.Publish(ctx, eventType, data)
	}
}

// BuildAngleResult turns a completed stream into an AngleResult.
func BuildAngleResult(company string, angle Angle, res *StreamResult, at time.Time) *AngleResult {
	report := res.FinalReport

	dataPoints := map[string]interface{}{
		"report_length": len(report),
		"notes_count":   len(res.Notes),
	}
	if res.ResearchBrief != "" {
		dataPoints["research_brief"] = res.ResearchBrief
	}
	if res.CostTracking != nil {
		dataPoints["agent_total_cost"] = res.CostTracking.TotalCost
	}

	return &AngleResult{
		CompanyName:       company,
		Ticker:            ExtractTicker(report),
		ResearchAngle:     angle,
		Summary:           SummarizeReport(report),
		Findings:          ExtractFindings(report, angle),
		DataPoints:        dataPoints,
		SourcesConsulted:  extractSources(report),
		ResearchTimestamp: at,
		ResearchQuality:   QualityFor(len(report)),
		RawResearch:       report,
	}
}

// FailedAngleResult records a failed agent call as a Limited result.
func FailedAngleResult(company string, angle Angle, err error, at time.Time) *AngleResult {
	return &AngleResult{
		CompanyName:       company,
		ResearchAngle:     angle,
		Summary:           "Research failed: " + err.Error(),
		Findings:          []Finding{},
		DataPoints:        map[string]interface{}{"error": err.Error()},
		SourcesConsulted:  []string{},
		ResearchTimestamp: at,
		ResearchQuality:   QualityLimited,
		ErrorKind:         KindOf(err),
	}
}

func extractSources(report string) []string {
	sources := make([]string, 0)
	seen := make(map[string]bool)
	for _, u := range sourceURLPattern.FindAllString(report, -1) {
		u = strings.TrimRight(u, ".,;:")
		if !seen[u] {
			seen[u] = true
			sources = append(sources, u)
		}
	}
	return sources
}
