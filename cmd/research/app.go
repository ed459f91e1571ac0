package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/dig"
	"golang.org/x/term"

	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
	"github.com/marutilai/open-deep-research/internal/report"
)

const agentStartHint = "make sure the agent service is running, e.g. " +
	"`langgraph dev --allow-blocking` from the open_deep_research checkout"

// application runs one research session from the command line.
type application struct {
	opts     *cliOptions
	agentCfg *config.AgentConfig
	research *config.ResearchConfig
	agent    domain.AgentClient
	service  *domain.ResearchService
	writer   *report.Writer
	out      io.Writer
	isTTY    bool
}

type applicationParams struct {
	dig.In

	Opts     *cliOptions
	AgentCfg *config.AgentConfig
	Research *config.ResearchConfig
	Agent    domain.AgentClient
	Service  *domain.ResearchService
	Writer   *report.Writer
}

func newApplication(p applicationParams) *application {
	return &application{
		opts:     p.Opts,
		agentCfg: p.AgentCfg,
		research: p.Research,
		agent:    p.Agent,
		service:  p.Service,
		writer:   p.Writer,
		out:      os.Stdout,
		isTTY:    term.IsTerminal(int(os.Stdout.Fd())),
	}
}

type runOutput struct {
	RunID      string             `json:"run_id"`
	Company    string             `json:"company"`
	Ticker     string             `json:"ticker,omitempty"`
	Mode       domain.Mode        `json:"mode"`
	Angles     []angleOutput      `json:"angles"`
	Successful int                `json:"successful"`
	Findings   int                `json:"total_findings"`
	Files      *report.Saved      `json:"files,omitempty"`
	Cost       domain.CostSummary `json:"cost"`
}

type angleOutput struct {
	Angle     domain.Angle     `json:"angle"`
	Quality   domain.Quality   `json:"quality"`
	Findings  int              `json:"findings"`
	Cached    bool             `json:"cached"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
}

func (a *application) run(ctx context.Context) error {
	samples, err := loadSamples(a.research.SamplesFile)
	if err != nil {
		return err
	}

	if a.opts.listSamples {
		fmt.Fprintln(a.out, "Sample companies available:")
		for i, company := range samples {
			fmt.Fprintf(a.out, "  %d. %s\n", i+1, company)
		}
		return nil
	}

	company, err := resolveCompany(a.opts, samples)
	if err != nil {
		return err
	}

	angles, err := domain.ParseAngles(a.opts.angles)
	if err != nil {
		return err
	}

	mode, err := domain.ParseMode(a.research.Mode)
	if err != nil {
		return err
	}

	if err := a.agent.Ping(ctx); err != nil {
		return fmt.Errorf("cannot connect to agent at %s: %w; %s", a.agentCfg.BaseURL, err, agentStartHint)
	}

	logger := observability.FromContext(ctx)
	logger.Info("starting research",
		observability.String("company", company),
		observability.Strings("angles", angleNames(angles)),
		observability.String("mode", string(mode)),
		observability.String("api_url", a.agentCfg.BaseURL))

	session, runErr := a.service.Run(ctx, company, angles, mode, a.opts.forceRefresh)
	if session == nil {
		return runErr
	}

	var saved *report.Saved
	if len(session.Results) > 0 {
		// Save with a fresh context so an interrupted run still keeps its partial results.
		saved, err = a.writer.Save(context.WithoutCancel(ctx), session, a.opts.createIntegration)
		if err != nil {
			return errors.Join(runErr, err)
		}
	}

	if err := a.print(session, saved); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}

func (a *application) print(session *domain.Session, saved *report.Saved) error {
	output := runOutput{
		RunID:      session.RunID,
		Company:    session.Company,
		Ticker:     session.Ticker,
		Mode:       session.Mode,
		Angles:     make([]angleOutput, 0, len(session.Results)),
		Successful: session.Successful(),
		Findings:   session.TotalFindings(),
		Files:      saved,
		Cost:       session.Cost,
	}
	for _, r := range session.Results {
		output.Angles = append(output.Angles, angleOutput{
			Angle:     r.ResearchAngle,
			Quality:   r.ResearchQuality,
			Findings:  len(r.Findings),
			Cached:    r.Cached,
			ErrorKind: r.ErrorKind,
		})
	}

	if a.opts.jsonOutput || !a.isTTY {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return nil
	}

	return printText(a.out, output)
}

func printText(w io.Writer, output runOutput) error {
	rule := strings.Repeat("=", 60)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nM&A Research Complete: %s\n", rule, output.Company)
	if output.Ticker != "" {
		fmt.Fprintf(&b, "Ticker: %s\n", output.Ticker)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Successful researches: %d/%d\n", output.Successful, len(output.Angles))
	fmt.Fprintf(&b, "Total findings extracted: %d\n", output.Findings)

	b.WriteString("\nResearch Quality:\n")
	for _, angle := range output.Angles {
		status := string(angle.Quality)
		if angle.Cached {
			status += " (cached)"
		}
		if angle.ErrorKind != "" {
			status += " [" + string(angle.ErrorKind) + "]"
		}
		fmt.Fprintf(&b, "  %s: %s, %d findings\n", angle.Angle.Title(), status, angle.Findings)
	}

	if output.Files != nil {
		fmt.Fprintf(&b, "\nResults saved to: %s\n", output.Files.Dir)
		fmt.Fprintf(&b, "  - Summary: %s\n", output.Files.SummaryFile)
		if output.Files.ContextFile != "" {
			fmt.Fprintf(&b, "  - Integration context: %s\n", output.Files.ContextFile)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return domain.FormatSummary(w, output.Cost)
}

func angleNames(angles []domain.Angle) []string {
	names := make([]string, len(angles))
	for i, a := range angles {
		names[i] = string(a)
	}
	return names
}
