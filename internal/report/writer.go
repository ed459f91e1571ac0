// Package report persists research sessions and reads them back for the viewer.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

const (
	timestampLayout = "20060102_150405"
	displayLayout   = "2006-01-02 15:04"

	summaryPrefix     = "ma_research_summary_"
	contextPrefix     = "system_context_"
	costSummaryPrefix = "cost_summary_"
	rawSuffix         = "_raw.md"
)

// Slug turns a company name into its output directory name.
func Slug(company string) string {
	slug := strings.ToLower(strings.TrimSpace(company))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, ".", "")
	slug = strings.ReplaceAll(slug, string(filepath.Separator), "_")
	return slug
}

// Writer saves sessions under an output directory, one subdirectory per company.
type Writer struct {
	dir string
	now func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithNow overrides the clock used for file timestamps.
func WithNow(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter creates a new report writer.
func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Saved lists the files written for one session.
type Saved struct {
	Dir             string   `json:"dir"`
	AngleFiles      []string `json:"angle_files"`
	RawFiles        []string `json:"raw_files"`
	SummaryFile     string   `json:"summary_file"`
	ContextFile     string   `json:"context_file,omitempty"`
	CostSummaryFile string   `json:"cost_summary_file"`
}

// Save writes every angle result, the markdown summary, the cost summary and,
// when integration is set, a system context file for document review assistants.
func (w *Writer) Save(ctx context.Context, session *domain.Session, integration bool) (*Saved, error) {
	now := w.now()
	ts := now.Format(timestampLayout)
	companyDir := filepath.Join(w.dir, Slug(session.Company))

	if err := os.MkdirAll(companyDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create company directory: %w", err)
	}

	saved := &Saved{Dir: companyDir}

	for _, result := range session.Results {
		base := fmt.Sprintf("%s_%s", result.ResearchAngle, ts)

		stored := *result
		stored.RawResearch = ""
		angleFile := filepath.Join(companyDir, base+".json")
		if err := writeJSON(angleFile, &stored); err != nil {
			return nil, err
		}
		saved.AngleFiles = append(saved.AngleFiles, angleFile)

		if result.RawResearch != "" {
			rawFile := filepath.Join(companyDir, base+rawSuffix)
			if err := os.WriteFile(rawFile, []byte(result.RawResearch), 0o644); err != nil {
				return nil, fmt.Errorf("failed to write raw report: %w", err)
			}
			saved.RawFiles = append(saved.RawFiles, rawFile)
		}
	}

	saved.SummaryFile = filepath.Join(companyDir, summaryPrefix+ts+".md")
	if err := os.WriteFile(saved.SummaryFile, []byte(renderSummary(session, now)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	if integration {
		saved.ContextFile = filepath.Join(companyDir, contextPrefix+ts+".md")
		if err := os.WriteFile(saved.ContextFile, []byte(renderSystemContext(session, now)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write system context: %w", err)
		}
	}

	saved.CostSummaryFile = filepath.Join(companyDir, costSummaryPrefix+ts+".json")
	if err := writeJSON(saved.CostSummaryFile, session.Cost); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Info("research results saved",
		observability.String("dir", companyDir),
		observability.Int("angles", len(saved.AngleFiles)),
		observability.Bool("integration", integration))

	return saved, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func renderSummary(session *domain.Session, now time.Time) string {
	var totalFindings, critical, high, opportunities int
	titles := make([]string, 0, len(session.Results))
	for _, r := range session.Results {
		titles = append(titles, r.ResearchAngle.Title())
		for _, f := range r.Findings {
			totalFindings++
			switch {
			case f.Category == "Risk" && f.Severity == "Critical":
				critical++
			case f.Category == "Risk" && f.Severity == "High":
				high++
			case f.Category == "Opportunity":
				opportunities++
			}
		}
	}

	var b strings.Builder
	b.WriteString("# M&A Deep Research: " + session.Company)
	if session.Ticker != "" {
		b.WriteString(" (" + session.Ticker + ")")
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Research Date:** %s\n", now.Format(displayLayout))
	b.WriteString("**Research API:** Local Open Deep Research\n")
	fmt.Fprintf(&b, "**Research Mode:** %s\n", session.Mode)
	fmt.Fprintf(&b, "**Research Angles:** %s\n\n", strings.Join(titles, ", "))

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "- **Total Findings:** %d\n", totalFindings)
	fmt.Fprintf(&b, "- **Critical Risks:** %d\n", critical)
	fmt.Fprintf(&b, "- **High Risks:** %d\n", high)
	fmt.Fprintf(&b, "- **Opportunities:** %d\n", opportunities)
	fmt.Fprintf(&b, "- **Estimated Cost:** $%.3f\n\n", session.Cost.TotalCost)

	for _, r := range session.Results {
		fmt.Fprintf(&b, "## %s\n\n", r.ResearchAngle.Title())
		if r.Summary != "" {
			fmt.Fprintf(&b, "**Summary:** %s\n\n", r.Summary)
		}
		fmt.Fprintf(&b, "**Research Quality:** %s\n\n", r.ResearchQuality)
		if r.RawResearch != "" {
			b.WriteString("### Full Research Report\n\n")
			b.WriteString(r.RawResearch)
			b.WriteString("\n\n")
		}
		b.WriteString("---\n\n")
	}

	return b.String()
}

func renderSystemContext(session *domain.Session, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# System Context for %s VDR Analysis\n\n", session.Company)
	fmt.Fprintf(&b, "You are an AI assistant helping a user review documents for %s's Virtual Data Room (VDR). "+
		"The following external context has been compiled from public sources and should inform your "+
		"interpretation of document risk. Keep this context in mind for all questions:\n\n", session.Company)

	for _, r := range session.Results {
		if r.RawResearch == "" || r.ResearchQuality == domain.QualityLimited {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", r.ResearchAngle.Title())
		b.WriteString(r.RawResearch)
		b.WriteString("\n\n---\n\n")
	}

	fmt.Fprintf(&b, "*Context compiled: %s*\n", now.Format(displayLayout))
	return b.String()
}
