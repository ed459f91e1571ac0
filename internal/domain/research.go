package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Mode selects the depth of a research run.
type Mode string

const (
	// ModeFast uses small models and few iterations.
	ModeFast Mode = "fast"
	// ModeBalanced is the default trade-off.
	ModeBalanced Mode = "balanced"
	// ModeComprehensive iterates longest.
	ModeComprehensive Mode = "comprehensive"
)

// ModeConfig holds the agent knobs of a research mode.
type ModeConfig struct {
	ResearchModel              string `json:"research_model"`
	FinalReportModel           string `json:"final_report_model"`
	MaxResearcherIterations    int    `json:"max_researcher_iterations"`
	MaxConcurrentResearchUnits int    `json:"max_concurrent_research_units"`
}

//nolint:gochecknoglobals // static mode table
var modeConfigs = map[Mode]ModeConfig{
	ModeFast: {
		ResearchModel:              "openai:gpt-4.1-mini",
		FinalReportModel:           "openai:gpt-4.1-mini",
		MaxResearcherIterations:    2,
		MaxConcurrentResearchUnits: 3,
	},
	ModeBalanced: {
		ResearchModel:              "openai:gpt-4.1",
		FinalReportModel:           "openai:gpt-4.1",
		MaxResearcherIterations:    3,
		MaxConcurrentResearchUnits: 5,
	},
	ModeComprehensive: {
		ResearchModel:              "openai:gpt-4.1",
		FinalReportModel:           "openai:gpt-4.1",
		MaxResearcherIterations:    4,
		MaxConcurrentResearchUnits: 5,
	},
}

// ParseMode validates a mode name.
func ParseMode(name string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := modeConfigs[mode]; !ok {
		return "", fmt.Errorf("unknown research mode %q (want fast, balanced or comprehensive)", name)
	}
	return mode, nil
}

// Config returns the agent knobs for the mode.
func (m Mode) Config() ModeConfig {
	return modeConfigs[m]
}

// Configurable builds the `config.configurable` block sent to the agent service.
func (m Mode) Configurable(searchAPI string) map[string]interface{} {
	cfg := m.Config()
	return map[string]interface{}{
		"search_api":                    searchAPI,
		"allow_clarification":           false,
		"research_model":                cfg.ResearchModel,
		"final_report_model":            cfg.FinalReportModel,
		"max_researcher_iterations":     cfg.MaxResearcherIterations,
		"max_concurrent_research_units": cfg.MaxConcurrentResearchUnits,
	}
}

// Angle is one research perspective on a company.
type Angle string

const (
	AngleExternalRiskSummary Angle = "external_risk_summary"
	AngleRiskLandscapeMatrix Angle = "risk_landscape_matrix"
	AngleWatchFactors        Angle = "watch_factors"
	AngleRedFlagDetection    Angle = "red_flag_detection"
	AngleCompanyContext      Angle = "company_context"
)

// AllAngles lists the angles in their canonical order.
func AllAngles() []Angle {
	return []Angle{
		AngleExternalRiskSummary,
		AngleRiskLandscapeMatrix,
		AngleWatchFactors,
		AngleRedFlagDetection,
		AngleCompanyContext,
	}
}

// ParseAngles parses a comma separated list; "all" selects every angle.
func ParseAngles(list string) ([]Angle, error) {
	var angles []Angle
	seen := make(map[Angle]bool)

	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if name == "all" {
			return AllAngles(), nil
		}

		angle := Angle(name)
		if _, ok := anglePrompts[angle]; !ok {
			return nil, fmt.Errorf("unknown research angle %q", name)
		}
		if !seen[angle] {
			seen[angle] = true
			angles = append(angles, angle)
		}
	}

	if len(angles) == 0 {
		return nil, fmt.Errorf("no research angles selected")
	}
	return angles, nil
}

// Title returns the angle name in title case.
func (a Angle) Title() string {
	words := strings.Split(string(a), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Prompt renders the research prompt for a company.
func (a Angle) Prompt(company string) (string, error) {
	tmpl, ok := anglePrompts[a]
	if !ok {
		return "", fmt.Errorf("unknown research angle %q", a)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Company string }{Company: company}); err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", a, err)
	}
	return buf.String(), nil
}

// Quality grades a research result by report length.
type Quality string

const (
	QualityComprehensive Quality = "Comprehensive"
	QualityGood          Quality = "Good"
	QualityLimited       Quality = "Limited"
)

const (
	comprehensiveReportChars = 2000
	goodReportChars          = 1000
)

// QualityFor grades a report of the given length.
func QualityFor(reportLength int) Quality {
	switch {
	case reportLength > comprehensiveReportChars:
		return QualityComprehensive
	case reportLength > goodReportChars:
		return QualityGood
	default:
		return QualityLimited
	}
}

// Finding is a risk or opportunity extracted from a report.
type Finding struct {
	Category    string   `json:"category"` // Risk, Opportunity, Neutral
	Severity    string   `json:"severity"` // Critical, High, Medium, Low
	Likelihood  string   `json:"likelihood,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Timeline    string   `json:"timeline,omitempty"`
	Signals     []string `json:"signals,omitempty"`
	Sources     []string `json:"sources"`
	Date        string   `json:"date,omitempty"`
	Confidence  string   `json:"confidence"`
}

// AngleResult is the outcome of researching one angle.
type AngleResult struct {
	CompanyName       string                 `json:"company_name"`
	Ticker            string                 `json:"ticker,omitempty"`
	ResearchAngle     Angle                  `json:"research_angle"`
	Summary           string                 `json:"summary"`
	Findings          []Finding              `json:"findings"`
	DataPoints        map[string]interface{} `json:"data_points"`
	SourcesConsulted  []string               `json:"sources_consulted"`
	ResearchTimestamp time.Time              `json:"research_timestamp"`
	ResearchQuality   Quality                `json:"research_quality"`
	RawResearch       string                 `json:"raw_research,omitempty"`
	ErrorKind         ErrorKind              `json:"error_kind,omitempty"`

	// Cached is set when the result was served from a ResultCache.
	Cached bool `json:"-"`
}

// Failed reports whether the agent call behind this result failed.
func (r *AngleResult) Failed() bool {
	return r.ErrorKind != ""
}

// Session is the outcome of one research run over several angles.
type Session struct {
	RunID     string         `json:"run_id"`
	Company   string         `json:"company"`
	Ticker    string         `json:"ticker,omitempty"`
	Mode      Mode           `json:"mode"`
	Results   []*AngleResult `json:"results"`
	Cost      CostSummary    `json:"cost"`
	StartedAt time.Time      `json:"started_at"`
}

// Successful counts results whose quality is better than Limited.
func (s *Session) Successful() int {
	n := 0
	for _, r := range s.Results {
		if r.ResearchQuality != QualityLimited {
			n++
		}
	}
	return n
}

// TotalFindings counts findings across all angles.
func (s *Session) TotalFindings() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.Findings)
	}
	return n
}
