package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minFindingLineChars = 20
	findingTitleChars   = 100
	fallbackReportChars = 100
	fallbackDescChars   = 500
	summaryChars        = 500
)

//nolint:gochecknoglobals // static keyword tables
var (
	riskIndicators        = []string{"risk", "concern", "issue", "problem", "challenge", "threat", "vulnerability"}
	opportunityIndicators = []string{"opportunity", "advantage", "benefit", "strength", "potential"}

	// Checked in order; the first level with a matching keyword wins.
	severityLevels = []struct {
		name     string
		keywords []string
	}{
		{"Critical", []string{"critical", "severe", "major", "significant"}},
		{"High", []string{"high", "important", "substantial"}},
		{"Medium", []string{"medium", "moderate", "notable"}},
		{"Low", []string{"low", "minor", "small"}},
	}

	tickerPattern = regexp.MustCompile(`\b([A-Z]{1,5})\b\s+(?:on|listed|trades)`)
)

// ExtractFindings pulls risk and opportunity lines out of a report.
// Reports with no matching line but some substance yield one Neutral finding.
func ExtractFindings(report string, angle Angle) []Finding {
	findings := make([]Finding, 0)

	for _, line := range strings.Split(report, "\n") {
		lower := strings.ToLower(line)

		isRisk := containsAny(lower, riskIndicators)
		isOpportunity := containsAny(lower, opportunityIndicators)
		if (!isRisk && !isOpportunity) || len(line) <= minFindingLineChars {
			continue
		}

		severity := "Medium"
		for _, level := range severityLevels {
			if containsAny(lower, level.keywords) {
				severity = level.name
				break
			}
		}

		category := "Opportunity"
		if isRisk {
			category = "Risk"
		}

		trimmed := strings.TrimSpace(line)
		title := truncateRunes(trimmed, findingTitleChars)
		if idx := strings.Index(title, ":"); idx >= 0 {
			title = title[:idx]
		}

		findings = append(findings, Finding{
			Category:    category,
			Severity:    severity,
			Title:       strings.TrimSpace(title),
			Description: trimmed,
			Sources:     []string{},
			Confidence:  "Medium",
		})
	}

	if len(findings) == 0 && len(report) > fallbackReportChars {
		description := report
		if utf8.RuneCountInString(report) > fallbackDescChars {
			description = truncateRunes(report, fallbackDescChars) + "..."
		}
		findings = append(findings, Finding{
			Category:    "Neutral",
			Severity:    "Medium",
			Title:       angle.Title() + " Analysis",
			Description: description,
			Sources:     []string{},
			Confidence:  "Medium",
		})
	}

	return findings
}

// ExtractTicker finds a stock ticker when the report mentions one explicitly.
func ExtractTicker(report string) string {
	lower := strings.ToLower(report)
	if !strings.Contains(lower, "ticker:") && !strings.Contains(lower, "symbol:") {
		return ""
	}
	if m := tickerPattern.FindStringSubmatch(report); m != nil {
		return m[1]
	}
	return ""
}

// SummarizeReport returns the first paragraph of a report, capped at 500 characters.
func SummarizeReport(report string) string {
	end := summaryChars
	if idx := strings.Index(report, "\n\n"); idx >= 0 && idx < end {
		end = idx
	}
	return strings.TrimSpace(truncateBytes(report, end))
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
