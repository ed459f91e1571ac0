package report_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/report"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func testSession() *domain.Session {
	return &domain.Session{
		Company: "Acme Corp.",
		Ticker:  "ACME",
		Mode:    domain.ModeBalanced,
		Results: []*domain.AngleResult{
			{
				CompanyName:     "Acme Corp.",
				ResearchAngle:   domain.AngleWatchFactors,
				Summary:         "Watch the supply chain.",
				ResearchQuality: domain.QualityGood,
				RawResearch:     "# Watch factors\n\nFull text.",
				Findings: []domain.Finding{
					{Category: "Risk", Severity: "Critical", Title: "Fraud probe"},
					{Category: "Risk", Severity: "High", Title: "Debt"},
					{Category: "Opportunity", Severity: "Medium", Title: "Growth"},
				},
			},
			{
				CompanyName:     "Acme Corp.",
				ResearchAngle:   domain.AngleRedFlagDetection,
				Summary:         "Research failed: timeout",
				ResearchQuality: domain.QualityLimited,
				RawResearch:     "partial notes",
				ErrorKind:       domain.ErrorKindTimeout,
			},
		},
		Cost: domain.CostSummary{TotalCost: 0.25, TotalInputTokens: 100},
	}
}

func TestSlug(t *testing.T) {
	require.Equal(t, "acme_corp", report.Slug("Acme Corp."))
	require.Equal(t, "open_ai", report.Slug("  Open AI "))
}

func TestWriter_Save(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)

	t.Run("should write results, raw reports and summaries", func(t *testing.T) {
		dir := t.TempDir()
		writer := report.NewWriter(dir, report.WithNow(fixedClock(ts)))

		saved, err := writer.Save(context.Background(), testSession(), false)

		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "acme_corp"), saved.Dir)
		require.Len(t, saved.AngleFiles, 2)
		require.Len(t, saved.RawFiles, 2)
		require.Empty(t, saved.ContextFile)
		require.FileExists(t, filepath.Join(saved.Dir, "watch_factors_20260304_050607.json"))
		require.FileExists(t, filepath.Join(saved.Dir, "watch_factors_20260304_050607_raw.md"))

		data, err := os.ReadFile(saved.AngleFiles[0])
		require.NoError(t, err)
		require.NotContains(t, string(data), "raw_research")

		var cost domain.CostSummary
		data, err = os.ReadFile(saved.CostSummaryFile)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &cost))
		require.InDelta(t, 0.25, cost.TotalCost, 1e-9)

		summary, err := os.ReadFile(saved.SummaryFile)
		require.NoError(t, err)
		require.Contains(t, string(summary), "# M&A Deep Research: Acme Corp. (ACME)")
		require.Contains(t, string(summary), "**Research Date:** 2026-03-04 05:06")
		require.Contains(t, string(summary), "- **Total Findings:** 3")
		require.Contains(t, string(summary), "- **Critical Risks:** 1")
		require.Contains(t, string(summary), "- **High Risks:** 1")
		require.Contains(t, string(summary), "- **Opportunities:** 1")
		require.Contains(t, string(summary), "## Watch Factors")
		require.Contains(t, string(summary), "### Full Research Report")
	})

	t.Run("should write a system context without limited results", func(t *testing.T) {
		dir := t.TempDir()
		writer := report.NewWriter(dir, report.WithNow(fixedClock(ts)))

		saved, err := writer.Save(context.Background(), testSession(), true)

		require.NoError(t, err)
		require.NotEmpty(t, saved.ContextFile)

		data, err := os.ReadFile(saved.ContextFile)
		require.NoError(t, err)
		require.Contains(t, string(data), "Acme Corp.'s Virtual Data Room")
		require.Contains(t, string(data), "Full text.")
		require.NotContains(t, string(data), "partial notes")
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	older := time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local)
	newer := older.Add(time.Hour)

	_, err := report.NewWriter(dir, report.WithNow(fixedClock(older))).Save(ctx, testSession(), false)
	require.NoError(t, err)

	session := testSession()
	session.Results = session.Results[:1]
	session.Results[0].Summary = "Newer summary."
	_, err = report.NewWriter(dir, report.WithNow(fixedClock(newer))).Save(ctx, session, false)
	require.NoError(t, err)

	store := report.NewStore(dir)

	t.Run("should list companies with counts", func(t *testing.T) {
		companies, err := store.Companies(ctx)

		require.NoError(t, err)
		require.Len(t, companies, 1)
		require.Equal(t, "acme_corp", companies[0].Slug)
		require.Equal(t, "Acme Corp.", companies[0].Name)
		require.Equal(t, 3, companies[0].Results)
		require.Equal(t, 2, companies[0].Summaries)
		require.True(t, companies[0].LastUpdate.Equal(newer))
	})

	t.Run("should return results newest first", func(t *testing.T) {
		results, err := store.Results(ctx, "acme_corp")

		require.NoError(t, err)
		require.Len(t, results, 3)
		require.Equal(t, "Newer summary.", results[0].Summary)
		require.Equal(t, domain.AngleWatchFactors, results[1].ResearchAngle)
		require.Equal(t, domain.AngleRedFlagDetection, results[2].ResearchAngle)
		require.Empty(t, results[0].RawResearch)
	})

	t.Run("should return the latest summary", func(t *testing.T) {
		summary, err := store.Summary(ctx, "acme_corp")

		require.NoError(t, err)
		require.Contains(t, summary, "Newer summary.")
	})

	t.Run("should reject unknown and escaping slugs", func(t *testing.T) {
		for _, slug := range []string{"missing", "", "..", "../etc", "a/b"} {
			_, err := store.Results(ctx, slug)
			require.ErrorIs(t, err, report.ErrNotFound, slug)

			_, err = store.Summary(ctx, slug)
			require.ErrorIs(t, err, report.ErrNotFound, slug)
		}
	})

	t.Run("should skip corrupt result files", func(t *testing.T) {
		corruptDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(corruptDir, "bad"), 0o755))
		require.NoError(t, os.WriteFile(
			filepath.Join(corruptDir, "bad", "watch_factors_20260101_090000.json"), []byte("{"), 0o644))

		results, err := report.NewStore(corruptDir).Results(ctx, "bad")

		require.NoError(t, err)
		require.Empty(t, results)
	})

	t.Run("should return an empty list for a missing output directory", func(t *testing.T) {
		companies, err := report.NewStore(filepath.Join(dir, "nope")).Companies(ctx)

		require.NoError(t, err)
		require.Empty(t, companies)
	})
}
