package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/agent"
	"github.com/marutilai/open-deep-research/internal/agent/echo"
	"github.com/marutilai/open-deep-research/internal/cache/file"
	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/pricing"
	"github.com/marutilai/open-deep-research/internal/report"
	"github.com/marutilai/open-deep-research/internal/stream"
	"github.com/marutilai/open-deep-research/internal/tokenizer"
)

func TestParseFlags(t *testing.T) {
	t.Run("should parse every flag", func(t *testing.T) {
		opts, err := parseFlags([]string{
			"--company", "Acme", "--angles", "watch_factors", "--mode", "fast",
			"--output-dir", "out", "--cache-dir", "cache", "--api-url", "http://agent:2024",
			"--timeout", "30", "--force-refresh", "--create-integration", "--json",
		}, io.Discard)

		require.NoError(t, err)
		require.Equal(t, "Acme", opts.company)
		require.Equal(t, "watch_factors", opts.angles)
		require.True(t, opts.forceRefresh)
		require.True(t, opts.createIntegration)
		require.True(t, opts.jsonOutput)

		cfg := &config.Config{}
		opts.apply(cfg)
		require.Equal(t, "fast", cfg.Research.Mode)
		require.Equal(t, "out", cfg.Research.OutputDir)
		require.Equal(t, "cache", cfg.Research.CacheDir)
		require.Equal(t, "http://agent:2024", cfg.Agent.BaseURL)
		require.Equal(t, 30, cfg.Agent.Timeout)
	})

	t.Run("should keep config values for unset flags", func(t *testing.T) {
		opts, err := parseFlags(nil, io.Discard)
		require.NoError(t, err)
		require.Equal(t, "all", opts.angles)

		cfg := &config.Config{Research: config.ResearchConfig{Mode: "balanced"}}
		opts.apply(cfg)
		require.Equal(t, "balanced", cfg.Research.Mode)
	})

	t.Run("should reject negative values", func(t *testing.T) {
		_, err := parseFlags([]string{"--sample", "-1"}, io.Discard)
		require.Error(t, err)

		_, err = parseFlags([]string{"--timeout", "-5"}, io.Discard)
		require.Error(t, err)
	})
}

func TestLoadSamples(t *testing.T) {
	t.Run("should skip blanks and comments", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "samples.txt")
		require.NoError(t, os.WriteFile(path, []byte("# header\nAcme\n\n  Globex  \n#Initech\n"), 0o644))

		samples, err := loadSamples(path)

		require.NoError(t, err)
		require.Equal(t, []string{"Acme", "Globex"}, samples)
	})

	t.Run("should return no samples for a missing file", func(t *testing.T) {
		samples, err := loadSamples(filepath.Join(t.TempDir(), "missing.txt"))

		require.NoError(t, err)
		require.Empty(t, samples)
	})
}

func TestResolveCompany(t *testing.T) {
	samples := []string{"Acme", "Globex"}

	tests := []struct {
		name    string
		opts    cliOptions
		want    string
		wantErr string
	}{
		{name: "sample index", opts: cliOptions{sample: 2}, want: "Globex"},
		{name: "sample wins over company", opts: cliOptions{sample: 1, company: "Other"}, want: "Acme"},
		{name: "company", opts: cliOptions{company: " Initech "}, want: "Initech"},
		{name: "sample out of range", opts: cliOptions{sample: 3}, wantErr: "between 1 and 2"},
		{name: "nothing selected", opts: cliOptions{}, wantErr: "--company or --sample"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company, err := resolveCompany(&tt.opts, samples)

			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, company)
		})
	}
}

func newTestApplication(t *testing.T, opts *cliOptions, agentURL string) (*application, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()

	agentCfg := &config.AgentConfig{BaseURL: agentURL, AssistantID: "Deep Researcher", Timeout: 10, PingTimeout: 1}
	researchCfg := &config.ResearchConfig{
		Mode:        "fast",
		OutputDir:   filepath.Join(dir, "out"),
		SamplesFile: filepath.Join(dir, "samples.txt"),
	}
	require.NoError(t, os.WriteFile(researchCfg.SamplesFile, []byte("Acme Corp\nGlobex\n"), 0o644))

	client := agent.NewClient(agentCfg, stream.NewReader())
	service := domain.NewResearchService(client, file.NewResultCache(filepath.Join(dir, "cache")),
		tokenizer.New(), pricing.Default(), nil, nil, domain.ResearchOptions{})

	out := &bytes.Buffer{}
	return &application{
		opts:     opts,
		agentCfg: agentCfg,
		research: researchCfg,
		agent:    client,
		service:  service,
		writer:   report.NewWriter(researchCfg.OutputDir),
		out:      out,
	}, out, researchCfg.OutputDir
}

func TestApplication_Run(t *testing.T) {
	srv := httptest.NewServer(echo.NewHandler(echo.WithDelay(0)))
	t.Cleanup(srv.Close)

	t.Run("should research and save a sample company", func(t *testing.T) {
		app, out, outputDir := newTestApplication(t, &cliOptions{
			sample: 1,
			angles: "watch_factors,company_context",
		}, srv.URL)

		require.NoError(t, app.run(context.Background()))

		var output runOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &output))
		require.Equal(t, "Acme Corp", output.Company)
		require.Len(t, output.Angles, 2)
		require.Empty(t, output.Angles[0].ErrorKind)
		require.Positive(t, output.Cost.TotalInputTokens)
		require.NotNil(t, output.Files)
		require.DirExists(t, filepath.Join(outputDir, "acme_corp"))
		require.FileExists(t, output.Files.SummaryFile)
	})

	t.Run("should list samples", func(t *testing.T) {
		app, out, _ := newTestApplication(t, &cliOptions{listSamples: true}, srv.URL)

		require.NoError(t, app.run(context.Background()))
		require.Contains(t, out.String(), "  2. Globex")
	})

	t.Run("should print text on a terminal", func(t *testing.T) {
		app, out, _ := newTestApplication(t, &cliOptions{company: "Globex", angles: "watch_factors"}, srv.URL)
		app.isTTY = true

		require.NoError(t, app.run(context.Background()))
		require.Contains(t, out.String(), "M&A Research Complete: Globex")
		require.Contains(t, out.String(), "COST & PERFORMANCE SUMMARY")
	})

	t.Run("should fail fast when the agent is unreachable", func(t *testing.T) {
		closed := httptest.NewServer(echo.NewHandler())
		closed.Close()
		app, _, _ := newTestApplication(t, &cliOptions{company: "Acme", angles: "all"}, closed.URL)

		err := app.run(context.Background())

		require.ErrorIs(t, err, domain.ErrConnection)
		require.ErrorContains(t, err, "cannot connect to agent")
	})

	t.Run("should reject unknown angles", func(t *testing.T) {
		app, _, _ := newTestApplication(t, &cliOptions{company: "Acme", angles: "bogus"}, srv.URL)

		require.ErrorContains(t, app.run(context.Background()), "unknown research angle")
	})
}

func TestNewResultCache(t *testing.T) {
	cache, err := newResultCache(context.Background(),
		&config.ResearchConfig{CacheBackend: "none"}, &config.RedisConfig{})
	require.NoError(t, err)
	require.Nil(t, cache)

	cache, err = newResultCache(context.Background(),
		&config.ResearchConfig{CacheBackend: "file", CacheDir: t.TempDir()}, &config.RedisConfig{})
	require.NoError(t, err)
	require.NotNil(t, cache)

	_, err = newResultCache(context.Background(),
		&config.ResearchConfig{CacheBackend: "memcached"}, &config.RedisConfig{})
	require.ErrorContains(t, err, "unknown cache backend")
}
