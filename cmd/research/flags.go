package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/marutilai/open-deep-research/internal/config"
)

// cliOptions holds command-line overrides. Empty values keep the environment config.
type cliOptions struct {
	company           string
	sample            int
	listSamples       bool
	samplesFile       string
	angles            string
	mode              string
	outputDir         string
	cacheDir          string
	forceRefresh      bool
	apiURL            string
	timeout           int
	createIntegration bool
	jsonOutput        bool
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("research", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &cliOptions{}
	fs.StringVar(&opts.company, "company", "", "Company name to research")
	fs.IntVar(&opts.sample, "sample", 0, "Use company N from the samples file (1-based index)")
	fs.BoolVar(&opts.listSamples, "list-samples", false, "List all sample companies")
	fs.StringVar(&opts.samplesFile, "samples-file", "", "Sample companies file (default from RESEARCH_SAMPLES_FILE)")
	fs.StringVar(&opts.angles, "angles", "all", "Comma separated research angles, or all")
	fs.StringVar(&opts.mode, "mode", "", "Research mode: fast, balanced or comprehensive")
	fs.StringVar(&opts.outputDir, "output-dir", "", "Directory for research outputs")
	fs.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for cached angle results")
	fs.BoolVar(&opts.forceRefresh, "force-refresh", false, "Ignore cached results")
	fs.StringVar(&opts.apiURL, "api-url", "", "Agent service base URL")
	fs.IntVar(&opts.timeout, "timeout", 0, "Per-angle timeout in seconds")
	fs.BoolVar(&opts.createIntegration, "create-integration", false, "Write a system context file for VDR review")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `research - M&A deep research against a local agent service

Usage: research (--company NAME | --sample N) [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  research --list-samples
  research --company "Acme Corp" --angles watch_factors,red_flag_detection
  research --sample 2 --mode fast --json
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.sample < 0 {
		return nil, fmt.Errorf("--sample must be positive, got %d", opts.sample)
	}
	if opts.timeout < 0 {
		return nil, fmt.Errorf("--timeout must be positive, got %d", opts.timeout)
	}

	return opts, nil
}

// apply overlays the flags that were set onto cfg.
func (o *cliOptions) apply(cfg *config.Config) {
	if o.samplesFile != "" {
		cfg.Research.SamplesFile = o.samplesFile
	}
	if o.mode != "" {
		cfg.Research.Mode = o.mode
	}
	if o.outputDir != "" {
		cfg.Research.OutputDir = o.outputDir
	}
	if o.cacheDir != "" {
		cfg.Research.CacheDir = o.cacheDir
	}
	if o.apiURL != "" {
		cfg.Agent.BaseURL = o.apiURL
	}
	if o.timeout > 0 {
		cfg.Agent.Timeout = o.timeout
	}
}
