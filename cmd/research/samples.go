package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// loadSamples reads one company per line, skipping blanks and # comments.
// A missing file yields no samples.
func loadSamples(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}
	defer f.Close()

	samples := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		samples = append(samples, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples file: %w", err)
	}

	return samples, nil
}

// resolveCompany picks the company from --sample or --company.
func resolveCompany(opts *cliOptions, samples []string) (string, error) {
	if opts.sample > 0 {
		if opts.sample > len(samples) {
			return "", fmt.Errorf("sample index must be between 1 and %d", len(samples))
		}
		return samples[opts.sample-1], nil
	}

	if company := strings.TrimSpace(opts.company); company != "" {
		return company, nil
	}

	return "", errors.New("please specify --company or --sample N (use --list-samples to see available companies)")
}
