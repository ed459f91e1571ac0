package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

// ErrNotFound is returned for companies or files that do not exist.
var ErrNotFound = errors.New("not found")

// Company describes one company directory in the output tree.
type Company struct {
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Results    int       `json:"results"`
	Summaries  int       `json:"summaries"`
	LastUpdate time.Time `json:"last_update"`
}

// Store reads saved sessions back from an output directory.
type Store struct {
	dir string
}

// NewStore creates a new report store.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Companies lists every company with saved results, sorted by slug.
func (s *Store) Companies(ctx context.Context) ([]Company, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Company{}, nil
		}
		return nil, fmt.Errorf("failed to list output directory: %w", err)
	}

	companies := make([]Company, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		company := Company{Slug: entry.Name(), Name: entry.Name()}
		files, err := os.ReadDir(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			observability.FromContext(ctx).Warn("skipping unreadable company directory",
				observability.String("slug", entry.Name()),
				observability.Error(err))
			continue
		}

		for _, f := range files {
			name := f.Name()
			switch {
			case isResultFile(name):
				company.Results++
			case isSummaryFile(name):
				company.Summaries++
			default:
				continue
			}
			if ts, ok := fileTimestamp(name); ok && ts.After(company.LastUpdate) {
				company.LastUpdate = ts
			}
		}

		if company.Results == 0 && company.Summaries == 0 {
			continue
		}

		if results, err := s.Results(ctx, entry.Name()); err == nil && len(results) > 0 {
			company.Name = results[0].CompanyName
		}

		companies = append(companies, company)
	}

	sort.Slice(companies, func(i, j int) bool { return companies[i].Slug < companies[j].Slug })
	return companies, nil
}

// Results loads every saved angle result of a company, newest first.
// Unreadable files are skipped with a warning.
func (s *Store) Results(ctx context.Context, slug string) ([]*domain.AngleResult, error) {
	dir, err := s.companyDir(slug)
	if err != nil {
		return nil, err
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list company directory: %w", err)
	}

	type entry struct {
		ts     time.Time
		result *domain.AngleResult
	}
	entries := make([]entry, 0, len(files))

	for _, f := range files {
		if f.IsDir() || !isResultFile(f.Name()) {
			continue
		}

		path := filepath.Join(dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name(), err)
		}

		var result domain.AngleResult
		if err := json.Unmarshal(data, &result); err != nil {
			observability.FromContext(ctx).Warn("skipping corrupt result file",
				observability.String("file", f.Name()),
				observability.Error(err))
			continue
		}

		ts, _ := fileTimestamp(f.Name())
		entries = append(entries, entry{ts: ts, result: &result})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ts.Equal(entries[j].ts) {
			return entries[i].ts.After(entries[j].ts)
		}
		return angleIndex(entries[i].result.ResearchAngle) < angleIndex(entries[j].result.ResearchAngle)
	})

	results := make([]*domain.AngleResult, len(entries))
	for i, e := range entries {
		results[i] = e.result
	}
	return results, nil
}

// Summary returns the newest markdown summary of a company.
func (s *Store) Summary(_ context.Context, slug string) (string, error) {
	dir, err := s.companyDir(slug)
	if err != nil {
		return "", err
	}

	matches, err := filepath.Glob(filepath.Join(dir, summaryPrefix+"*.md"))
	if err != nil {
		return "", fmt.Errorf("failed to list summaries: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("summary for %q: %w", slug, ErrNotFound)
	}

	// The timestamp layout sorts lexically.
	sort.Strings(matches)
	data, err := os.ReadFile(matches[len(matches)-1])
	if err != nil {
		return "", fmt.Errorf("failed to read summary: %w", err)
	}
	return string(data), nil
}

func (s *Store) companyDir(slug string) (string, error) {
	if slug == "" || slug != filepath.Base(slug) || strings.HasPrefix(slug, ".") {
		return "", fmt.Errorf("company %q: %w", slug, ErrNotFound)
	}

	dir := filepath.Join(s.dir, slug)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("company %q: %w", slug, ErrNotFound)
	}
	return dir, nil
}

func isResultFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, costSummaryPrefix)
}

func isSummaryFile(name string) bool {
	return strings.HasPrefix(name, summaryPrefix) && strings.HasSuffix(name, ".md")
}

// fileTimestamp parses the timestamp that precedes the extension or raw suffix.
func fileTimestamp(name string) (time.Time, bool) {
	base := strings.TrimSuffix(name, rawSuffix)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if len(base) < len(timestampLayout) {
		return time.Time{}, false
	}

	ts, err := time.ParseInLocation(timestampLayout, base[len(base)-len(timestampLayout):], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func angleIndex(a domain.Angle) int {
	for i, angle := range domain.AllAngles() {
		if angle == a {
			return i
		}
	}
	return len(domain.AllAngles())
}
