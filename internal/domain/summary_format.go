package domain

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const summaryRule = 60

// FormatSummary writes a human-readable cost and performance report.
// The by-task section only appears when more than one task was recorded.
func FormatSummary(w io.Writer, s CostSummary) error {
	var b strings.Builder
	rule := strings.Repeat("=", summaryRule)

	fmt.Fprintf(&b, "\n%s\nCOST & PERFORMANCE SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "\nTotal Time: %.1fs\n", s.TotalTime)
	fmt.Fprintf(&b, "Total API Time: %.1fs\n", s.TotalDuration)
	fmt.Fprintf(&b, "Total Cost: $%.3f\n", s.TotalCost)
	fmt.Fprintf(&b, "Total Tokens: %s input, %s output\n",
		FormatNumber(s.TotalInputTokens), FormatNumber(s.TotalOutputTokens))

	if len(s.ByModel) > 0 {
		b.WriteString("\nBy Model:\n")
		for _, model := range sortedKeys(s.ByModel) {
			stats := s.ByModel[model]
			fmt.Fprintf(&b, "  %s:\n", model)
			fmt.Fprintf(&b, "    Calls: %d\n", stats.Calls)
			fmt.Fprintf(&b, "    Tokens: %s in / %s out\n",
				FormatNumber(stats.InputTokens), FormatNumber(stats.OutputTokens))
			fmt.Fprintf(&b, "    Cost: $%.3f\n", stats.Cost)
			fmt.Fprintf(&b, "    Time: %.1fs\n", stats.Duration)
		}
	}

	if len(s.ByTask) > 1 {
		b.WriteString("\nBy Task:\n")
		for _, task := range sortedKeys(s.ByTask) {
			if task == UnknownTask {
				continue
			}
			stats := s.ByTask[task]
			fmt.Fprintf(&b, "  %s:\n", task)
			fmt.Fprintf(&b, "    Calls: %d\n", stats.Calls)
			fmt.Fprintf(&b, "    Cost: $%.3f\n", stats.Cost)
			fmt.Fprintf(&b, "    Time: %.1fs\n", stats.Duration)
		}
	}

	b.WriteString(rule + "\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// FormatNumber formats an integer with thousand separators.
func FormatNumber(n int64) string {
	str := strconv.FormatInt(n, 10)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	var b strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}

func sortedKeys(group map[string]*UsageStats) []string {
	keys := make([]string, 0, len(group))
	for k := range group {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
