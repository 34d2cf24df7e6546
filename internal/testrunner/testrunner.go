// Package testrunner parses test runner output into result counts.
package testrunner

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result represents the outcome of running tests.
type Result int

const (
	// NotRun indicates tests were not executed.
	NotRun Result = iota
	// Passed indicates the runner exited zero.
	Passed
	// Failed indicates the runner exited non-zero.
	Failed
)

func (r Result) String() string {
	switch r {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "not run"
	}
}

// Summary contains test run results.
type Summary struct {
	Result    Result
	RawOutput string
	Passed    int
	Failed    int
	Skipped   int
	Errors    int
	Total     int
	Duration  time.Duration
}

// countPattern matches one "<n> <outcome>" pair of a pytest or jest
// summary line.
var countPattern = regexp.MustCompile(`(\d+) (passed|failed|skipped|errors?|total)\b`)

// Parse builds a Summary from the combined output of a test runner and its
// exit code. Counts come from the last summary line the runner printed.
func Parse(output string, exitCode int, duration time.Duration) *Summary {
	summary := &Summary{
		Result:    Passed,
		RawOutput: output,
		Duration:  duration,
	}
	if exitCode != 0 {
		summary.Result = Failed
	}
	parseTestCounts(summary)
	return summary
}

// parseTestCounts extracts test counts from output.
func parseTestCounts(summary *Summary) {
	var goPassed, goFailed int
	for _, line := range strings.Split(summary.RawOutput, "\n") {
		line = strings.TrimSpace(line)

		// Go style: one "ok" or "FAIL" line per package.
		if strings.HasPrefix(line, "ok ") || strings.HasPrefix(line, "ok\t") {
			goPassed++
			continue
		}
		if strings.HasPrefix(line, "FAIL ") || strings.HasPrefix(line, "FAIL\t") {
			goFailed++
			continue
		}

		if !isSummaryLine(line) {
			continue
		}
		// A later summary line replaces an earlier one.
		summary.Passed = countInLine(line, "passed")
		summary.Failed = countInLine(line, "failed")
		summary.Skipped = countInLine(line, "skipped")
		summary.Errors = countInLine(line, "error") + countInLine(line, "errors")
		summary.Total = countInLine(line, "total")
	}

	if summary.Passed+summary.Failed+summary.Skipped+summary.Errors == 0 {
		summary.Passed = goPassed
		summary.Failed = goFailed
	}
	if summary.Total == 0 {
		summary.Total = summary.Passed + summary.Failed + summary.Skipped + summary.Errors
	}
}

// isSummaryLine reports whether line is a pytest ("=== 1 failed, 2 passed
// in 0.1s ===", "3 passed in 0.05s") or jest ("Tests: 1 failed, 4 total")
// summary line.
func isSummaryLine(line string) bool {
	line = strings.TrimPrefix(line, "Tests:")
	line = strings.TrimSpace(strings.Trim(line, "= "))
	loc := countPattern.FindStringIndex(line)
	return loc != nil && loc[0] == 0
}

// countInLine extracts the count immediately before keyword.
func countInLine(line, keyword string) int {
	for _, m := range countPattern.FindAllStringSubmatch(line, -1) {
		if m[2] != keyword {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// String returns a human-readable summary such as "3 passed, 1 failed".
func (s *Summary) String() string {
	if s == nil || s.Result == NotRun {
		return "Tests not run"
	}

	var parts []string
	if s.Passed > 0 {
		parts = append(parts, strconv.Itoa(s.Passed)+" passed")
	}
	if s.Failed > 0 {
		parts = append(parts, strconv.Itoa(s.Failed)+" failed")
	}
	if s.Skipped > 0 {
		parts = append(parts, strconv.Itoa(s.Skipped)+" skipped")
	}
	if s.Errors > 0 {
		parts = append(parts, strconv.Itoa(s.Errors)+" errors")
	}

	if len(parts) == 0 {
		if s.Result == Passed {
			return "All tests passed"
		}
		return "Tests failed"
	}
	return strings.Join(parts, ", ")
}
