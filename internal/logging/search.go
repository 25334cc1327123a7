package logging

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// MaxSearchDays bounds how many daily files one search may open.
const MaxSearchDays = 366

// SearchLevels are the level names accepted by Search.
var SearchLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

var levelPattern = regexp.MustCompile(` - (DEBUG|INFO|WARNING|ERROR|CRITICAL) - `)

// Search returns log lines from dir whose timestamp lies in [start, end],
// optionally restricted to the given levels. Lines keep file order.
func Search(dir string, start, end time.Time, levels []string) ([]string, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start_time must be before end_time", domain.ErrInvalidInput)
	}

	wanted, err := normalizeLevels(levels)
	if err != nil {
		return nil, err
	}

	start, end = start.Local(), end.Local()
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.Local)
	if last.Sub(first) > MaxSearchDays*24*time.Hour {
		return nil, fmt.Errorf("%w: window exceeds %d days", domain.ErrInvalidInput, MaxSearchDays)
	}

	matched := []string{}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		lines, err := scanFile(FileName(dir, day), start, end, wanted)
		if err != nil {
			return nil, err
		}
		matched = append(matched, lines...)
	}
	return matched, nil
}

func normalizeLevels(levels []string) ([]string, error) {
	if len(levels) == 0 {
		return nil, nil
	}
	var out, invalid []string
	for _, l := range levels {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l == "WARN" {
			l = "WARNING"
		}
		if !slices.Contains(SearchLevels, l) {
			invalid = append(invalid, l)
			continue
		}
		out = append(out, l)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: invalid log levels %v, choose from %v", domain.ErrInvalidInput, invalid, SearchLevels)
	}
	return out, nil
}

func scanFile(path string, start, end time.Time, levels []string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(line) < len(TimestampLayout) {
			continue
		}
		ts, err := time.ParseInLocation(TimestampLayout, line[:len(TimestampLayout)], time.Local)
		if err != nil || ts.Before(start) || ts.After(end) {
			continue
		}
		if len(levels) > 0 {
			m := levelPattern.FindStringSubmatch(line)
			if m == nil || !slices.Contains(levels, m[1]) {
				continue
			}
		}
		out = append(out, strings.TrimRight(line, " \t\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log file %s: %w", path, err)
	}
	return out, nil
}
