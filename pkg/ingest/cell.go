package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"ai-data-analyst-be/pkg/dataset"
)

var (
	intPattern       = regexp.MustCompile(`^[-+]?\d+$`)
	decimalPattern   = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)
	groupedPattern   = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	dateOnlyLayouts  = []string{"2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006", "01-02-06", "1/2/06", "02-Jan-2006", "Jan 2, 2006"}
	leadingZeroIdent = regexp.MustCompile(`^[-+]?0\d+$`)
)

// TypeCell converts a raw cell into a typed scalar: nil for blanks, int64,
// float64, dataset.Date for calendar dates, otherwise trimmed text.
func TypeCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if groupedPattern.MatchString(s) {
		s2 := strings.ReplaceAll(s, ",", "")
		if v, ok := parseNumber(s2); ok {
			return v
		}
	}
	// Codes such as zip or account numbers keep their leading zeros.
	if !leadingZeroIdent.MatchString(s) {
		if v, ok := parseNumber(s); ok {
			return v
		}
	}

	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dataset.Date(t.Format("2006-01-02"))
		}
	}
	return s
}

func parseNumber(s string) (any, bool) {
	if intPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	if decimalPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return nil, false
}
