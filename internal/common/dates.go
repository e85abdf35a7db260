package common

import (
	"strings"
	"time"
)

// DateLayout is the strict date format used by the transaction files.
const DateLayout = "2006-01-02"

// flexibleLayouts are tried in order when the strict layout does not match.
var flexibleLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
}

// ParseDate parses a transaction date, attempting the strict layout first
// and then a list of flexible layouts. The returned bool reports whether any
// layout matched; callers drop (and count) rows that fail to parse.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, true
	}
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
