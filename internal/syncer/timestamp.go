package syncer

import (
	"strconv"
	"strings"
	"time"
)

// timeLayout is the canonical stored form: RFC 3339 in UTC with a
// fixed-width fraction. The width matters: trimming fraction zeros would
// make "10:00:00.5Z" sort before "10:00:00Z", and the cursor math relies on
// lexical order matching chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ParseTimestamp normalizes a raw extracted timestamp to RFC 3339 UTC.
// Accepted inputs: a numeric epoch with optional fractional seconds
// (Slack-style), or an ISO 8601 string where a trailing "Z" means UTC.
// Anything else parses to nil, which downstream fill-if-null semantics
// tolerate: an unknown timestamp never destroys a known one.
func ParseTimestamp(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}

	if isEpoch(s) {
		seconds, err := strconv.ParseFloat(s, 64)
		if err == nil {
			sec := int64(seconds)
			nsec := int64((seconds - float64(sec)) * 1e9)
			formatted := time.Unix(sec, nsec).UTC().Format(timeLayout)
			return &formatted
		}
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999", // no offset: treated as UTC
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			formatted := t.UTC().Format(timeLayout)
			return &formatted
		}
	}
	return nil
}

// isEpoch reports whether s is all digits with at most one dot.
func isEpoch(s string) bool {
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > dots
}

// maxTimestamp returns the later of two RFC 3339 strings, tolerating nils.
func maxTimestamp(current *string, candidate string) *string {
	if current == nil || candidate > *current {
		return &candidate
	}
	return current
}

// minTimestamp returns the earlier of two RFC 3339 strings, tolerating nils.
func minTimestamp(current *string, candidate string) *string {
	if current == nil || candidate < *current {
		return &candidate
	}
	return current
}
