package store

import (
	"fmt"
	"strings"
)

// Slack timestamps are decimal strings of the form "1609459200.000100" with a
// six digit fractional part. Normalized this way they sort lexicographically
// in chronological order, which the message pagination relies on.

// NormalizeTS pads a Slack timestamp to the canonical "seconds.micros" shape.
func NormalizeTS(ts string) (string, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "", fmt.Errorf("empty timestamp")
	}
	secs, frac, found := strings.Cut(ts, ".")
	if !found {
		frac = "000000"
	}
	if secs == "" || len(secs) > 10 || !allDigits(secs) || !allDigits(frac) {
		return "", fmt.Errorf("malformed timestamp %q", ts)
	}
	if len(frac) > 6 {
		frac = frac[:6]
	}
	for len(frac) < 6 {
		frac += "0"
	}
	for len(secs) < 10 {
		secs = "0" + secs
	}
	return secs + "." + frac, nil
}

// OffsetTS advances a normalized timestamp by n microseconds. Synthetic
// follow-up records use this to avoid colliding with their primary record's
// key while staying immediately after it in send order.
func OffsetTS(ts string, n int64) (string, error) {
	norm, err := NormalizeTS(ts)
	if err != nil {
		return "", err
	}
	secs, frac, _ := strings.Cut(norm, ".")
	var s, f int64
	if _, err := fmt.Sscanf(secs, "%d", &s); err != nil {
		return "", fmt.Errorf("malformed timestamp %q", ts)
	}
	if _, err := fmt.Sscanf(frac, "%d", &f); err != nil {
		return "", fmt.Errorf("malformed timestamp %q", ts)
	}
	total := f + n
	s += total / 1_000_000
	total %= 1_000_000
	if total < 0 {
		total += 1_000_000
		s--
	}
	return fmt.Sprintf("%010d.%06d", s, total), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
