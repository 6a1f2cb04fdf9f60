package util //nolint:revive // package name util hosts shared formatting helpers used across CLI output

import "time"

// FormatAge formats an elapsed duration for display, handling edge cases.
// Returns "—" for zero or negative durations; durations of a second or more
// are truncated to whole seconds for readability.
func FormatAge(d time.Duration) string {
	switch {
	case d <= 0:
		return "—"
	case d < time.Second:
		return d.Truncate(time.Millisecond).String()
	default:
		return d.Truncate(time.Second).String()
	}
}
