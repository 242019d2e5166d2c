package util //nolint:revive // package name util hosts shared formatting helpers used across CLI output

import "time"

// FormatProcessingDuration formats a time.Duration for display, handling edge cases.
// Returns "—" for zero or negative durations, truncates to milliseconds for readability.
func FormatProcessingDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "—"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}

// FormatProcessingMS renders an optional millisecond count reported by the
// job service. Unreported values display the same as zero durations.
func FormatProcessingMS(ms *int64) string {
	if ms == nil {
		return FormatProcessingDuration(0)
	}
	return FormatProcessingDuration(time.Duration(*ms) * time.Millisecond)
}
