package format

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// HitBadge renders a hit count for terminal output. Non-zero counts are
// the attention-worthy case for an analyst, so they render bold red;
// zero renders dim.
func HitBadge(n int) string {
	if n > 0 {
		return text.Colors{text.FgHiRed, text.Bold}.Sprintf("%d hits", n)
	}
	return text.Colors{text.Faint}.Sprint("0 hits")
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// FmtDuration formats a duration as "Xm Ys" or "X.Ys" for query timings.
func FmtDuration(d time.Duration) string {
	s := d.Seconds()
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", int(s)/60, int(s)%60)
	}
	return fmt.Sprintf("%.1fs", s)
}
