package comments

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// FormatTimeAgo renders the floored age of created relative to now:
// minutes below an hour, hours below a day, days otherwise.
// A timestamp in the future reads as "0m ago".
func FormatTimeAgo(now, created time.Time) string {
	elapsed := now.Sub(created)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int64(elapsed/time.Minute))
	case elapsed < day:
		return fmt.Sprintf("%dh ago", int64(elapsed/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int64(elapsed/day))
	}
}
