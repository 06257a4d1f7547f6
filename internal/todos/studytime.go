package todos

import "fmt"

// DateLayout is how study dates travel, YYYY-MM-DD
const DateLayout = "2006-01-02"

// FormatStudyTime renders seconds as zero padded HH:MM once they reach a
// minute, and as "Ns" below that. Partial minutes are floored.
func FormatStudyTime(seconds int64) string {
	if seconds >= 60 {
		return fmt.Sprintf("%02d:%02d", seconds/3600, (seconds%3600)/60)
	}
	return fmt.Sprintf("%ds", seconds)
}
