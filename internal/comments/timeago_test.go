package comments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "0m ago"},
		{59 * time.Second, "0m ago"},
		{59 * time.Minute, "59m ago"},
		{59*time.Minute + 59*time.Second, "59m ago"},
		{60 * time.Minute, "1h ago"},
		{90 * time.Minute, "1h ago"},
		{23*time.Hour + 59*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{47 * time.Hour, "1d ago"},
		{10 * 24 * time.Hour, "10d ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatTimeAgo(now, now.Add(-tc.elapsed)), "elapsed %s", tc.elapsed)
	}
}

func TestFormatTimeAgo_FutureTimestamp(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "0m ago", FormatTimeAgo(now, now.Add(5*time.Minute)))
}
