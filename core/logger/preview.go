package logger

import (
	"fmt"
	"strings"
	"time"
)

// RoundMS rounds d to whole milliseconds. Non-positive durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Preview joins at most limit values for a single log attribute and notes how
// many were left out.
func Preview(values []string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(values) <= limit {
		return strings.Join(values, ",")
	}
	shown := strings.Join(values[:limit], ",")
	rest := fmt.Sprintf("+%d more", len(values)-limit)
	if shown == "" {
		return rest
	}
	return shown + " " + rest
}
