package helpers

import (
	"time"

	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		logger.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

// MegabytesToBytes converts a configured size in megabytes. Non-positive
// sizes mean no limit and yield 0.
func MegabytesToBytes(mb int) int64 {
	if mb <= 0 {
		return 0
	}
	return int64(mb) << 20
}
