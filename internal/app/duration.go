package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseExpiry interprets a token lifetime value. Three formats are accepted:
// bare digits are seconds ("900"), a "d" suffix means days ("7d"), and
// anything else goes through time.ParseDuration ("15m", "24h").
func ParseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("expiry value is empty")
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("expiry %q must be positive", value)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	if strings.HasSuffix(value, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid day expiry %q", value)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", value, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("expiry %q must be positive", value)
	}
	return parsed, nil
}
