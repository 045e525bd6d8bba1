package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		value    string
		expected time.Duration
	}{
		{"900", 15 * time.Minute},
		{"60", time.Minute},
		{"15m", 15 * time.Minute},
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{" 30m ", 30 * time.Minute},
	}

	for _, tc := range cases {
		parsed, err := ParseExpiry(tc.value)
		require.NoError(t, err, tc.value)
		require.Equal(t, tc.expected, parsed, tc.value)
	}
}

func TestParseExpiryRejectsInvalid(t *testing.T) {
	for _, value := range []string{"", "abc", "-900", "0", "-7d", "0d", "d", "7dd"} {
		_, err := ParseExpiry(value)
		require.Error(t, err, value)
	}
}
