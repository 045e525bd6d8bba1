package app

import (
	"fmt"

	"github.com/dicri-gt/dicri-backend/internal/auth"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the
// token service. Expiry strings are parsed here so bad values fail startup.
func (c AuthConfig) TokenServiceConfig() (auth.TokenConfig, error) {
	accessTTL := auth.DefaultAccessTokenTTL
	if c.JWT.AccessExpires != "" {
		parsed, err := ParseExpiry(c.JWT.AccessExpires)
		if err != nil {
			return auth.TokenConfig{}, fmt.Errorf("access token expiry: %w", err)
		}
		accessTTL = parsed
	}

	refreshTTL := auth.DefaultRefreshTokenTTL
	if c.JWT.RefreshExpires != "" {
		parsed, err := ParseExpiry(c.JWT.RefreshExpires)
		if err != nil {
			return auth.TokenConfig{}, fmt.Errorf("refresh token expiry: %w", err)
		}
		refreshTTL = parsed
	}

	return auth.TokenConfig{
		AccessSecret:  c.JWT.AccessSecret,
		RefreshSecret: c.JWT.RefreshSecret,
		Issuer:        c.JWT.Issuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}, nil
}

// VerifierConfig converts AuthConfig into the lockout parameters of the verifier.
func (c AuthConfig) VerifierConfig() (auth.VerifierConfig, error) {
	duration := auth.DefaultLockoutDuration
	if c.Lockout.Duration != "" {
		parsed, err := ParseExpiry(c.Lockout.Duration)
		if err != nil {
			return auth.VerifierConfig{}, fmt.Errorf("lockout duration: %w", err)
		}
		duration = parsed
	}

	threshold := c.Lockout.Threshold
	if threshold <= 0 {
		threshold = auth.DefaultLockoutThreshold
	}

	return auth.VerifierConfig{
		LockoutThreshold: threshold,
		LockoutDuration:  duration,
	}, nil
}
