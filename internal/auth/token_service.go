package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dicri-gt/dicri-backend/pkg/logger"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL defines the fallback validity period for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	refreshTokenType = "refresh"
)

var errNotRefreshToken = errors.New("jwt: token is not a refresh token")

// TokenConfig bundles the configuration required to build a TokenService.
// Access and refresh tokens are signed with separate secrets.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs. The refresh
// token additionally carries TokenType == "refresh".
type Claims struct {
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the numeric user identifier from the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("jwt: invalid subject claim: %w", err)
	}
	return uint(id), nil
}

// HasRole reports whether the given role key is present in the claims.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenInput holds the identity baked into newly issued token pairs.
type TokenInput struct {
	UserID   uint
	Username string
	Roles    []string
}

// TokenService issues and validates the access/refresh JWT pair.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService constructs a TokenService. Both secrets are required; a
// shared secret is tolerated but logged because the type claim is the only
// remaining guard between the two token families.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("jwt: access secret must be provided")
	}
	if cfg.RefreshSecret == "" {
		return nil, errors.New("jwt: refresh secret must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		logger.WithModule("auth").Warn("access and refresh secrets are identical; configure distinct values")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}, nil
}

// AccessTTL exposes the access token lifetime for login responses.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL exposes the refresh token lifetime for cookie expiry.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken issues a signed access token for the supplied identity.
func (s *TokenService) GenerateAccessToken(input TokenInput) (string, error) {
	return s.generate(input, "", s.accessSecret, s.accessTTL)
}

// GenerateRefreshToken issues a signed refresh token carrying the refresh type claim.
func (s *TokenService) GenerateRefreshToken(input TokenInput) (string, error) {
	return s.generate(input, refreshTokenType, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) generate(input TokenInput, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	if input.UserID == 0 {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()

	claims := &Claims{
		Username:  input.Username,
		Roles:     cloneRoles(input.Roles),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(input.UserID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates an access token. Refresh tokens
// are rejected even when both secrets happen to match.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.accessSecret)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != "" {
		return nil, errors.New("jwt: token is not an access token")
	}

	return claims, nil
}

// ValidateRefreshToken parses and validates a refresh token. The type claim
// is checked independently of the signing secret, so an access token signed
// with an identical secret still fails here.
func (s *TokenService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != refreshTokenType {
		return nil, errNotRefreshToken
	}

	return claims, nil
}

func (s *TokenService) parse(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.Subject == "" {
		return nil, errors.New("jwt: missing subject claim")
	}

	return &claims, nil
}

// cloneRoles guards against accidental external mutation of the role slice.
func cloneRoles(roles []string) []string {
	if len(roles) == 0 {
		return []string{}
	}

	cpy := make([]string, len(roles))
	copy(cpy, roles)
	return cpy
}
