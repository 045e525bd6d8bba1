package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/pkg/crypto"
	"github.com/dicri-gt/dicri-backend/pkg/logger"
	"github.com/dicri-gt/dicri-backend/pkg/metrics"
)

const (
	// DefaultLockoutThreshold is the number of failed attempts that locks an account.
	DefaultLockoutThreshold = 3
	// DefaultLockoutDuration is how long an account stays locked.
	DefaultLockoutDuration = 15 * time.Minute
)

// Outcome is the result category of a credential verification.
type Outcome int

const (
	// OutcomeSuccess means the credentials were accepted.
	OutcomeSuccess Outcome = iota
	// OutcomeInvalid covers unknown users, disabled accounts and wrong passwords.
	OutcomeInvalid
	// OutcomeLocked means the account is under an active lockout window.
	OutcomeLocked
)

// Result carries the verification outcome. User and Roles are only populated
// on success; RemainingAttempts and LockedUntil feed the login responses.
type Result struct {
	Outcome           Outcome
	User              *models.User
	Roles             []string
	RemainingAttempts int
	LockedUntil       *time.Time
}

// VerifierConfig defines tunable lockout behaviour.
type VerifierConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// Verifier implements username/password verification with account lockout.
type Verifier struct {
	store     UserStore
	threshold int
	duration  time.Duration
	clock     func() time.Time
	log       *zap.Logger
}

// NewVerifier builds a Verifier with sane defaults.
func NewVerifier(store UserStore, cfg VerifierConfig) (*Verifier, error) {
	if store == nil {
		return nil, errors.New("auth: user store is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &Verifier{
		store:     store,
		threshold: threshold,
		duration:  duration,
		clock:     clock,
		log:       logger.WithModule("auth"),
	}, nil
}

// Verify checks the supplied credentials. Every non-success path resolves to
// the same generic invalid outcome except an active lockout, which is
// reported before any hash comparison so that a locked account with correct
// credentials is indistinguishable from one with wrong credentials.
func (v *Verifier) Verify(ctx context.Context, username, password string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Result{Outcome: OutcomeInvalid, RemainingAttempts: v.threshold}, nil
	}

	now := v.clock()

	user, err := v.store.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// Still register the attempt; the store no-ops on unknown usernames
		// and the response stays generic either way.
		return v.failed(ctx, username, now), nil
	}
	if err != nil {
		return Result{}, err
	}

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return Result{Outcome: OutcomeLocked, LockedUntil: user.LockedUntil}, nil
	}

	if !user.IsActive {
		return v.failed(ctx, username, now), nil
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return v.failed(ctx, username, now), nil
	}

	if err := v.store.RegisterSuccess(ctx, user.ID, now); err != nil {
		// Bookkeeping failures are logged, never surfaced to the caller.
		v.log.Error("failed to record successful login", zap.String("username", username), zap.Error(err))
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return Result{
		Outcome: OutcomeSuccess,
		User:    user,
		Roles:   user.RoleKeys(),
	}, nil
}

func (v *Verifier) failed(ctx context.Context, username string, now time.Time) Result {
	state, err := v.store.RegisterFailure(ctx, username, now.Add(v.duration), v.threshold)
	if err != nil {
		v.log.Error("failed to record failed login attempt", zap.String("username", username), zap.Error(err))
	}

	metrics.AuthAttempts.WithLabelValues("failure").Inc()

	// The attempt that trips the threshold still reports as a generic
	// failure, carrying the fresh lockout timestamp. Only attempts made
	// while the window is already active resolve to OutcomeLocked.
	result := Result{Outcome: OutcomeInvalid, RemainingAttempts: remaining(v.threshold, 1)}
	if state == nil {
		return result
	}

	result.RemainingAttempts = remaining(v.threshold, state.FailedAttempts)
	if state.LockedUntil != nil && state.LockedUntil.After(now) {
		metrics.AccountLockouts.Inc()
		result.LockedUntil = state.LockedUntil
	}
	return result
}

func remaining(threshold, attempts int) int {
	left := threshold - attempts
	if left < 0 {
		return 0
	}
	return left
}
