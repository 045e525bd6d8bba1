package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dicri-gt/dicri-backend/internal/models"
)

// ErrUserNotFound signals that no user matched the supplied username.
var ErrUserNotFound = errors.New("auth: user not found")

// LockState reports the failure counter after a registered failed attempt.
type LockState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// UserStore is the persistence boundary for credential verification. Every
// implementation must bound its calls with a timeout so that a slow backend
// cannot stall the login path.
type UserStore interface {
	// FindByUsername loads the user with roles preloaded, or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// RegisterFailure atomically increments the failed-attempt counter and,
	// when the post-increment count reaches threshold, stamps lockUntil in
	// the same statement. For unknown usernames it is a no-op returning nil.
	RegisterFailure(ctx context.Context, username string, lockUntil time.Time, threshold int) (*LockState, error)

	// RegisterSuccess resets the failure counter and lock, and records the
	// login timestamp.
	RegisterSuccess(ctx context.Context, userID uint, at time.Time) error
}
