package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
)

const defaultStoreTimeout = 5 * time.Second

// GormUserStore implements UserStore on top of gorm.
type GormUserStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormUserStore builds the store. A non-positive timeout falls back to 5s.
func NewGormUserStore(db *gorm.DB, timeout time.Duration) (*GormUserStore, error) {
	if db == nil {
		return nil, errors.New("auth: db is required")
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &GormUserStore{db: db, timeout: timeout}, nil
}

func (s *GormUserStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

// FindByUsername loads the user with roles preloaded.
func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: query user: %w", err)
	}
	return &user, nil
}

// RegisterFailure increments the counter and stamps the lock in one UPDATE.
// The CASE expression evaluates against the pre-update row, so the increment
// and the threshold comparison cannot race with concurrent attempts.
func (s *GormUserStore) RegisterFailure(ctx context.Context, username string, lockUntil time.Time, threshold int) (*LockState, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Updates(map[string]any{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"locked_until":    gorm.Expr("CASE WHEN failed_attempts + 1 >= ? THEN ? ELSE locked_until END", threshold, lockUntil),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("auth: register failed attempt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Unknown username: nothing to track.
		return nil, nil
	}

	var state LockState
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("failed_attempts", "locked_until").
		Where("username = ?", username).
		Take(&state).Error
	if err != nil {
		return nil, fmt.Errorf("auth: read lock state: %w", err)
	}
	return &state, nil
}

// RegisterSuccess clears the failure counter and records the login time.
func (s *GormUserStore) RegisterSuccess(ctx context.Context, userID uint, at time.Time) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"failed_attempts": 0,
			"locked_until":    nil,
			"last_login_at":   at,
		}).Error
	if err != nil {
		return fmt.Errorf("auth: register successful login: %w", err)
	}
	return nil
}
