package permissions

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Checker resolves a user's effective permission set. The set is the flat
// union of the grants of every role assigned to the user; it is always read
// live from the database so that revocations take effect before the user's
// access token expires.
type Checker struct {
	db *gorm.DB
}

// NewChecker builds a Checker bound to the given database handle.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permissions: db is required")
	}
	return &Checker{db: db}, nil
}

// UserPermissions returns the sorted, de-duplicated permission keys granted
// to the user through any of their roles.
func (c *Checker) UserPermissions(ctx context.Context, userID uint) ([]string, error) {
	keys := make([]string, 0, 16)
	err := c.db.WithContext(ctx).
		Table("permissions").
		Distinct("permissions.key").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Order("permissions.key").
		Pluck("permissions.key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// HasAny reports whether the user holds at least one of the given permission keys.
func (c *Checker) HasAny(ctx context.Context, userID uint, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}

	var count int64
	err := c.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.key IN ?", userID, keys).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
