package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/pkg/crypto"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserService implements user administration.
type UserService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewUserService constructs the user service.
func NewUserService(db *gorm.DB, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("users: db is required")
	}
	return &UserService{db: db, audit: audit}, nil
}

// CreateUserInput captures the fields accepted when creating an account.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	RoleKeys    []string
	MFARequired bool
}

// Create registers a new account with the given roles. Email is optional.
func (s *UserService) Create(ctx context.Context, input CreateUserInput, createdBy uint) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || input.Password == "" {
		return nil, appErrors.NewValidation("username y password son obligatorios")
	}

	dup := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
	if email != "" {
		dup = s.db.WithContext(ctx).Model(&models.User{}).
			Where("username = ? OR email = ?", username, email)
	}

	var count int64
	if err := dup.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("users: check uniqueness: %w", err)
	}
	if count > 0 {
		return nil, appErrors.ErrConflict
	}

	roles, err := s.resolveRoles(ctx, input.RoleKeys)
	if err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		MFARequired:  input.MFARequired,
		Roles:        roles,
	}
	if email != "" {
		user.Email = &email
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("users: create: %w", err)
	}

	s.recordAudit(ctx, createdBy, "users.create", username)
	return &user, nil
}

// List returns a page of users matching the optional username/email query.
func (s *UserService) List(ctx context.Context, query string, page, pageSize int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	tx := s.db.WithContext(ctx).Model(&models.User{})
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + q + "%"
		tx = tx.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	var users []models.User
	err := tx.Preload("Roles").
		Order("username").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}

	return users, total, nil
}

// Get loads a user with roles preloaded.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return &user, nil
}

// UpdateUserInput holds the mutable account fields; nil means unchanged.
type UpdateUserInput struct {
	Email       *string
	IsActive    *bool
	MFARequired *bool
	RoleKeys    *[]string
}

// Update patches a user account.
func (s *UserService) Update(ctx context.Context, id uint, input UpdateUserInput, updatedBy uint) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			updates["email"] = nil
		} else {
			updates["email"] = email
		}
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.MFARequired != nil {
		updates["mfa_required"] = *input.MFARequired
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("users: update: %w", err)
		}
	}

	if input.RoleKeys != nil {
		roles, err := s.resolveRoles(ctx, *input.RoleKeys)
		if err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(user).Association("Roles").Replace(roles); err != nil {
			return nil, fmt.Errorf("users: replace roles: %w", err)
		}
	}

	s.recordAudit(ctx, updatedBy, "users.update", user.Username)
	return s.Get(ctx, id)
}

// SetPassword replaces the stored credential.
func (s *UserService) SetPassword(ctx context.Context, id uint, password string, updatedBy uint) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"password_hash":   hash,
		"failed_attempts": 0,
		"locked_until":    nil,
	}).Error
	if err != nil {
		return fmt.Errorf("users: set password: %w", err)
	}

	s.recordAudit(ctx, updatedBy, "users.set_password", user.Username)
	return nil
}

// Disable deactivates an account. Disabled users fail login with the same
// generic error as wrong credentials.
func (s *UserService) Disable(ctx context.Context, id uint, disabledBy uint) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("users: disable: %w", err)
	}

	s.recordAudit(ctx, disabledBy, "users.disable", user.Username)
	return nil
}

func (s *UserService) resolveRoles(ctx context.Context, keys []string) ([]models.Role, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var roles []models.Role
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("users: resolve roles: %w", err)
	}
	if len(roles) != len(keys) {
		return nil, appErrors.NewNotFound("uno o más roles no existen")
	}
	return roles, nil
}

func (s *UserService) recordAudit(ctx context.Context, actor uint, action, resource string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, AuditEntry{
		UserID:   &actor,
		Action:   action,
		Resource: resource,
		Result:   "success",
	})
}
