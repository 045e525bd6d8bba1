package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
)

// RBACService administers roles, the permission catalog and role grants.
type RBACService struct {
	db      *gorm.DB
	checker *permissions.Checker
	audit   *AuditService
}

// NewRBACService constructs the RBAC service.
func NewRBACService(db *gorm.DB, checker *permissions.Checker, audit *AuditService) (*RBACService, error) {
	if db == nil {
		return nil, errors.New("rbac: db is required")
	}
	if checker == nil {
		return nil, errors.New("rbac: checker is required")
	}
	return &RBACService{db: db, checker: checker, audit: audit}, nil
}

// ListRoles returns every role with its current grants preloaded.
func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("key").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	return roles, nil
}

// ListPermissions returns the full permission catalog.
func (s *RBACService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := s.db.WithContext(ctx).Order("key").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	return perms, nil
}

// Grant adds a permission to a role. Granting an already-granted permission
// is a no-op; unknown role or permission keys yield NotFound.
func (s *RBACService) Grant(ctx context.Context, roleKey, permissionKey string, grantedBy uint) error {
	role, perm, err := s.resolvePair(ctx, roleKey, permissionKey)
	if err != nil {
		return err
	}

	actor := grantedBy
	grant := models.RolePermission{RoleID: role.ID, PermissionID: perm.ID, GrantedBy: &actor}
	err = s.db.WithContext(ctx).
		Where(models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).
		FirstOrCreate(&grant).Error
	if err != nil {
		return fmt.Errorf("rbac: grant: %w", err)
	}

	s.recordAudit(ctx, grantedBy, "rbac.grant", roleKey, permissionKey)
	return nil
}

// Revoke removes a permission from a role. Revoking an absent grant is a
// no-op; unknown role or permission keys yield NotFound.
func (s *RBACService) Revoke(ctx context.Context, roleKey, permissionKey string, revokedBy uint) error {
	role, perm, err := s.resolvePair(ctx, roleKey, permissionKey)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
		Delete(&models.RolePermission{}).Error
	if err != nil {
		return fmt.Errorf("rbac: revoke: %w", err)
	}

	s.recordAudit(ctx, revokedBy, "rbac.revoke", roleKey, permissionKey)
	return nil
}

// UserPermissions resolves the effective permission set for a user.
func (s *RBACService) UserPermissions(ctx context.Context, userID uint) ([]string, error) {
	return s.checker.UserPermissions(ctx, userID)
}

func (s *RBACService) resolvePair(ctx context.Context, roleKey, permissionKey string) (*models.Role, *models.Permission, error) {
	var role models.Role
	err := s.db.WithContext(ctx).Where("key = ?", roleKey).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, appErrors.NewNotFound(fmt.Sprintf("rol %q no existe", roleKey))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rbac: load role: %w", err)
	}

	var perm models.Permission
	err = s.db.WithContext(ctx).Where("key = ?", permissionKey).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, appErrors.NewNotFound(fmt.Sprintf("permiso %q no existe", permissionKey))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rbac: load permission: %w", err)
	}

	return &role, &perm, nil
}

func (s *RBACService) recordAudit(ctx context.Context, actor uint, action, roleKey, permissionKey string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, AuditEntry{
		UserID:   &actor,
		Action:   action,
		Resource: roleKey,
		Result:   "success",
		Metadata: map[string]any{"permission": permissionKey},
	})
}
