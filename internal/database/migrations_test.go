package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dicri-gt/dicri-backend/internal/database"
	"github.com/dicri-gt/dicri-backend/internal/database/testutil"
	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/pkg/crypto"
)

func TestSeedDataCreatesDefaults(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	var roles []models.Role
	require.NoError(t, db.Order("key").Find(&roles).Error)
	require.Len(t, roles, 3)
	require.Equal(t, "admin", roles[0].Key)
	require.Equal(t, "coordinador", roles[1].Key)
	require.Equal(t, "tecnico", roles[2].Key)

	var permCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permCount).Error)
	require.EqualValues(t, 13, permCount)

	var admin models.User
	require.NoError(t, db.Preload("Roles").Where("username = ?", "admin").First(&admin).Error)
	require.True(t, admin.IsActive)
	require.True(t, crypto.VerifyPassword(admin.PasswordHash, database.DefaultAdminPassword))
	require.Len(t, admin.Roles, 1)
	require.Equal(t, "admin", admin.Roles[0].Key)
}

func TestMigrationKeepsGrantAttributionColumns(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	// Both sides of the many-to-many must map to the custom join model or
	// AutoMigrate degrades role_permissions to a bare two-column table.
	require.True(t, db.Migrator().HasColumn(&models.RolePermission{}, "granted_by"))
	require.True(t, db.Migrator().HasColumn(&models.RolePermission{}, "created_at"))

	var role models.Role
	require.NoError(t, db.Where("key = ?", "admin").First(&role).Error)
	var perm models.Permission
	require.NoError(t, db.Where("key = ?", "users.write").First(&perm).Error)

	actor := uint(7)
	require.NoError(t, db.Model(&models.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
		Update("granted_by", actor).Error)

	var grant models.RolePermission
	require.NoError(t, db.
		Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
		First(&grant).Error)
	require.NotNil(t, grant.GrantedBy)
	require.Equal(t, actor, *grant.GrantedBy)
}

func TestSeedDataIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	require.NoError(t, database.SeedData(db))

	var userCount, grantCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.EqualValues(t, 1, userCount)

	require.NoError(t, db.Model(&models.RolePermission{}).
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("roles.key = ?", "admin").
		Count(&grantCount).Error)
	require.EqualValues(t, 13, grantCount)
}
