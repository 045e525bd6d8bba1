package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/pkg/crypto"
)

// DefaultAdminPassword is the bootstrap credential for the seeded admin
// account. It must be rotated after first login in real deployments.
const DefaultAdminPassword = "Admin123!"

// AutoMigrate creates or updates the database schema for all models. Both
// sides of the role/permission relation must be bound to the custom join
// model, otherwise AutoMigrate falls back to a bare two-column table and the
// grant attribution columns are lost.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Role{}, "Permissions", &models.RolePermission{}); err != nil {
		return fmt.Errorf("setup role_permissions join table: %w", err)
	}
	if err := db.SetupJoinTable(&models.Permission{}, "Roles", &models.RolePermission{}); err != nil {
		return fmt.Errorf("setup role_permissions join table: %w", err)
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.MFASecret{},
		&models.Expediente{},
		&models.Indicio{},
		&models.AuditLog{},
	)
}

// SeedData populates the permission catalog, the default roles with their
// grants, and the bootstrap admin account. All inserts are idempotent.
func SeedData(db *gorm.DB) error {
	if err := seedPermissions(db); err != nil {
		return err
	}
	if err := seedRoles(db); err != nil {
		return err
	}
	if err := seedAdminUser(db); err != nil {
		return err
	}
	return nil
}

func seedPermissions(db *gorm.DB) error {
	catalog := []models.Permission{
		{Key: "expediente.create", Description: "Crear expedientes"},
		{Key: "expediente.read", Description: "Consultar expedientes"},
		{Key: "expediente.update", Description: "Actualizar expedientes"},
		{Key: "expediente.review", Description: "Revisar expedientes"},
		{Key: "indicio.create", Description: "Registrar indicios"},
		{Key: "indicio.read", Description: "Consultar indicios"},
		{Key: "indicio.update", Description: "Actualizar indicios"},
		{Key: "users.read", Description: "Consultar usuarios"},
		{Key: "users.write", Description: "Administrar usuarios"},
		{Key: "roles.read", Description: "Consultar roles"},
		{Key: "roles.write", Description: "Administrar roles"},
		{Key: "perms.read", Description: "Consultar permisos"},
		{Key: "perms.write", Description: "Otorgar y revocar permisos"},
	}

	for _, perm := range catalog {
		if err := db.Where(models.Permission{Key: perm.Key}).Attrs(perm).FirstOrCreate(&models.Permission{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedRoles(db *gorm.DB) error {
	roles := []struct {
		role  models.Role
		perms []string
	}{
		{
			role: models.Role{Key: "admin", Name: "Administrador", Description: "Acceso total al sistema"},
			perms: []string{
				"expediente.create", "expediente.read", "expediente.update", "expediente.review",
				"indicio.create", "indicio.read", "indicio.update",
				"users.read", "users.write",
				"roles.read", "roles.write",
				"perms.read", "perms.write",
			},
		},
		{
			role: models.Role{Key: "coordinador", Name: "Coordinador", Description: "Supervisión de expedientes"},
			perms: []string{
				"expediente.read", "expediente.review",
				"indicio.read",
				"users.read", "roles.read", "perms.read",
			},
		},
		{
			role: models.Role{Key: "tecnico", Name: "Técnico", Description: "Registro de expedientes e indicios"},
			perms: []string{
				"expediente.create", "expediente.read", "expediente.update",
				"indicio.create", "indicio.read", "indicio.update",
			},
		},
	}

	for _, entry := range roles {
		if err := db.Where(models.Role{Key: entry.role.Key}).Attrs(entry.role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
		if err := assignRolePermissions(db, entry.role.Key, entry.perms); err != nil {
			return err
		}
	}
	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(DefaultAdminPassword)
	if err != nil {
		return err
	}

	var adminRole models.Role
	if err := db.Where("key = ?", "admin").First(&adminRole).Error; err != nil {
		return err
	}

	email := "admin@dicri.gob.gt"
	admin := models.User{
		Username:     "admin",
		Email:        &email,
		PasswordHash: hash,
		IsActive:     true,
		Roles:        []models.Role{adminRole},
	}
	return db.Create(&admin).Error
}

func assignRolePermissions(db *gorm.DB, roleKey string, permissionKeys []string) error {
	if len(permissionKeys) == 0 {
		return nil
	}

	var role models.Role
	if err := db.Where("key = ?", roleKey).First(&role).Error; err != nil {
		return err
	}

	var perms []models.Permission
	if err := db.Where("key IN ?", permissionKeys).Find(&perms).Error; err != nil {
		return err
	}

	for _, perm := range perms {
		grant := models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
		if err := db.Where(models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).
			FirstOrCreate(&grant).Error; err != nil {
			return err
		}
	}
	return nil
}
