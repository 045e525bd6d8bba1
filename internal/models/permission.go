package models

import "time"

type Permission struct {
	BaseModel

	Key         string `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Description string `json:"description"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"-"`
}

// RolePermission is the join row behind role grants. It records which
// administrator performed the grant; seed grants carry a NULL actor.
type RolePermission struct {
	RoleID       uint  `gorm:"primaryKey" json:"role_id"`
	PermissionID uint  `gorm:"primaryKey" json:"permission_id"`
	GrantedBy    *uint `json:"granted_by"`

	CreatedAt time.Time `json:"created_at"`
}
