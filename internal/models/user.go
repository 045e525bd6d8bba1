package models

import "time"

// User describes an account that can sign in to the DICRI backend.
type User struct {
	BaseModel

	Username     string  `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        *string `gorm:"uniqueIndex;size:120" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`

	IsActive    bool `gorm:"default:true" json:"is_active"`
	MFARequired bool `gorm:"default:false" json:"mfa_required"`

	MFASecret *MFASecret `gorm:"foreignKey:UserID" json:"-"`
	Roles     []Role     `gorm:"many2many:user_roles;" json:"roles,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
}

// RoleKeys returns the keys of the roles loaded on the user.
func (u *User) RoleKeys() []string {
	keys := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		keys = append(keys, role.Key)
	}
	return keys
}
