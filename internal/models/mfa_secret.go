package models

import "time"

// MFASecret stores the encrypted TOTP material for a user. Secret and
// BackupCodes are AES-GCM encrypted with the configured MFA key.
type MFASecret struct {
	BaseModel

	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Secret      string `gorm:"not null" json:"-"`
	BackupCodes string `json:"-"`

	Activated  bool       `gorm:"default:false" json:"activated"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
