package models

type Role struct {
	BaseModel

	Key         string `gorm:"uniqueIndex;size:50;not null" json:"key"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles;" json:"-"`
}
