package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string   `gorm:"not null" json:"name"`
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	Password     string   `gorm:"not null" json:"-"`
	Departamento string   `gorm:"not null;index" json:"departamento"`
	Roles        []string `gorm:"serializer:json;type:text;not null" json:"roles"` // canonical role names
	IsActive     bool     `gorm:"not null;default:true" json:"isActive"`

	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// HasRole checks if the user holds role (exact, canonical match)
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Label is the human-readable name used on assignments
func (u *User) Label() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
