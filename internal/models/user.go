package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User mirrors the identity provider record. The source of truth is Casdoor;
// the role is resolved from token claims, not persisted here.
type User struct {
	ID            string   `json:"id" gorm:"primaryKey;size:255"`
	FullName      string   `json:"full_name" gorm:"not null;size:255"`
	Email         string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role          UserRole `json:"role" gorm:"-"`
	AvatarURL     *string  `json:"avatar_url,omitempty" gorm:"size:500"`
	EmailVerified bool     `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
