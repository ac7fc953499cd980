package models

import (
	"time"
)

// UserStatus is the closed set of account states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
	UserStatusPending   UserStatus = "pending"
)

// User represents an account in the directory. The post core only consumes
// ID and Status; the remaining profile fields back the auth and profile
// endpoints.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:180;uniqueIndex;not null" json:"username"`
	Email    string `gorm:"size:180;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`

	Bio       string     `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL string     `gorm:"size:255" json:"avatar_url,omitempty"`
	BannerURL string     `gorm:"size:255" json:"banner_url,omitempty"`
	Location  string     `gorm:"size:255" json:"location,omitempty"`
	Website   string     `gorm:"size:255" json:"website,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`

	IsVerified      bool       `gorm:"not null;default:false" json:"is_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`

	Status   UserStatus `gorm:"size:20;not null;default:active" json:"status"`
	Language string     `gorm:"size:10;not null;default:fr" json:"language"`
	Timezone string     `gorm:"size:50;not null;default:Europe/Paris" json:"timezone"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}
