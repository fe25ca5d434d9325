package models

import "time"

// Session stores user login sessions (for logout, invalidation, audit).
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"` // e.g. UUID
	UserID    string    `gorm:"index;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	Revoked   bool      `gorm:"index;not null"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;references:UID;constraint:OnDelete:CASCADE"`
}
