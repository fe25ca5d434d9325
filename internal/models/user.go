package models

import "time"

// User is the profile of a signed-in identity. UID is the identity
// provider's stable subject and keys every other row.
type User struct {
	UID       string    `gorm:"primaryKey;size:128" json:"uid"`
	Name      string    `gorm:"size:128" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	PhotoURL  string    `gorm:"size:1024" json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
