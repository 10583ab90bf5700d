package models

import "time"

// Profile is the public identity of a user. The row shares its ID with
// the identity service's user and is created lazily on first sign-in
// if absent.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Name      string    `gorm:"not null" json:"name"`
	Bio       string    `gorm:"type:text" json:"bio"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
