package entities

import "time"

// User represents a user record in the database
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	Address      string    `json:"address"`
	ProfileImage *string   `json:"profile_image,omitempty"` // Storage path relative to the disk root, nil when no image
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasImage reports whether the user has a stored profile image.
func (u *User) HasImage() bool {
	return u.ProfileImage != nil && *u.ProfileImage != ""
}
