// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Bio and Image are optional; nil serialises to JSON null, which is what
// Conduit clients expect for an unset profile field.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password"`
	Bio          *string   `json:"bio"       db:"bio"`
	Image        *string   `json:"image"     db:"image"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserUpdate carries a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Email    *string
	Username *string
	Password *string
	Bio      *string
	Image    *string
}

// Profile is a user as seen by a viewer.
type Profile struct {
	Username  string
	Bio       *string
	Image     *string
	Following bool
}

// ProfileOf builds the viewer-relative profile of u.
func ProfileOf(u User, following bool) Profile {
	return Profile{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     u.Image,
		Following: following,
	}
}
