// Package model defines domain entities for the application.
package model

import "time"

// User is an account that owns tasks.
// PasswordHash is opaque to everything except the credential store.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
