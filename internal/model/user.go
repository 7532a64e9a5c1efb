package model

import "time"

// User is an account record. Email and phone are stored normalized
// (lowercase NFC email, E.164 phone) and each identify at most one user.
// TokenVersion advances on every password change; session tokens minted
// against an older version are rejected by the session guard.
type User struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Phone        string    `gorm:"column:phone;uniqueIndex:idx_users_phone,where:phone <> ''"`
	GoogleID     string    `gorm:"column:google_id;uniqueIndex:idx_users_google_id,where:google_id <> ''"`
	PasswordHash string    `gorm:"column:password_hash"`
	PasswordSalt string    `gorm:"column:password_salt"`
	TokenVersion int       `gorm:"column:token_version;default:0;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// HasPassword reports whether a password credential is set for the user.
func (u *User) HasPassword() bool {
	return u.PasswordHash != "" && u.PasswordSalt != ""
}
