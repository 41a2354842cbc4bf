package models

import "time"

// Roles a user can hold. There are only two; the ADMIN role unlocks the
// catalog management and suggestion moderation endpoints.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an authenticated library member.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed in JSON
	Role         string    `gorm:"size:16;not null;default:'USER'" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Session is a server-side login session. The token travels in an httpOnly
// cookie; every request resolves it back to a user with a database lookup.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool { return time.Now().After(s.ExpiresAt) }
