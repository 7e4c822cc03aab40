package auth

import (
	"fmt"
	"time"
)

// Role is a closed enumeration. Unknown values are rejected at parse time so
// role gates never see a string they don't recognize.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ParseRole validates a role string arriving from the outside (JWT claims,
// admin requests, seed data).
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	UserID              string     `gorm:"primaryKey" json:"user_id"`
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword      string     `gorm:"not null" json:"-"`
	Name                string     `json:"name"`
	Role                Role       `gorm:"type:text;default:'VIEWER'" json:"role"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	EmailVerified       *time.Time `json:"email_verified"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Session is one active device login. RefreshToken is an opaque bearer value;
// once a token is rotated or its row deleted, it never matches again.
type Session struct {
	SessionID    string    `gorm:"primaryKey" json:"session_id"`
	UserID       string    `gorm:"index;not null" json:"-"`
	RefreshToken string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
	CreatedAt    time.Time `json:"created_at"`
}

// PasswordResetToken is single-use. Issuing a new one marks all prior unused
// tokens for the user as used; redemption flips Used in the same transaction
// as the password change.
type PasswordResetToken struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

type EmailVerificationToken struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (User) TableName() string                   { return "kb_auth.users" }
func (Session) TableName() string                { return "kb_auth.sessions" }
func (PasswordResetToken) TableName() string     { return "kb_auth.password_reset_tokens" }
func (EmailVerificationToken) TableName() string { return "kb_auth.email_verification_tokens" }
