package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSessionNotFound covers both "no such refresh token" and "token already
// rotated" — callers must not be able to tell the difference.
var ErrSessionNotFound = errors.New("session not found")

// CreateSession records a new device login.
func CreateSession(d *gorm.DB, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*Session, error) {
	session := &Session{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
	}
	if err := d.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// FindSessionByRefreshToken looks up the session a refresh token belongs to.
func FindSessionByRefreshToken(d *gorm.DB, token string) (*Session, error) {
	var session Session
	err := d.First(&session, "refresh_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// RotateSession swaps in the new refresh token and extends expiry as one
// conditional UPDATE. The old-token predicate makes rotation the reuse check:
// if another request already rotated this session, zero rows match and the
// caller sees ErrSessionNotFound.
func RotateSession(d *gorm.DB, sessionID, oldToken, newToken string, newExpiry time.Time) error {
	res := d.Model(&Session{}).
		Where("session_id = ? AND refresh_token = ?", sessionID, oldToken).
		Updates(map[string]interface{}{
			"refresh_token": newToken,
			"expires_at":    newExpiry,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSessionByRefreshToken removes the session matching (userID, token).
// Deleting a token that no longer matches is not an error — logout is
// idempotent.
func DeleteSessionByRefreshToken(d *gorm.DB, userID, token string) error {
	return d.Where("user_id = ? AND refresh_token = ?", userID, token).Delete(&Session{}).Error
}

// DeleteAllSessions revokes every device login for the user.
func DeleteAllSessions(d *gorm.DB, userID string) error {
	return d.Where("user_id = ?", userID).Delete(&Session{}).Error
}

// DeleteSessionByID removes one session, scoped to the owning user. Returns
// false if no session of that user matched.
func DeleteSessionByID(d *gorm.DB, userID, sessionID string) (bool, error) {
	res := d.Where("session_id = ? AND user_id = ?", sessionID, userID).Delete(&Session{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListSessions returns the user's active sessions for the session-management UI.
func ListSessions(d *gorm.DB, userID string) ([]Session, error) {
	var sessions []Session
	if err := d.Where("user_id = ?", userID).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
