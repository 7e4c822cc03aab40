package auth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// HashPassword hashes with bcrypt at the configured cost. Cost is tuned so
// verification takes tens of milliseconds.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash. A mismatch is
// (false, nil); anything else (corrupt hash, bad cost) is an internal error,
// never silently treated as "no match".
func CheckPassword(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

// RecordFailedLogin bumps the failed-attempt counter and sets locked_until in
// one statement, so concurrent bad logins can't lose updates. Returns the new
// attempt count.
func RecordFailedLogin(d *gorm.DB, userID string, maxAttempts int, lockFor time.Duration) (int, error) {
	var attempts int
	err := d.Raw(`
		UPDATE kb_auth.users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END,
		    updated_at = now()
		WHERE user_id = ?
		RETURNING failed_login_attempts`,
		maxAttempts, time.Now().Add(lockFor), userID,
	).Scan(&attempts).Error
	if err != nil {
		return 0, fmt.Errorf("record failed login: %w", err)
	}
	return attempts, nil
}

// ClearLoginFailures resets the counter and lockout after a successful login.
func ClearLoginFailures(d *gorm.DB, userID string) error {
	return d.Model(&User{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
}
