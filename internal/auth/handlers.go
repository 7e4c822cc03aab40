package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/knowledgebase/kb-backend/internal/config"
	"github.com/knowledgebase/kb-backend/internal/db"
	"github.com/knowledgebase/kb-backend/internal/httputil"
	"github.com/knowledgebase/kb-backend/internal/middleware"
	"github.com/knowledgebase/kb-backend/internal/utils"
	"gorm.io/gorm"
)

// Handler orchestrates the auth flows against the credential store, token
// service and session registry. Config is injected so tests can run with
// short token lifetimes.
type Handler struct {
	cfg    config.Config
	tokens *TokenService
	mailer Mailer
}

func NewHandler(cfg config.Config, tokens *TokenService, mailer Mailer) *Handler {
	return &Handler{cfg: cfg, tokens: tokens, mailer: mailer}
}

type authResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// invalidCredentials is the single code path for both "unknown email" and
// "wrong password", so the two can never drift apart and leak which one
// happened.
func invalidCredentials(w http.ResponseWriter, remaining int) {
	httputil.WriteErrorDetails(w, http.StatusUnauthorized,
		httputil.CodeInvalidCredentials, "invalid email or password",
		map[string]int{"remaining_attempts": remaining})
}

// RegisterHandler creates a User (always VIEWER), a first Session and an
// email verification token. Verification is not required before login.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if fields := ValidateRegistration(req.Email, req.Password, req.Name); len(fields) > 0 {
		httputil.WriteValidationError(w, fields)
		return
	}

	var existing User
	err := db.DB.First(&existing, "email = ?", req.Email).Error
	if err == nil {
		httputil.WriteError(w, http.StatusConflict, httputil.CodeEmailExists, "email already registered")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[auth] register lookup error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	hashed, err := HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		log.Printf("[auth] register hash error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	user := &User{
		UserID:         uuid.NewString(),
		Email:          req.Email,
		HashedPassword: hashed,
		Name:           req.Name,
		Role:           RoleViewer,
	}

	refreshToken, err := h.tokens.NewRefreshToken()
	if err != nil {
		log.Printf("[auth] register token error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	verifyToken, err := h.tokens.NewSecureToken()
	if err != nil {
		log.Printf("[auth] register token error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	// Signed before the transaction so a signing failure leaves no rows behind.
	accessToken, err := h.tokens.IssueAccessToken(user.UserID, user.Email, user.Role)
	if err != nil {
		log.Printf("[auth] register sign error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if _, err := CreateSession(tx, user.UserID, refreshToken, h.tokens.RefreshTokenExpiry(),
			r.UserAgent(), middleware.ClientIP(r)); err != nil {
			return err
		}
		return tx.Create(&EmailVerificationToken{
			ID:        uuid.NewString(),
			UserID:    user.UserID,
			Token:     verifyToken,
			ExpiresAt: time.Now().Add(h.cfg.VerifyTokenTTL),
		}).Error
	})
	if err != nil {
		log.Printf("[auth] register create error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	h.mailer.SendEmailVerification(user.Email, verifyToken)
	log.Printf("[auth] user registered: %s", user.UserID)

	httputil.WriteJSON(w, http.StatusCreated, authResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LoginHandler verifies credentials with account lockout. The failed-attempt
// counter is bumped in a single UPDATE so concurrent bad logins can't lose
// updates.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}

	var user User
	err := db.DB.First(&user, "email = ?", normalizeEmail(req.Email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Same response as a wrong password; a first failure would leave
		// max-1 attempts, so report that.
		invalidCredentials(w, h.cfg.MaxLoginAttempts-1)
		return
	}
	if err != nil {
		log.Printf("[auth] login lookup error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	// Locked accounts are rejected before the password is ever consulted.
	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		httputil.WriteErrorDetails(w, http.StatusLocked, httputil.CodeAccountLocked,
			"account temporarily locked", map[string]string{
				"locked_until": user.LockedUntil.UTC().Format(time.RFC3339),
			})
		return
	}

	match, err := CheckPassword(req.Password, user.HashedPassword)
	if err != nil {
		log.Printf("[auth] login verify error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if !match {
		attempts, err := RecordFailedLogin(db.DB, user.UserID, h.cfg.MaxLoginAttempts, h.cfg.LockoutDuration)
		if err != nil {
			log.Printf("[auth] login counter error: %v", err)
			httputil.WriteInternalError(w)
			return
		}
		remaining := h.cfg.MaxLoginAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		invalidCredentials(w, remaining)
		return
	}

	if err := ClearLoginFailures(db.DB, user.UserID); err != nil {
		log.Printf("[auth] login reset error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	refreshToken, err := h.tokens.NewRefreshToken()
	if err != nil {
		log.Printf("[auth] login token error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if _, err := CreateSession(db.DB, user.UserID, refreshToken, h.tokens.RefreshTokenExpiry(),
		r.UserAgent(), middleware.ClientIP(r)); err != nil {
		log.Printf("[auth] login session error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	accessToken, err := h.tokens.IssueAccessToken(user.UserID, user.Email, user.Role)
	if err != nil {
		log.Printf("[auth] login sign error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{
		User:         &user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// RefreshHandler rotates the refresh token. Rotation is the sole reuse
// check: a token that was already rotated no longer matches its row.
func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteValidationError(w, map[string]string{"refresh_token": "refresh_token is required"})
		return
	}

	session, err := FindSessionByRefreshToken(db.DB, req.RefreshToken)
	if errors.Is(err, ErrSessionNotFound) {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeInvalidRefreshToken, "invalid refresh token")
		return
	}
	if err != nil {
		log.Printf("[auth] refresh lookup error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	if session.ExpiresAt.Before(time.Now()) {
		if _, err := DeleteSessionByID(db.DB, session.UserID, session.SessionID); err != nil {
			log.Printf("[auth] refresh cleanup error: %v", err)
		}
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeRefreshTokenExpired, "refresh token expired")
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", session.UserID).Error; err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeInvalidRefreshToken, "invalid refresh token")
		return
	}

	newToken, err := h.tokens.NewRefreshToken()
	if err != nil {
		log.Printf("[auth] refresh token error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	err = RotateSession(db.DB, session.SessionID, req.RefreshToken, newToken, h.tokens.RefreshTokenExpiry())
	if errors.Is(err, ErrSessionNotFound) {
		// Lost a race with a concurrent refresh of the same token.
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeInvalidRefreshToken, "invalid refresh token")
		return
	}
	if err != nil {
		log.Printf("[auth] refresh rotate error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	accessToken, err := h.tokens.IssueAccessToken(user.UserID, user.Email, user.Role)
	if err != nil {
		log.Printf("[auth] refresh sign error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token":  accessToken,
		"refresh_token": newToken,
	})
}

// LogoutHandler deletes the caller's session for the supplied refresh token.
// Idempotent: a token that no longer matches is not an error.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.WriteValidationError(w, map[string]string{"refresh_token": "refresh_token is required"})
		return
	}

	if err := DeleteSessionByRefreshToken(db.DB, identity.UserID, req.RefreshToken); err != nil {
		log.Printf("[auth] logout error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAllHandler revokes every session of the authenticated user.
func (h *Handler) LogoutAllHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	if err := DeleteAllSessions(db.DB, identity.UserID); err != nil {
		log.Printf("[auth] logout-all error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out everywhere"})
}

// MeHandler returns the authenticated user's record.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", identity.UserID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "user not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &user)
}

// VerifyEmailHandler consumes a verification token and stamps the user's
// email as verified, atomically.
func (h *Handler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.WriteValidationError(w, map[string]string{"token": "token is required"})
		return
	}

	var record EmailVerificationToken
	err := db.DB.First(&record, "token = ?", req.Token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidToken, "invalid token")
		return
	}
	if err != nil {
		log.Printf("[auth] verify lookup error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if record.Used {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeTokenUsed, "token already used")
		return
	}
	if record.ExpiresAt.Before(time.Now()) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeTokenExpired, "token expired")
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&EmailVerificationToken{}).
			Where("id = ? AND used = false", record.ID).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTokenSpent
		}
		return tx.Model(&User{}).Where("user_id = ?", record.UserID).
			Update("email_verified", time.Now()).Error
	})
	if errors.Is(err, errTokenSpent) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeTokenUsed, "token already used")
		return
	}
	if err != nil {
		log.Printf("[auth] verify update error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

var errTokenSpent = errors.New("token already spent")

// ForgotPasswordHandler responds identically whether or not the email exists.
// When it does, all prior unused reset tokens are invalidated and one fresh
// token is issued.
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}

	respond := func() {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "if that email is registered, a reset link has been sent",
		})
	}

	var user User
	err := db.DB.First(&user, "email = ?", normalizeEmail(req.Email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respond()
		return
	}
	if err != nil {
		log.Printf("[auth] forgot lookup error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	resetToken, err := h.tokens.NewSecureToken()
	if err != nil {
		log.Printf("[auth] forgot token error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		// At most one meaningful reset token per user.
		if err := tx.Model(&PasswordResetToken{}).
			Where("user_id = ? AND used = false", user.UserID).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&PasswordResetToken{
			ID:        uuid.NewString(),
			UserID:    user.UserID,
			Token:     resetToken,
			ExpiresAt: time.Now().Add(h.cfg.ResetTokenTTL),
		}).Error
	})
	if err != nil {
		log.Printf("[auth] forgot create error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	h.mailer.SendPasswordReset(user.Email, resetToken)
	respond()
}

// ResetPasswordHandler redeems a reset token: in one transaction the token is
// marked used, the password replaced, the lockout cleared, and every session
// deleted so no previously issued refresh token survives the reset.
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.WriteValidationError(w, map[string]string{"token": "token is required"})
		return
	}
	if fields := ValidatePassword(req.Password); len(fields) > 0 {
		httputil.WriteValidationError(w, fields)
		return
	}

	var record PasswordResetToken
	err := db.DB.First(&record, "token = ?", req.Token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidToken, "invalid token")
		return
	}
	if err != nil {
		log.Printf("[auth] reset lookup error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if record.Used {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeTokenUsed, "token already used")
		return
	}
	if record.ExpiresAt.Before(time.Now()) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeTokenExpired, "token expired")
		return
	}

	hashed, err := HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		log.Printf("[auth] reset hash error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PasswordResetToken{}).
			Where("id = ? AND used = false", record.ID).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTokenSpent
		}
		if err := tx.Model(&User{}).Where("user_id = ?", record.UserID).
			Updates(map[string]interface{}{
				"hashed_password":       hashed,
				"failed_login_attempts": 0,
				"locked_until":          nil,
			}).Error; err != nil {
			return err
		}
		return DeleteAllSessions(tx, record.UserID)
	})
	if errors.Is(err, errTokenSpent) {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeTokenUsed, "token already used")
		return
	}
	if err != nil {
		log.Printf("[auth] reset update error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	log.Printf("[auth] password reset for user %s, all sessions revoked", record.UserID)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// ChangePasswordHandler replaces the password after verifying the current
// one. Unlike reset-password this does not revoke other sessions: the caller
// proved possession of the current password, so existing logins stay valid.
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}
	if fields := ValidatePassword(req.NewPassword); len(fields) > 0 {
		httputil.WriteValidationError(w, fields)
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", identity.UserID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "user not found")
		return
	}

	match, err := CheckPassword(req.CurrentPassword, user.HashedPassword)
	if err != nil {
		log.Printf("[auth] change-password verify error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if !match {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeInvalidPassword, "current password is incorrect")
		return
	}

	hashed, err := HashPassword(req.NewPassword, h.cfg.BcryptCost)
	if err != nil {
		log.Printf("[auth] change-password hash error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if err := db.DB.Model(&user).Update("hashed_password", hashed).Error; err != nil {
		log.Printf("[auth] change-password update error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// SessionsHandler lists the caller's active sessions.
func (h *Handler) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	sessions, err := ListSessions(db.DB, identity.UserID)
	if err != nil {
		log.Printf("[auth] sessions list error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

// DeleteSessionHandler revokes one of the caller's own sessions by id.
func (h *Handler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	sessionID := chi.URLParam(r, "session_id")
	found, err := DeleteSessionByID(db.DB, identity.UserID, sessionID)
	if err != nil {
		log.Printf("[auth] session delete error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	if !found {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "session not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "session revoked"})
}
