package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/knowledgebase/kb-backend/internal/db"
	"github.com/knowledgebase/kb-backend/internal/httputil"
	"github.com/knowledgebase/kb-backend/internal/utils"
)

// adminUserView includes the lockout state the public User serialization
// hides.
type adminUserView struct {
	UserID              string     `json:"user_id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Role                Role       `json:"role"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until"`
	EmailVerified       *time.Time `json:"email_verified"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ListUsersHandler returns every user for the admin console.
func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	var users []User
	if err := db.DB.Order("created_at").Find(&users).Error; err != nil {
		log.Printf("[auth] user list error: %v", err)
		httputil.WriteInternalError(w)
		return
	}

	views := make([]adminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, adminUserView{
			UserID:              u.UserID,
			Email:               u.Email,
			Name:                u.Name,
			Role:                u.Role,
			FailedLoginAttempts: u.FailedLoginAttempts,
			LockedUntil:         u.LockedUntil,
			EmailVerified:       u.EmailVerified,
			CreatedAt:           u.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

// UpdateUserRoleHandler changes another user's role. Admins cannot change
// their own role, so the system can never lose its last admin by accident.
func (h *Handler) UpdateUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	targetID := chi.URLParam(r, "user_id")
	if targetID == identity.UserID {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidOperation, "cannot change your own role")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		httputil.WriteValidationError(w, map[string]string{"role": "role must be ADMIN, EDITOR or VIEWER"})
		return
	}

	res := db.DB.Model(&User{}).Where("user_id = ?", targetID).Update("role", role)
	if res.Error != nil {
		log.Printf("[auth] role update error: %v", res.Error)
		httputil.WriteInternalError(w)
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "user not found")
		return
	}

	log.Printf("[auth] role of user %s set to %s by %s", targetID, role, identity.UserID)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"user_id": targetID, "role": string(role)})
}
