package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/knowledgebase/kb-backend/internal/middleware"
)

// SetupRoutes mounts the auth surface. Login and forgot-password sit behind a
// per-IP rate limit since they are the credential-guessing endpoints.
func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	verifier := BearerVerifier{Tokens: h.tokens}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(1, 10))
		r.Post("/login", h.LoginHandler)
		r.Post("/forgot-password", h.ForgotPasswordHandler)
	})

	r.Post("/register", h.RegisterHandler)
	r.Post("/refresh", h.RefreshHandler)
	r.Post("/verify-email", h.VerifyEmailHandler)
	r.Post("/reset-password", h.ResetPasswordHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(verifier))

		r.Post("/logout", h.LogoutHandler)
		r.Post("/logout-all", h.LogoutAllHandler)
		r.Get("/me", h.MeHandler)
		r.Post("/change-password", h.ChangePasswordHandler)
		r.Get("/sessions", h.SessionsHandler)
		r.Delete("/sessions/{session_id}", h.DeleteSessionHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(RoleAdmin)))
			r.Get("/users", h.ListUsersHandler)
			r.Put("/users/{user_id}/role", h.UpdateUserRoleHandler)
		})
	})

	return r
}
