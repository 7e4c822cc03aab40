package articles

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/knowledgebase/kb-backend/internal/middleware"
)

// SetupRoutes mounts the content surface, keyed by slug. Reads are public;
// commenting and reacting need any authenticated user; writing articles needs
// EDITOR or ADMIN; deleting needs ADMIN.
func SetupRoutes(verifier middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListArticlesHandler)
	r.Get("/{slug}", GetArticleHandler)
	r.Get("/{slug}/comments", ListCommentsHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(verifier))

		r.Post("/{slug}/comments", CreateCommentHandler)
		r.Post("/{slug}/reactions", ReactHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("EDITOR", "ADMIN"))
			r.Post("/", CreateArticleHandler)
			r.Put("/{slug}", UpdateArticleHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("ADMIN"))
			r.Delete("/{slug}", DeleteArticleHandler)
		})
	})

	return r
}
