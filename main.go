package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/knowledgebase/kb-backend/internal/articles"
	"github.com/knowledgebase/kb-backend/internal/auth"
	"github.com/knowledgebase/kb-backend/internal/config"
	"github.com/knowledgebase/kb-backend/internal/db"
	"github.com/knowledgebase/kb-backend/internal/middleware"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect(cfg.DatabaseURL)
	auth.Init()
	articles.Init()

	tokens := auth.NewTokenService(cfg)
	authHandler := auth.NewHandler(cfg, tokens, auth.LogMailer{})
	verifier := auth.BearerVerifier{Tokens: tokens}

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	r.Mount("/auth", auth.SetupRoutes(authHandler))
	r.Mount("/articles", articles.SetupRoutes(verifier))

	log.Printf("Server listening on port :%s...", cfg.Port)

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatal("Server stopped: ", err)
	}
}
