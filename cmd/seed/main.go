// Command seed bootstraps the knowledge base: it creates (or repairs) the
// initial admin user and optionally a few sample articles. Runs raw SQL so it
// works against a fresh database right after the server has auto-migrated.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// CLI flags
var (
	dsn           = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	adminEmail    = flag.String("admin-email", "", "Admin email (required)")
	adminPassword = flag.String("admin-password", "", "Admin password (required)")
	adminName     = flag.String("admin-name", "Admin", "Admin display name")
	withSamples   = flag.Bool("samples", false, "Also insert sample articles")
	dryRun        = flag.Bool("dry-run", false, "Print the plan; no DB writes")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}
	if *adminEmail == "" || *adminPassword == "" {
		fatalf("--admin-email and --admin-password are required")
	}

	if *dryRun {
		fmt.Printf("Would ensure admin user %s (%s)\n", *adminEmail, *adminName)
		if *withSamples {
			fmt.Println("Would insert sample articles")
		}
		fmt.Println("Dry run complete. No changes made.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
	if err != nil {
		fatalf("hash password: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	adminID := uuid.NewString()
	// Existing user with this email is promoted to ADMIN; the password only
	// applies when the row is first created.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO kb_auth.users
			(user_id, email, hashed_password, name, role, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'ADMIN', now(), now(), now())
		ON CONFLICT (email) DO UPDATE SET role = 'ADMIN', updated_at = now()`,
		adminID, *adminEmail, string(hashed), *adminName)
	if err != nil {
		fatalf("ensure admin: %v", err)
	}

	if *withSamples {
		if err := insertSamples(ctx, tx, *adminEmail); err != nil {
			fatalf("insert samples: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Seed complete: admin %s ensured\n", *adminEmail)
}

func insertSamples(ctx context.Context, tx *sql.Tx, authorEmail string) error {
	var authorID string
	if err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM kb_auth.users WHERE email = $1`, authorEmail).Scan(&authorID); err != nil {
		return err
	}

	samples := []struct {
		title, slug, content string
		tags                 string
	}{
		{"Welcome to the Knowledge Base", "welcome-to-the-knowledge-base",
			"Start here: how articles, comments and roles work.", `{onboarding}`},
		{"Style Guide", "style-guide",
			"House rules for writing and tagging articles.", `{onboarding,writing}`},
	}
	for _, s := range samples {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kb_content.articles
				(id, title, slug, content, tags, author_id, published, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())
			ON CONFLICT (slug) DO NOTHING`,
			uuid.NewString(), s.title, s.slug, s.content, s.tags, authorID)
		if err != nil {
			return err
		}
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
