package auth

import (
	"log"

	"github.com/knowledgebase/kb-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "kb_auth"); err != nil {
		log.Fatal("Failed to ensure schema kb_auth: ", err)
	}

	if err := db.DB.AutoMigrate(
		&User{},
		&Session{},
		&PasswordResetToken{},
		&EmailVerificationToken{},
	); err != nil {
		log.Fatal("Failed to auto-migrate auth tables: ", err)
	}
}
