package articles

import (
	"log"

	"github.com/knowledgebase/kb-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "kb_content"); err != nil {
		log.Fatal("Failed to ensure schema kb_content: ", err)
	}

	if err := db.DB.AutoMigrate(&Article{}, &Comment{}, &Reaction{}); err != nil {
		log.Fatal("Failed to auto-migrate content tables: ", err)
	}
}
