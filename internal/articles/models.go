package articles

import (
	"time"

	"github.com/lib/pq"
)

type Article struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`
	Content   string         `json:"content"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	AuthorID  string         `gorm:"index;not null" json:"author_id"`
	Published bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Comment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ArticleID string    `gorm:"index;not null" json:"article_id"`
	AuthorID  string    `gorm:"not null" json:"author_id"`
	Body      string    `gorm:"not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is unique per (article, user, kind); posting the same reaction
// twice removes it.
type Reaction struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ArticleID string    `gorm:"uniqueIndex:idx_reaction_once;not null" json:"article_id"`
	UserID    string    `gorm:"uniqueIndex:idx_reaction_once;not null" json:"user_id"`
	Kind      string    `gorm:"uniqueIndex:idx_reaction_once;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

var reactionKinds = map[string]struct{}{
	"like":    {},
	"heart":   {},
	"insight": {},
}

func (Article) TableName() string  { return "kb_content.articles" }
func (Comment) TableName() string  { return "kb_content.comments" }
func (Reaction) TableName() string { return "kb_content.reactions" }
