package articles

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/knowledgebase/kb-backend/internal/db"
	"github.com/knowledgebase/kb-backend/internal/httputil"
	"github.com/knowledgebase/kb-backend/internal/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// findBySlug resolves the {slug} URL param to an article row. Writes the
// error response itself when the article does not exist.
func findBySlug(w http.ResponseWriter, r *http.Request) (*Article, bool) {
	var article Article
	err := db.DB.First(&article, "slug = ?", chi.URLParam(r, "slug")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "article not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[articles] slug lookup error: %v", err)
		httputil.WriteInternalError(w)
		return nil, false
	}
	return &article, true
}

// ListArticlesHandler returns published articles, optionally filtered by tag.
func ListArticlesHandler(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Where("published = true").Order("created_at DESC")
	if tag := r.URL.Query().Get("tag"); tag != "" {
		q = q.Where("? = ANY(tags)", tag)
	}

	var list []Article
	if err := q.Find(&list).Error; err != nil {
		log.Printf("[articles] list error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// GetArticleHandler fetches one published article by slug.
func GetArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, ok := findBySlug(w, r)
	if !ok {
		return
	}
	if !article.Published {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "article not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, article)
}

// CreateArticleHandler creates an article for the authenticated editor.
// Slugs derive from the title; collisions get a short random suffix.
func CreateArticleHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		Tags      []string `json:"tags"`
		Published bool     `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		httputil.WriteValidationError(w, map[string]string{"title": "title is required"})
		return
	}

	slug := Slugify(req.Title)
	if slug == "" {
		slug = uuid.NewString()[:8]
	}
	var clash Article
	if err := db.DB.Select("id").First(&clash, "slug = ?", slug).Error; err == nil {
		slug = slug + "-" + uuid.NewString()[:8]
	}

	article := Article{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Slug:      slug,
		Content:   req.Content,
		Tags:      pq.StringArray(req.Tags),
		AuthorID:  identity.UserID,
		Published: req.Published,
	}
	if err := db.DB.Create(&article).Error; err != nil {
		log.Printf("[articles] create error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &article)
}

// UpdateArticleHandler lets the author or an admin edit an article.
func UpdateArticleHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	article, ok := findBySlug(w, r)
	if !ok {
		return
	}
	if article.AuthorID != identity.UserID && identity.Role != "ADMIN" {
		httputil.WriteError(w, http.StatusForbidden, httputil.CodeForbidden, "not the author of this article")
		return
	}

	var req struct {
		Title     *string  `json:"title"`
		Content   *string  `json:"content"`
		Tags      []string `json:"tags"`
		Published *bool    `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if len(updates) == 0 {
		httputil.WriteJSON(w, http.StatusOK, article)
		return
	}

	if err := db.DB.Model(article).Updates(updates).Error; err != nil {
		log.Printf("[articles] update error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, article)
}

// DeleteArticleHandler removes an article together with its comments and
// reactions.
func DeleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, ok := findBySlug(w, r)
	if !ok {
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", article.ID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(article).Error
	})
	if err != nil {
		log.Printf("[articles] delete error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "article deleted"})
}

// ListCommentsHandler returns an article's comments, oldest first.
func ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	article, ok := findBySlug(w, r)
	if !ok {
		return
	}

	var comments []Comment
	if err := db.DB.Where("article_id = ?", article.ID).Order("created_at").Find(&comments).Error; err != nil {
		log.Printf("[articles] comments list error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

// CreateCommentHandler adds a comment by the authenticated user.
func CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	article, ok := findBySlug(w, r)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		httputil.WriteValidationError(w, map[string]string{"body": "comment body is required"})
		return
	}

	comment := Comment{
		ID:        uuid.NewString(),
		ArticleID: article.ID,
		AuthorID:  identity.UserID,
		Body:      strings.TrimSpace(req.Body),
	}
	if err := db.DB.Create(&comment).Error; err != nil {
		log.Printf("[articles] comment create error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &comment)
}

// ReactHandler toggles a reaction: first call adds it, second removes it.
func ReactHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "not authenticated")
		return
	}

	article, ok := findBySlug(w, r)
	if !ok {
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, map[string]string{"body": "invalid request body"})
		return
	}
	if _, ok := reactionKinds[req.Kind]; !ok {
		httputil.WriteValidationError(w, map[string]string{"kind": "kind must be like, heart or insight"})
		return
	}

	res := db.DB.Where("article_id = ? AND user_id = ? AND kind = ?",
		article.ID, identity.UserID, req.Kind).Delete(&Reaction{})
	if res.Error != nil {
		log.Printf("[articles] reaction delete error: %v", res.Error)
		httputil.WriteInternalError(w)
		return
	}
	if res.RowsAffected > 0 {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return
	}

	reaction := Reaction{
		ID:        uuid.NewString(),
		ArticleID: article.ID,
		UserID:    identity.UserID,
		Kind:      req.Kind,
	}
	if err := db.DB.Create(&reaction).Error; err != nil {
		log.Printf("[articles] reaction create error: %v", err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}
