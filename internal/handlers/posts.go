package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"caremind-backend/internal/middleware"
	"caremind-backend/internal/models"
	"caremind-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CreatePostRequest struct {
	Content  string  `json:"content"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type postRow struct {
	models.Post
	AuthorName   string `db:"author_name"`
	LikeCount    int    `db:"like_count"`
	CommentCount int    `db:"comment_count"`
	LikedByMe    bool   `db:"liked_by_me"`
}

func (p *postRow) toResponse() models.PostResponse {
	return models.PostResponse{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		AuthorName:   p.AuthorName,
		Content:      p.Content,
		PhotoURL:     p.PhotoURL,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		LikedByMe:    p.LikedByMe,
		CreatedAtISO: time.Unix(p.CreatedAt, 0).Format(time.RFC3339),
	}
}

// GetPosts returns the family feed, newest first.
func GetPosts(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var rows []postRow
		err := db.Select(&rows, `
			SELECT p.id, p.author_id, p.content, p.photo_url, p.created_at, p.updated_at,
				u.name AS author_name,
				(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS like_count,
				(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id) AS comment_count,
				EXISTS(SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1) AS liked_by_me
			FROM posts p
			JOIN users u ON u.id = p.author_id
			ORDER BY p.created_at DESC
			LIMIT 100
		`, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to load posts: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load posts")
			return
		}

		responses := make([]models.PostResponse, len(rows))
		for i := range rows {
			responses[i] = rows[i].toResponse()
		}

		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// CreatePost adds a post to the family feed.
func CreatePost(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Content = strings.TrimSpace(req.Content)
		if req.Content == "" && req.PhotoURL == nil {
			utils.RespondError(w, http.StatusBadRequest, "Post needs content or a photo")
			return
		}

		now := time.Now().Unix()
		post := models.Post{
			ID:        uuid.New().String(),
			AuthorID:  claims.UserID,
			Content:   req.Content,
			PhotoURL:  req.PhotoURL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err := db.Exec(`
			INSERT INTO posts (id, author_id, content, photo_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, post.ID, post.AuthorID, post.Content, post.PhotoURL, post.CreatedAt, post.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to create post: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create post")
			return
		}

		log.Printf("📝 New post by %s", claims.UserID)
		utils.RespondJSON(w, http.StatusCreated, post)
	}
}

// DeletePost removes a post. Only the author may delete it.
func DeletePost(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		postID := chi.URLParam(r, "id")

		result, err := db.Exec(`DELETE FROM posts WHERE id = $1 AND author_id = $2`, postID, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to delete post: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete post")
			return
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Post not found or not yours")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// ToggleLike likes a post, or unlikes it when already liked.
func ToggleLike(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		postID := chi.URLParam(r, "id")

		result, err := db.Exec(`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to toggle like: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to toggle like")
			return
		}

		affected, _ := result.RowsAffected()
		liked := false
		if affected == 0 {
			_, err = db.Exec(`
				INSERT INTO post_likes (post_id, user_id, created_at)
				VALUES ($1, $2, $3)
			`, postID, claims.UserID, time.Now().Unix())
			if err != nil {
				log.Printf("❌ Failed to toggle like: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to toggle like")
				return
			}
			liked = true
		}

		utils.RespondJSON(w, http.StatusOK, map[string]bool{"liked": liked})
	}
}

// GetComments returns a post's comments, oldest first.
func GetComments(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "id")

		var rows []struct {
			models.PostComment
			AuthorName string `db:"author_name"`
		}
		err := db.Select(&rows, `
			SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, u.name AS author_name
			FROM post_comments c
			JOIN users u ON u.id = c.author_id
			WHERE c.post_id = $1
			ORDER BY c.created_at ASC
		`, postID)
		if err != nil {
			log.Printf("❌ Failed to load comments: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load comments")
			return
		}

		responses := make([]models.PostCommentResponse, len(rows))
		for i := range rows {
			responses[i] = rows[i].ToResponse(rows[i].AuthorName)
		}

		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// CreateComment adds a comment to a post.
func CreateComment(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		postID := chi.URLParam(r, "id")

		var req CreateCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Content = strings.TrimSpace(req.Content)
		if req.Content == "" {
			utils.RespondError(w, http.StatusBadRequest, "Comment cannot be empty")
			return
		}

		var exists int
		if err := db.Get(&exists, `SELECT COUNT(*) FROM posts WHERE id = $1`, postID); err != nil || exists == 0 {
			utils.RespondError(w, http.StatusNotFound, "Post not found")
			return
		}

		comment := models.PostComment{
			PostID:    postID,
			AuthorID:  claims.UserID,
			Content:   req.Content,
			CreatedAt: time.Now().Unix(),
		}

		err := db.QueryRow(`
			INSERT INTO post_comments (post_id, author_id, content, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt).Scan(&comment.ID)
		if err != nil {
			log.Printf("❌ Failed to create comment: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create comment")
			return
		}

		var authorName string
		if err := db.Get(&authorName, `SELECT name FROM users WHERE id = $1`, claims.UserID); err != nil {
			authorName = ""
		}

		utils.RespondJSON(w, http.StatusCreated, comment.ToResponse(authorName))
	}
}
