package models

import "time"

type Post struct {
	ID        string  `json:"id" db:"id"`
	AuthorID  string  `json:"author_id" db:"author_id"`
	Content   string  `json:"content" db:"content"`
	PhotoURL  *string `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at"`
}

type PostComment struct {
	ID        int    `json:"id" db:"id"`
	PostID    string `json:"post_id" db:"post_id"`
	AuthorID  string `json:"author_id" db:"author_id"`
	Content   string `json:"content" db:"content"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// PostResponse joins the author name plus like/comment counts for the feed.
type PostResponse struct {
	ID           string  `json:"id"`
	AuthorID     string  `json:"author_id"`
	AuthorName   string  `json:"author_name"`
	Content      string  `json:"content"`
	PhotoURL     *string `json:"photo_url,omitempty"`
	LikeCount    int     `json:"like_count"`
	CommentCount int     `json:"comment_count"`
	LikedByMe    bool    `json:"liked_by_me"`
	CreatedAtISO string  `json:"created_at_iso"`
}

type PostCommentResponse struct {
	ID           int    `json:"id"`
	PostID       string `json:"post_id"`
	AuthorID     string `json:"author_id"`
	AuthorName   string `json:"author_name"`
	Content      string `json:"content"`
	CreatedAtISO string `json:"created_at_iso"`
}

func (c *PostComment) ToResponse(authorName string) PostCommentResponse {
	return PostCommentResponse{
		ID:           c.ID,
		PostID:       c.PostID,
		AuthorID:     c.AuthorID,
		AuthorName:   authorName,
		Content:      c.Content,
		CreatedAtISO: time.Unix(c.CreatedAt, 0).Format(time.RFC3339),
	}
}
