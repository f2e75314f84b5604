package model

import "time"

// Article is a published post. Slug is derived from Title and is kept in
// sync with it by the service layer.
type Article struct {
	ID          string    `json:"id"          db:"id"`
	AuthorID    string    `json:"authorId"    db:"author_id"`
	Slug        string    `json:"slug"        db:"slug"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Body        string    `json:"body"        db:"body"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// ArticleUpdate carries a partial update. A nil Tags leaves the tag list
// alone; a non-nil (possibly empty) slice replaces it.
type ArticleUpdate struct {
	Title       *string
	Description *string
	Body        *string
	Tags        []string
}

// ArticleRow is one row of the article/author join.
type ArticleRow struct {
	Article Article
	Author  User
}

// ArticleDetail is an article enriched for a particular viewer: the author's
// profile with the viewer's follow flag, the tag list and favorite info.
type ArticleDetail struct {
	Article        Article
	Author         Profile
	Tags           []string
	Favorited      bool
	FavoritesCount int
}

// Comment belongs to both an article and its author.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	ArticleID string    `json:"articleId" db:"article_id"`
	AuthorID  string    `json:"authorId"  db:"author_id"`
	Body      string    `json:"body"      db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CommentRow struct {
	Comment Comment
	Author  User
}

type CommentDetail struct {
	Comment Comment
	Author  Profile
}
