// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite provides the implementation.
package repository

import (
	"context"

	"github.com/sakif/conduit/internal/model"
)

// ArticleFilter selects articles for a listing. Empty string fields are
// ignored; all non-empty ones must hold (AND semantics).
type ArticleFilter struct {
	Tag         string // articles carrying this tag name
	Author      string // articles written by this username
	FavoritedBy string // articles favorited by this username
	FollowedBy  string // articles whose author is followed by this user ID
	Limit       int
	Offset      int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type ArticleRepository interface {
	// CreateArticle stores the article and its tags atomically.
	CreateArticle(ctx context.Context, article *model.Article, tags []string) error
	GetArticle(ctx context.Context, id string) (*model.ArticleRow, error)
	GetArticleBySlug(ctx context.Context, slug string) (*model.ArticleRow, error)
	// UpdateArticle saves the article; a non-nil tags slice replaces the tag
	// list in the same transaction.
	UpdateArticle(ctx context.Context, article *model.Article, tags []string) error
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]model.ArticleRow, error)
	CountArticles(ctx context.Context, filter ArticleFilter) (int, error)
	TagsForArticles(ctx context.Context, articleIDs []string) (map[string][]string, error)
	ListTags(ctx context.Context) ([]string, error)
}

type RelationshipRepository interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowedAmong(ctx context.Context, followerID string, candidateIDs []string) (map[string]bool, error)

	Favorite(ctx context.Context, userID, articleID string) error
	Unfavorite(ctx context.Context, userID, articleID string) error
	FavoritesCount(ctx context.Context, articleID string) (int, error)
	FavoriteCounts(ctx context.Context, articleIDs []string) (map[string]int, error)
	FavoritedArticleIDs(ctx context.Context, userID string) (map[string]bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	ListComments(ctx context.Context, articleID string) ([]model.CommentRow, error)
	DeleteComment(ctx context.Context, id string) error
}
