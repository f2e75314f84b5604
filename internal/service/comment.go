package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const MaxCommentLength = 10000

type CommentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	rels     repository.RelationshipRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	articles repository.ArticleRepository,
	rels repository.RelationshipRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{comments: comments, articles: articles, rels: rels, logger: logger}
}

// List returns the comments on an article, each with its author's profile
// as seen by viewerID. Follow flags are fetched in one query.
func (s *CommentService) List(ctx context.Context, viewerID, articleRef string) ([]model.CommentDetail, error) {
	article, err := resolveArticle(ctx, s.articles, articleRef)
	if err != nil {
		return nil, err
	}

	rows, err := s.comments.ListComments(ctx, article.Article.ID)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		authorIDs = append(authorIDs, r.Author.ID)
	}
	following, err := s.rels.FollowedAmong(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]model.CommentDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CommentDetail{
			Comment: r.Comment,
			Author:  model.ProfileOf(r.Author, following[r.Author.ID]),
		})
	}
	return out, nil
}

// Create adds a comment by author to the article.
func (s *CommentService) Create(ctx context.Context, author model.User, articleRef, body string) (*model.CommentDetail, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "comment body is required")
	}
	if len(body) > MaxCommentLength {
		return nil, apperror.ValidationFailed("body", "comment is too long")
	}

	article, err := resolveArticle(ctx, s.articles, articleRef)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ArticleID: article.Article.ID,
		AuthorID:  author.ID,
		Body:      body,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("article_id", comment.ArticleID),
	)
	return &model.CommentDetail{Comment: *comment, Author: model.ProfileOf(author, false)}, nil
}

// Delete removes a comment. The comment must belong to the referenced
// article, and only its author may delete it.
func (s *CommentService) Delete(ctx context.Context, viewerID, articleRef, commentID string) error {
	article, err := resolveArticle(ctx, s.articles, articleRef)
	if err != nil {
		return err
	}

	comment, err := s.comments.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.ArticleID != article.Article.ID {
		return apperror.NotFound("comment", commentID)
	}
	if comment.AuthorID != viewerID {
		return apperror.Forbidden("only the author can delete this comment")
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	s.logger.Info("comment deleted", slog.String("id", commentID))
	return nil
}
