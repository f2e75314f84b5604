package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxListOffset    = 100
	MaxTitleLength   = 200
	MaxTagLength     = 64
)

// reservedSlug is the /api/articles/feed route segment. An article with this
// slug could only be reached by id.
const reservedSlug = "feed"

// ListQuery holds the optional article listing filters. Empty strings mean
// "no filter on this field".
type ListQuery struct {
	Tag       string
	Author    string // username
	Favorited string // username of someone who favorited the article
	Limit     int
	Offset    int
}

// ArticlePage is one page of enriched articles plus the total number of
// matches, which does not depend on Limit or Offset.
type ArticlePage struct {
	Articles []model.ArticleDetail
	Count    int
}

// ArticleInput is the payload for creating an article.
type ArticleInput struct {
	Title       string
	Description string
	Body        string
	Tags        []string
}

// ArticleService runs the article aggregation query and article writes.
type ArticleService struct {
	articles repository.ArticleRepository
	rels     repository.RelationshipRepository
	logger   *slog.Logger
}

func NewArticleService(
	articles repository.ArticleRepository,
	rels repository.RelationshipRepository,
	logger *slog.Logger,
) *ArticleService {
	return &ArticleService{articles: articles, rels: rels, logger: logger}
}

// List returns a page of articles matching q, enriched for viewerID.
func (s *ArticleService) List(ctx context.Context, viewerID string, q ListQuery) (*ArticlePage, error) {
	limit, offset := clampPage(q.Limit, q.Offset)
	return s.page(ctx, viewerID, repository.ArticleFilter{
		Tag:         strings.TrimSpace(q.Tag),
		Author:      strings.TrimSpace(q.Author),
		FavoritedBy: strings.TrimSpace(q.Favorited),
		Limit:       limit,
		Offset:      offset,
	})
}

// Feed returns articles written by authors viewerID follows.
func (s *ArticleService) Feed(ctx context.Context, viewerID string, limit, offset int) (*ArticlePage, error) {
	if viewerID == "" {
		return nil, apperror.Unauthorized("the feed requires a signed-in user")
	}
	limit, offset = clampPage(limit, offset)
	return s.page(ctx, viewerID, repository.ArticleFilter{
		FollowedBy: viewerID,
		Limit:      limit,
		Offset:     offset,
	})
}

// clampPage applies the paging bounds: limit defaults to 20 and is capped
// at 100; offset is kept within [0, 100].
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > MaxListOffset {
		offset = MaxListOffset
	}
	return limit, offset
}

// page is the aggregation read path:
//
//  1. fetch the page of article+author rows (filters become IN-subqueries)
//  2. batch-fetch tags, favorite counts, the viewer's favorites and the
//     viewer's follows for exactly those rows
//  3. count all matches with the same predicate
//
// Any store error aborts the whole read; no partial page is returned.
func (s *ArticleService) page(ctx context.Context, viewerID string, filter repository.ArticleFilter) (*ArticlePage, error) {
	rows, err := s.articles.ListArticles(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list articles", slog.String("error", err.Error()))
		return nil, err
	}

	details, err := s.assemble(ctx, viewerID, rows)
	if err != nil {
		return nil, err
	}

	count, err := s.articles.CountArticles(ctx, filter)
	if err != nil {
		s.logger.Error("failed to count articles", slog.String("error", err.Error()))
		return nil, err
	}

	return &ArticlePage{Articles: details, Count: count}, nil
}

// assemble enriches rows for viewerID with a fixed number of queries,
// however many rows there are.
func (s *ArticleService) assemble(ctx context.Context, viewerID string, rows []model.ArticleRow) ([]model.ArticleDetail, error) {
	details := make([]model.ArticleDetail, 0, len(rows))
	if len(rows) == 0 {
		return details, nil
	}

	articleIDs := make([]string, len(rows))
	authorIDs := make([]string, 0, len(rows))
	seenAuthor := make(map[string]bool, len(rows))
	for i, r := range rows {
		articleIDs[i] = r.Article.ID
		if !seenAuthor[r.Author.ID] {
			seenAuthor[r.Author.ID] = true
			authorIDs = append(authorIDs, r.Author.ID)
		}
	}

	tags, err := s.articles.TagsForArticles(ctx, articleIDs)
	if err != nil {
		return nil, err
	}
	counts, err := s.rels.FavoriteCounts(ctx, articleIDs)
	if err != nil {
		return nil, err
	}
	favorited, err := s.rels.FavoritedArticleIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	following, err := s.rels.FollowedAmong(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		articleTags := tags[r.Article.ID]
		if articleTags == nil {
			articleTags = []string{}
		}
		details = append(details, model.ArticleDetail{
			Article:        r.Article,
			Author:         model.ProfileOf(r.Author, following[r.Author.ID]),
			Tags:           articleTags,
			Favorited:      favorited[r.Article.ID],
			FavoritesCount: counts[r.Article.ID],
		})
	}
	return details, nil
}

// Get loads one article by id or slug, enriched for viewerID.
func (s *ArticleService) Get(ctx context.Context, viewerID, ref string) (*model.ArticleDetail, error) {
	row, err := resolveArticle(ctx, s.articles, ref)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, viewerID, *row)
}

func (s *ArticleService) detail(ctx context.Context, viewerID string, row model.ArticleRow) (*model.ArticleDetail, error) {
	details, err := s.assemble(ctx, viewerID, []model.ArticleRow{row})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// resolveArticle accepts either an article id or a slug. Ids are tried
// first; an id miss falls back to the slug.
func resolveArticle(ctx context.Context, articles repository.ArticleRepository, ref string) (*model.ArticleRow, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperror.ValidationFailed("article", "article id or slug is required")
	}

	row, err := articles.GetArticle(ctx, ref)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	return articles.GetArticleBySlug(ctx, ref)
}

// Create validates the input, derives the slug and stores the article with
// its tags atomically.
func (s *ArticleService) Create(ctx context.Context, authorID string, in ArticleInput) (*model.ArticleDetail, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "body is required")
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		AuthorID:    authorID,
		Slug:        Slugify(title),
		Title:       title,
		Description: description,
		Body:        body,
	}
	if err := s.articles.CreateArticle(ctx, article, tags); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create article",
				slog.String("slug", article.Slug),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("article created",
		slog.String("id", article.ID),
		slog.String("slug", article.Slug),
		slog.Int("tags", len(tags)),
	)
	return s.Get(ctx, authorID, article.ID)
}

// Update applies a partial update. Only the author may update an article.
// A changed title re-derives the slug.
func (s *ArticleService) Update(ctx context.Context, viewerID, ref string, upd model.ArticleUpdate) (*model.ArticleDetail, error) {
	row, err := resolveArticle(ctx, s.articles, ref)
	if err != nil {
		return nil, err
	}
	if row.Article.AuthorID != viewerID {
		return nil, apperror.Forbidden("only the author can edit this article")
	}

	article := row.Article
	if upd.Title != nil {
		title, err := validateTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		article.Title = title
		article.Slug = Slugify(title)
	}
	if upd.Description != nil {
		d := strings.TrimSpace(*upd.Description)
		if d == "" {
			return nil, apperror.ValidationFailed("description", "description must not be empty")
		}
		article.Description = d
	}
	if upd.Body != nil {
		b := strings.TrimSpace(*upd.Body)
		if b == "" {
			return nil, apperror.ValidationFailed("body", "body must not be empty")
		}
		article.Body = b
	}

	var tags []string
	if upd.Tags != nil {
		if tags, err = normalizeTags(upd.Tags); err != nil {
			return nil, err
		}
	}

	if err := s.articles.UpdateArticle(ctx, &article, tags); err != nil {
		return nil, err
	}

	s.logger.Info("article updated", slog.String("id", article.ID), slog.String("slug", article.Slug))
	return s.Get(ctx, viewerID, article.ID)
}

// Delete removes an article. Only the author may delete it.
func (s *ArticleService) Delete(ctx context.Context, viewerID, ref string) error {
	row, err := resolveArticle(ctx, s.articles, ref)
	if err != nil {
		return err
	}
	if row.Article.AuthorID != viewerID {
		return apperror.Forbidden("only the author can delete this article")
	}

	if err := s.articles.DeleteArticle(ctx, row.Article.ID); err != nil {
		return err
	}

	s.logger.Info("article deleted", slog.String("id", row.Article.ID))
	return nil
}

// Favorite marks the article as a favorite of viewerID (idempotent).
func (s *ArticleService) Favorite(ctx context.Context, viewerID, ref string) (*model.ArticleDetail, error) {
	row, err := resolveArticle(ctx, s.articles, ref)
	if err != nil {
		return nil, err
	}
	if err := s.rels.Favorite(ctx, viewerID, row.Article.ID); err != nil {
		return nil, err
	}
	return s.detail(ctx, viewerID, *row)
}

// Unfavorite removes viewerID's favorite (idempotent).
func (s *ArticleService) Unfavorite(ctx context.Context, viewerID, ref string) (*model.ArticleDetail, error) {
	row, err := resolveArticle(ctx, s.articles, ref)
	if err != nil {
		return nil, err
	}
	if err := s.rels.Unfavorite(ctx, viewerID, row.Article.ID); err != nil {
		return nil, err
	}
	return s.detail(ctx, viewerID, *row)
}

// Tags lists every distinct tag name.
func (s *ArticleService) Tags(ctx context.Context) ([]string, error) {
	return s.articles.ListTags(ctx)
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	switch Slugify(title) {
	case "":
		return "", apperror.ValidationFailed("title", "title must contain at least one letter or digit")
	case reservedSlug:
		return "", apperror.ValidationFailed("title", "title is reserved")
	}
	return title, nil
}

// normalizeTags trims names, drops blanks and collapses repeats while
// keeping first-seen order.
func normalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		if len(t) > MaxTagLength {
			return nil, apperror.ValidationFailed("tagList",
				fmt.Sprintf("tags must be %d characters or less", MaxTagLength))
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}
