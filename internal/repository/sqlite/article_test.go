package sqlite

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// =========================================================================
// CREATE / READ TESTS
// =========================================================================

func TestCreateArticle_WithTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")

	article := createTestArticle(t, db, author, "how-to-train-your-dragon", "dragons", "training")

	if article.ID == "" {
		t.Fatal("CreateArticle() did not set article.ID")
	}

	tags, err := db.TagsForArticles(ctx, []string{article.ID})
	if err != nil {
		t.Fatalf("TagsForArticles() error = %v", err)
	}
	got := tags[article.ID]
	sort.Strings(got)
	if len(got) != 2 || got[0] != "dragons" || got[1] != "training" {
		t.Errorf("tags = %v, want [dragons training]", got)
	}
}

func TestCreateArticle_RepeatedTagStoredOnce(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "jake")

	article := createTestArticle(t, db, author, "dup-tags", "go", "go")

	tags, err := db.TagsForArticles(context.Background(), []string{article.ID})
	if err != nil {
		t.Fatalf("TagsForArticles() error = %v", err)
	}
	if len(tags[article.ID]) != 1 {
		t.Errorf("tags = %v, want a single go tag", tags[article.ID])
	}
}

func TestCreateArticle_DuplicateSlugRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")
	createTestArticle(t, db, author, "same-title")

	dup := &model.Article{AuthorID: author.ID, Slug: "same-title", Title: "Same Title"}
	err := db.CreateArticle(ctx, dup, []string{"orphan"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateArticle() error = %v, want ErrConflict", err)
	}

	// The failed insert must not leave its tag behind.
	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("ListTags() = %v, want none after rollback", tags)
	}
}

func TestGetArticle_ByIDAndSlug(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")
	article := createTestArticle(t, db, author, "hello-world")

	byID, err := db.GetArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	bySlug, err := db.GetArticleBySlug(ctx, "hello-world")
	if err != nil {
		t.Fatalf("GetArticleBySlug() error = %v", err)
	}

	if byID.Article.ID != bySlug.Article.ID {
		t.Errorf("lookups disagree: %q vs %q", byID.Article.ID, bySlug.Article.ID)
	}
	if byID.Author.Username != "jake" {
		t.Errorf("Author.Username = %q, want %q", byID.Author.Username, "jake")
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetArticleBySlug(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetArticleBySlug() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUpdateArticle_ReplacesTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")
	article := createTestArticle(t, db, author, "v1", "old")

	article.Title = "v2"
	article.Slug = "v2"
	if err := db.UpdateArticle(ctx, article, []string{"new"}); err != nil {
		t.Fatalf("UpdateArticle() error = %v", err)
	}

	row, err := db.GetArticleBySlug(ctx, "v2")
	if err != nil {
		t.Fatalf("GetArticleBySlug() error = %v", err)
	}
	if row.Article.Title != "v2" {
		t.Errorf("Title = %q, want %q", row.Article.Title, "v2")
	}

	tags, _ := db.TagsForArticles(ctx, []string{article.ID})
	if len(tags[article.ID]) != 1 || tags[article.ID][0] != "new" {
		t.Errorf("tags = %v, want [new]", tags[article.ID])
	}
}

func TestUpdateArticle_NilTagsUntouched(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")
	article := createTestArticle(t, db, author, "keep", "a", "b")

	article.Body = "edited"
	if err := db.UpdateArticle(ctx, article, nil); err != nil {
		t.Fatalf("UpdateArticle() error = %v", err)
	}

	tags, _ := db.TagsForArticles(ctx, []string{article.ID})
	if len(tags[article.ID]) != 2 {
		t.Errorf("tags = %v, want both kept", tags[article.ID])
	}
}

func TestUpdateArticle_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateArticle(context.Background(), &model.Article{ID: "missing", Slug: "x"}, nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateArticle() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteArticle_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")
	reader := createTestUser(t, db, "reader")
	article := createTestArticle(t, db, author, "doomed", "gone")

	if err := db.Favorite(ctx, reader.ID, article.ID); err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}
	if err := db.CreateComment(ctx, &model.Comment{ArticleID: article.ID, AuthorID: reader.ID, Body: "nice"}); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	if err := db.DeleteArticle(ctx, article.ID); err != nil {
		t.Fatalf("DeleteArticle() error = %v", err)
	}

	if tags, _ := db.ListTags(ctx); len(tags) != 0 {
		t.Errorf("tags left after delete: %v", tags)
	}
	if favs, _ := db.FavoritedArticleIDs(ctx, reader.ID); len(favs) != 0 {
		t.Errorf("favorites left after delete: %v", favs)
	}
	if comments, _ := db.ListComments(ctx, article.ID); len(comments) != 0 {
		t.Errorf("comments left after delete: %d", len(comments))
	}
}

func TestDeleteArticle_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteArticle(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteArticle() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST / FILTER TESTS
// =========================================================================

// seedFeed builds a small graph:
//
//	jake writes "dragons" (tag: fantasy) and "cooking" (tag: food)
//	anne writes "rust"    (tag: programming)
//	anne favorites "dragons"; bob follows anne
func seedFeed(t *testing.T, db *DB) (jake, anne, bob *model.User) {
	t.Helper()
	ctx := context.Background()

	jake = createTestUser(t, db, "jake")
	anne = createTestUser(t, db, "anne")
	bob = createTestUser(t, db, "bob")

	dragons := createTestArticle(t, db, jake, "dragons", "fantasy")
	createTestArticle(t, db, jake, "cooking", "food")
	createTestArticle(t, db, anne, "rust", "programming")

	if err := db.Favorite(ctx, anne.ID, dragons.ID); err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}
	if err := db.Follow(ctx, bob.ID, anne.ID); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	return jake, anne, bob
}

func TestListArticles_Filters(t *testing.T) {
	db := newTestDB(t)
	_, _, bob := seedFeed(t, db)

	tests := []struct {
		name      string
		filter    repository.ArticleFilter
		wantSlugs []string
	}{
		{
			name:      "no filter returns newest first",
			filter:    repository.ArticleFilter{},
			wantSlugs: []string{"rust", "cooking", "dragons"},
		},
		{
			name:      "by tag",
			filter:    repository.ArticleFilter{Tag: "food"},
			wantSlugs: []string{"cooking"},
		},
		{
			name:      "by author",
			filter:    repository.ArticleFilter{Author: "jake"},
			wantSlugs: []string{"cooking", "dragons"},
		},
		{
			name:      "favorited by",
			filter:    repository.ArticleFilter{FavoritedBy: "anne"},
			wantSlugs: []string{"dragons"},
		},
		{
			name:      "followed by",
			filter:    repository.ArticleFilter{FollowedBy: bob.ID},
			wantSlugs: []string{"rust"},
		},
		{
			name:      "filters are ANDed",
			filter:    repository.ArticleFilter{Author: "jake", Tag: "programming"},
			wantSlugs: []string{},
		},
		{
			name:      "unknown author matches nothing",
			filter:    repository.ArticleFilter{Author: "ghost"},
			wantSlugs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Limit = 20
			rows, err := db.ListArticles(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListArticles() error = %v", err)
			}

			got := make([]string, len(rows))
			for i, r := range rows {
				got[i] = r.Article.Slug
			}
			if len(got) != len(tt.wantSlugs) {
				t.Fatalf("slugs = %v, want %v", got, tt.wantSlugs)
			}
			for i := range got {
				if got[i] != tt.wantSlugs[i] {
					t.Errorf("slugs = %v, want %v", got, tt.wantSlugs)
					break
				}
			}

			count, err := db.CountArticles(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("CountArticles() error = %v", err)
			}
			if count != len(tt.wantSlugs) {
				t.Errorf("CountArticles() = %d, want %d", count, len(tt.wantSlugs))
			}
		})
	}
}

func TestListArticles_PaginationKeepsCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "jake")
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		createTestArticle(t, db, author, slug)
	}

	page1, err := db.ListArticles(ctx, repository.ArticleFilter{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("ListArticles() page 1 error = %v", err)
	}
	page3, err := db.ListArticles(ctx, repository.ArticleFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("ListArticles() page 3 error = %v", err)
	}

	if len(page1) != 2 || len(page3) != 1 {
		t.Errorf("page sizes = %d, %d, want 2, 1", len(page1), len(page3))
	}
	if page1[0].Article.Slug != "e" || page3[0].Article.Slug != "a" {
		t.Errorf("ordering wrong: first page starts %q, last page holds %q", page1[0].Article.Slug, page3[0].Article.Slug)
	}

	count, err := db.CountArticles(ctx, repository.ArticleFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("CountArticles() error = %v", err)
	}
	if count != 5 {
		t.Errorf("CountArticles() = %d, want 5 regardless of paging", count)
	}
}

func TestListTags_Distinct(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "jake")
	createTestArticle(t, db, author, "one", "go", "sql")
	createTestArticle(t, db, author, "two", "go")

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "sql" {
		t.Errorf("ListTags() = %v, want [go sql]", tags)
	}
}

func TestTagsForArticles_Empty(t *testing.T) {
	db := newTestDB(t)

	tags, err := db.TagsForArticles(context.Background(), nil)
	if err != nil {
		t.Fatalf("TagsForArticles() error = %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("TagsForArticles(nil) = %v, want empty", tags)
	}
}
