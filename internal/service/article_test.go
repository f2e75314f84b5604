package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository/sqlite"
)

// =========================================================================
// HELPERS
// =========================================================================

// These tests run against a real in-memory SQLite database. The
// aggregation path is mostly SQL, so a fake would test very little.

type fixture struct {
	db       *sqlite.DB
	articles *ArticleService
	profiles *ProfileService
	comments *CommentService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := sqlite.New(":memory:", sqlite.Options{})
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := discardLogger()
	return fixture{
		db:       db,
		articles: NewArticleService(db, db, logger),
		profiles: NewProfileService(db, db, logger),
		comments: NewCommentService(db, db, db, logger),
	}
}

func (f fixture) user(t *testing.T, username string) model.User {
	t.Helper()
	u := &model.User{Email: username + "@example.com", Username: username, PasswordHash: "x"}
	if err := f.db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return *u
}

func (f fixture) article(t *testing.T, author model.User, title string, tags ...string) *model.ArticleDetail {
	t.Helper()
	a, err := f.articles.Create(context.Background(), author.ID, ArticleInput{
		Title:       title,
		Description: "about " + title,
		Body:        "body of " + title,
		Tags:        tags,
	})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return a
}

func slugsOf(page *ArticlePage) []string {
	out := make([]string, len(page.Articles))
	for i, a := range page.Articles {
		out[i] = a.Article.Slug
	}
	return out
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_SlugAndTags(t *testing.T) {
	f := newFixture(t)
	jake := f.user(t, "jake")

	a := f.article(t, jake, "Hello World", "a", "b", "a", " ")

	if a.Article.Slug != "hello-world" {
		t.Errorf("Slug = %q, want %q", a.Article.Slug, "hello-world")
	}

	got := append([]string(nil), a.Tags...)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Tags = %v, want set {a, b}", a.Tags)
	}
	if a.Author.Username != "jake" || a.Author.Following {
		t.Errorf("Author = %+v, want jake, not following", a.Author)
	}
	if a.Favorited || a.FavoritesCount != 0 {
		t.Errorf("new article favorited=%v count=%d, want false 0", a.Favorited, a.FavoritesCount)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        ArticleInput
		wantField string
	}{
		{name: "no title", in: ArticleInput{Description: "d", Body: "b"}, wantField: "title"},
		{name: "punctuation-only title", in: ArticleInput{Title: "?!", Description: "d", Body: "b"}, wantField: "title"},
		{name: "reserved feed slug", in: ArticleInput{Title: "  Feed! ", Description: "d", Body: "b"}, wantField: "title"},
		{name: "no description", in: ArticleInput{Title: "t", Body: "b"}, wantField: "description"},
		{name: "no body", in: ArticleInput{Title: "t", Description: "d"}, wantField: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			jake := f.user(t, "jake")

			_, err := f.articles.Create(context.Background(), jake.ID, tt.in)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestCreate_DuplicateTitleConflicts(t *testing.T) {
	f := newFixture(t)
	jake := f.user(t, "jake")
	f.article(t, jake, "Same Title")

	_, err := f.articles.Create(context.Background(), jake.ID, ArticleInput{
		Title: "Same title", Description: "d", Body: "b",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// AGGREGATION TESTS
// =========================================================================

func TestList_CountIgnoresPaging(t *testing.T) {
	f := newFixture(t)
	jake := f.user(t, "jake")
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		f.article(t, jake, title)
	}

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantItems int
	}{
		{name: "defaults", wantItems: 5},
		{name: "small page", limit: 2, wantItems: 2},
		{name: "last page", limit: 2, offset: 4, wantItems: 1},
		{name: "past the end", limit: 2, offset: 50, wantItems: 0},
		{name: "negative offset", limit: 3, offset: -5, wantItems: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.articles.List(context.Background(), "", ListQuery{Limit: tt.limit, Offset: tt.offset})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(page.Articles) != tt.wantItems {
				t.Errorf("len(Articles) = %d, want %d", len(page.Articles), tt.wantItems)
			}
			if page.Count != 5 {
				t.Errorf("Count = %d, want 5", page.Count)
			}
		})
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 20, 0},
		{-1, -1, 20, 0},
		{500, 0, 100, 0},
		{10, 30, 10, 30},
		{10, 1000, 10, 100},
	}
	for _, tt := range tests {
		l, o := clampPage(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("clampPage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.limit, tt.offset, l, o, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestList_ViewerRelativeFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	anne := f.user(t, "anne")

	a := f.article(t, jake, "Dragons", "fantasy")

	if _, err := f.articles.Favorite(ctx, anne.ID, a.Article.Slug); err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}
	if _, err := f.profiles.Follow(ctx, anne.ID, "jake"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	// anne sees her favorite and her follow.
	page, err := f.articles.List(ctx, anne.ID, ListQuery{})
	if err != nil {
		t.Fatalf("List() as anne error = %v", err)
	}
	got := page.Articles[0]
	if !got.Favorited || got.FavoritesCount != 1 || !got.Author.Following {
		t.Errorf("anne's view = favorited %v count %d following %v, want true 1 true",
			got.Favorited, got.FavoritesCount, got.Author.Following)
	}

	// An anonymous viewer sees the count but no personal flags.
	page, err = f.articles.List(ctx, "", ListQuery{})
	if err != nil {
		t.Fatalf("List() anonymous error = %v", err)
	}
	got = page.Articles[0]
	if got.Favorited || got.FavoritesCount != 1 || got.Author.Following {
		t.Errorf("anonymous view = favorited %v count %d following %v, want false 1 false",
			got.Favorited, got.FavoritesCount, got.Author.Following)
	}
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	anne := f.user(t, "anne")

	f.article(t, jake, "Dragons", "fantasy")
	f.article(t, anne, "Rust", "programming")
	f.article(t, anne, "Go", "programming")

	if _, err := f.articles.Favorite(ctx, jake.ID, "go"); err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}

	tests := []struct {
		name string
		q    ListQuery
		want []string
	}{
		{name: "tag", q: ListQuery{Tag: "programming"}, want: []string{"go", "rust"}},
		{name: "author", q: ListQuery{Author: "jake"}, want: []string{"dragons"}},
		{name: "favorited", q: ListQuery{Favorited: "jake"}, want: []string{"go"}},
		{name: "tag and author", q: ListQuery{Tag: "programming", Author: "jake"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.articles.List(ctx, "", tt.q)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			got := slugsOf(page)
			if len(got) != len(tt.want) {
				t.Fatalf("slugs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("slugs = %v, want %v", got, tt.want)
				}
			}
			if page.Count != len(tt.want) {
				t.Errorf("Count = %d, want %d", page.Count, len(tt.want))
			}
		})
	}
}

func TestFeed_FollowUnfollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	reader := f.user(t, "reader")
	f.article(t, author, "Fresh Post")

	page, err := f.articles.Feed(ctx, reader.ID, 0, 0)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(page.Articles) != 0 {
		t.Fatalf("feed before follow = %v, want empty", slugsOf(page))
	}

	if _, err := f.profiles.Follow(ctx, reader.ID, "author"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	page, err = f.articles.Feed(ctx, reader.ID, 0, 0)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if got := slugsOf(page); len(got) != 1 || got[0] != "fresh-post" || page.Count != 1 {
		t.Errorf("feed after follow = %v (count %d), want [fresh-post]", got, page.Count)
	}
	if !page.Articles[0].Author.Following {
		t.Error("feed article author should be marked as followed")
	}

	if _, err := f.profiles.Unfollow(ctx, reader.ID, "author"); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	page, err = f.articles.Feed(ctx, reader.ID, 0, 0)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(page.Articles) != 0 || page.Count != 0 {
		t.Errorf("feed after unfollow = %v, want empty", slugsOf(page))
	}
}

func TestFeed_RequiresViewer(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.Feed(context.Background(), "", 0, 0)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Feed() anonymous error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// FAVORITE TESTS
// =========================================================================

func TestFavorite_FlipsFlagAndCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	anne := f.user(t, "anne")
	a := f.article(t, jake, "Hello World")

	fav, err := f.articles.Favorite(ctx, anne.ID, "hello-world")
	if err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}
	if !fav.Favorited || fav.FavoritesCount != 1 {
		t.Errorf("after Favorite: favorited %v count %d, want true 1", fav.Favorited, fav.FavoritesCount)
	}

	// Repeating is a no-op.
	fav, err = f.articles.Favorite(ctx, anne.ID, a.Article.ID)
	if err != nil {
		t.Fatalf("Favorite() again error = %v", err)
	}
	if fav.FavoritesCount != 1 {
		t.Errorf("after repeated Favorite: count %d, want 1", fav.FavoritesCount)
	}

	unfav, err := f.articles.Unfavorite(ctx, anne.ID, "hello-world")
	if err != nil {
		t.Fatalf("Unfavorite() error = %v", err)
	}
	if unfav.Favorited || unfav.FavoritesCount != 0 {
		t.Errorf("after Unfavorite: favorited %v count %d, want false 0", unfav.Favorited, unfav.FavoritesCount)
	}
}

// =========================================================================
// GET / UPDATE / DELETE TESTS
// =========================================================================

func TestGet_ByIDOrSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	a := f.article(t, jake, "Hello World")

	for _, ref := range []string{a.Article.ID, "hello-world"} {
		got, err := f.articles.Get(ctx, "", ref)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", ref, err)
		}
		if got.Article.ID != a.Article.ID {
			t.Errorf("Get(%q) returned %q", ref, got.Article.ID)
		}
	}

	if _, err := f.articles.Get(ctx, "", "no-such-article"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_TitleRederivesSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	a := f.article(t, jake, "Old Title", "x")

	title := "New Title"
	updated, err := f.articles.Update(ctx, jake.ID, a.Article.Slug, model.ArticleUpdate{
		Title: &title,
		Tags:  []string{"y", "z"},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Article.Slug != "new-title" {
		t.Errorf("Slug = %q, want %q", updated.Article.Slug, "new-title")
	}
	if len(updated.Tags) != 2 {
		t.Errorf("Tags = %v, want [y z]", updated.Tags)
	}
	if updated.Article.Description != a.Article.Description {
		t.Error("Update() changed a field that was not supplied")
	}
}

func TestUpdateDelete_AuthorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jake := f.user(t, "jake")
	anne := f.user(t, "anne")
	a := f.article(t, jake, "Mine")

	body := "hijacked"
	if _, err := f.articles.Update(ctx, anne.ID, a.Article.ID, model.ArticleUpdate{Body: &body}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() by non-author error = %v, want ErrForbidden", err)
	}
	if err := f.articles.Delete(ctx, anne.ID, a.Article.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() by non-author error = %v, want ErrForbidden", err)
	}

	if err := f.articles.Delete(ctx, jake.ID, a.Article.ID); err != nil {
		t.Fatalf("Delete() by author error = %v", err)
	}
	if _, err := f.articles.Get(ctx, "", a.Article.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	jake := f.user(t, "jake")
	f.article(t, jake, "One", "go", "sql")
	f.article(t, jake, "Two", "go")

	tags, err := f.articles.Tags(context.Background())
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("Tags() = %v, want two distinct names", tags)
	}
}
