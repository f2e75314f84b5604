package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

var _ repository.ArticleRepository = (*DB)(nil)

// articleSelect joins every article with its author so a page of results
// needs a single round trip.
const articleSelect = `
SELECT a.id, a.author_id, a.slug, a.title, a.description, a.body, a.created_at, a.updated_at,
       u.id, u.email, u.username, u.password, u.bio, u.image, u.created_at, u.updated_at
FROM articles a
JOIN users u ON u.id = a.author_id`

func scanArticleRow(s scanner) (model.ArticleRow, error) {
	var row model.ArticleRow
	a := &row.Article
	err := scanUser(s, &row.Author,
		&a.ID, &a.AuthorID, &a.Slug, &a.Title, &a.Description, &a.Body, &a.CreatedAt, &a.UpdatedAt,
	)
	return row, err
}

// CreateArticle inserts the article and its tags in one transaction, so a
// failure on any tag leaves no orphaned article behind.
func (db *DB) CreateArticle(ctx context.Context, article *model.Article, tags []string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	now := time.Now().UTC()
	article.ID = xid.New().String()
	article.CreatedAt = now
	article.UpdatedAt = now

	return db.withTx(ctx, "creating article", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO articles (id, author_id, slug, title, description, body, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			article.ID,
			article.AuthorID,
			article.Slug,
			article.Title,
			article.Description,
			article.Body,
			article.CreatedAt,
			article.UpdatedAt,
		)
		if err != nil {
			return storeErr("creating article", err)
		}
		return insertTags(ctx, tx, article.ID, tags)
	})
}

// insertTags stores one row per distinct name. Repeats are ignored.
func insertTags(ctx context.Context, tx *sql.Tx, articleID string, tags []string) error {
	for _, name := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tags (id, article_id, name) VALUES (?, ?, ?)
			 ON CONFLICT (article_id, name) DO NOTHING`,
			xid.New().String(), articleID, name,
		)
		if err != nil {
			return storeErr("saving tags", err)
		}
	}
	return nil
}

func (db *DB) GetArticle(ctx context.Context, id string) (*model.ArticleRow, error) {
	return db.getArticle(ctx, "a.id", id)
}

func (db *DB) GetArticleBySlug(ctx context.Context, slug string) (*model.ArticleRow, error) {
	return db.getArticle(ctx, "a.slug", slug)
}

func (db *DB) getArticle(ctx context.Context, column, value string) (*model.ArticleRow, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	row, err := scanArticleRow(db.conn.QueryRowContext(ctx,
		articleSelect+` WHERE `+column+` = ?`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", value)
		}
		return nil, storeErr("reading article", err)
	}
	return &row, nil
}

// UpdateArticle saves title, slug, description and body. A non-nil tags
// slice replaces the stored tag list within the same transaction.
func (db *DB) UpdateArticle(ctx context.Context, article *model.Article, tags []string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	article.UpdatedAt = time.Now().UTC()

	return db.withTx(ctx, "updating article", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE articles SET slug = ?, title = ?, description = ?, body = ?, updated_at = ?
			 WHERE id = ?`,
			article.Slug,
			article.Title,
			article.Description,
			article.Body,
			article.UpdatedAt,
			article.ID,
		)
		if err != nil {
			return storeErr("updating article", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return storeErr("updating article", err)
		}
		if n == 0 {
			return apperror.NotFound("article", article.ID)
		}

		if tags == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE article_id = ?`, article.ID); err != nil {
			return storeErr("replacing tags", err)
		}
		return insertTags(ctx, tx, article.ID, tags)
	})
}

// DeleteArticle removes the article. Tags, comments and favorites go with
// it through ON DELETE CASCADE.
func (db *DB) DeleteArticle(ctx context.Context, id string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return storeErr("deleting article", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr("deleting article", err)
	}
	if n == 0 {
		return apperror.NotFound("article", id)
	}
	return nil
}

// filterClause turns the filter into a WHERE clause shared by the page
// query and the count query. Every set field adds one IN-subquery; they are
// ANDed together.
func filterClause(f repository.ArticleFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Tag != "" {
		conds = append(conds, `a.id IN (SELECT article_id FROM tags WHERE name = ?)`)
		args = append(args, f.Tag)
	}
	if f.Author != "" {
		conds = append(conds, `a.author_id IN (SELECT id FROM users WHERE username = ?)`)
		args = append(args, f.Author)
	}
	if f.FavoritedBy != "" {
		conds = append(conds, `a.id IN (
			SELECT fav.article_id FROM favorites fav
			JOIN users fu ON fu.id = fav.user_id
			WHERE fu.username = ?)`)
		args = append(args, f.FavoritedBy)
	}
	if f.FollowedBy != "" {
		conds = append(conds, `a.author_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)`)
		args = append(args, f.FollowedBy)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListArticles returns one page of articles with their authors, newest
// first. Ties on created_at break on id, which is time-sortable.
func (db *DB) ListArticles(ctx context.Context, filter repository.ArticleFilter) ([]model.ArticleRow, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	where, args := filterClause(filter)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx,
		articleSelect+where+` ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, storeErr("listing articles", err)
	}
	defer rows.Close()

	articles := []model.ArticleRow{}
	for rows.Next() {
		row, err := scanArticleRow(rows)
		if err != nil {
			return nil, storeErr("scanning article", err)
		}
		articles = append(articles, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating articles", err)
	}
	return articles, nil
}

// CountArticles counts every article matching the filter, ignoring
// Limit and Offset.
func (db *DB) CountArticles(ctx context.Context, filter repository.ArticleFilter) (int, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	where, args := filterClause(filter)

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a`+where, args...,
	).Scan(&count)
	if err != nil {
		return 0, storeErr("counting articles", err)
	}
	return count, nil
}

// TagsForArticles fetches the tags of all given articles in one query,
// grouped by article id in insertion order.
func (db *DB) TagsForArticles(ctx context.Context, articleIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(articleIDs))
	if len(articleIDs) == 0 {
		return out, nil
	}

	ctx, cancel := db.bound(ctx)
	defer cancel()

	in, args := placeholders(articleIDs)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT article_id, name FROM tags WHERE article_id IN (`+in+`) ORDER BY rowid`,
		args...,
	)
	if err != nil {
		return nil, storeErr("reading tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var articleID, name string
		if err := rows.Scan(&articleID, &name); err != nil {
			return nil, storeErr("scanning tag", err)
		}
		out[articleID] = append(out[articleID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating tags", err)
	}
	return out, nil
}

// ListTags returns every distinct tag name in alphabetical order.
func (db *DB) ListTags(ctx context.Context) ([]string, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT name FROM tags ORDER BY name`)
	if err != nil {
		return nil, storeErr("listing tags", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("scanning tag", err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating tags", err)
	}
	return tags, nil
}
