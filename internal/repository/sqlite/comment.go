package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

// CreateComment inserts a comment. A missing article trips the foreign
// key and is reported as not found.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	now := time.Now().UTC()
	comment.ID = xid.New().String()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, article_id, author_id, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.ArticleID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return apperror.NotFound("article", comment.ArticleID)
		}
		return storeErr("creating comment", err)
	}
	return nil
}

func (db *DB) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var c model.Comment
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, article_id, author_id, body, created_at, updated_at FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, storeErr("reading comment", err)
	}
	return &c, nil
}

// ListComments returns an article's comments with their authors, newest
// first.
func (db *DB) ListComments(ctx context.Context, articleID string) ([]model.CommentRow, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.article_id, c.author_id, c.body, c.created_at, c.updated_at,
		       u.id, u.email, u.username, u.password, u.bio, u.image, u.created_at, u.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.article_id = ?
		ORDER BY c.created_at DESC, c.id DESC`,
		articleID,
	)
	if err != nil {
		return nil, storeErr("listing comments", err)
	}
	defer rows.Close()

	comments := []model.CommentRow{}
	for rows.Next() {
		var row model.CommentRow
		c := &row.Comment
		if err := scanUser(rows, &row.Author,
			&c.ID, &c.ArticleID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, storeErr("scanning comment", err)
		}
		comments = append(comments, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating comments", err)
	}
	return comments, nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return storeErr("deleting comment", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr("deleting comment", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}
