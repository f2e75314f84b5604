package sqlite

import (
	"context"
	"fmt"
)

// migrations is an ordered list of schema changes. Each entry runs exactly
// once; the schema_version table records how many have been applied.
// Append new entries, never edit applied ones.
var migrations = []string{
	// 1: accounts
	`
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	bio        TEXT,
	image      TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`,
	// 2: articles and their tags
	`
CREATE TABLE IF NOT EXISTS articles (
	id          TEXT PRIMARY KEY,
	author_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	slug        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	body        TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author_id);
CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at DESC);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	UNIQUE (article_id, name)
);
CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name);
`,
	// 3: social graph
	`
CREATE TABLE IF NOT EXISTS follows (
	follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	followee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at  DATETIME NOT NULL,
	PRIMARY KEY (follower_id, followee_id),
	CHECK (follower_id <> followee_id)
);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);

CREATE TABLE IF NOT EXISTS favorites (
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, article_id)
);
CREATE INDEX IF NOT EXISTS idx_favorites_article ON favorites(article_id);
`,
	// 4: comments
	`
CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id);
`,
}

// migrate brings the schema up to date. It is safe to run on every start.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var current int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&current); err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		if _, err := db.conn.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_version (version) VALUES (?)`, i+1,
		); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion reports the number of applied migrations.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var v int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&v); err != nil {
		return 0, storeErr("reading schema version", err)
	}
	return v, nil
}
