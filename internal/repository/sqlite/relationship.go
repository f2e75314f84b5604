package sqlite

import (
	"context"
	"time"

	"github.com/sakif/conduit/internal/repository"
)

var _ repository.RelationshipRepository = (*DB)(nil)

// Follow records that followerID follows followeeID. Following twice is a
// no-op. The self-follow CHECK constraint is a backstop; the service layer
// rejects that case first with a validation error.
func (db *DB) Follow(ctx context.Context, followerID, followeeID string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		followerID, followeeID, time.Now().UTC(),
	)
	if err != nil {
		return storeErr("following user", err)
	}
	return nil
}

// Unfollow removes the edge if present.
func (db *DB) Unfollow(ctx context.Context, followerID, followeeID string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return storeErr("unfollowing user", err)
	}
	return nil
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = ?)`,
		followerID, followeeID,
	).Scan(&exists)
	if err != nil {
		return false, storeErr("checking follow", err)
	}
	return exists, nil
}

// FollowedAmong reports which of candidateIDs followerID follows. Only
// followed ids appear in the result.
func (db *DB) FollowedAmong(ctx context.Context, followerID string, candidateIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if followerID == "" || len(candidateIDs) == 0 {
		return out, nil
	}

	ctx, cancel := db.bound(ctx)
	defer cancel()

	in, args := placeholders(candidateIDs)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = ? AND followee_id IN (`+in+`)`,
		append([]any{followerID}, args...)...,
	)
	if err != nil {
		return nil, storeErr("reading follows", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scanning follow", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating follows", err)
	}
	return out, nil
}

// Favorite marks articleID as a favorite of userID. Repeating it is a no-op.
func (db *DB) Favorite(ctx context.Context, userID, articleID string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorites (user_id, article_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, article_id) DO NOTHING`,
		userID, articleID, time.Now().UTC(),
	)
	if err != nil {
		return storeErr("favoriting article", err)
	}
	return nil
}

func (db *DB) Unfavorite(ctx context.Context, userID, articleID string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND article_id = ?`,
		userID, articleID,
	)
	if err != nil {
		return storeErr("unfavoriting article", err)
	}
	return nil
}

func (db *DB) FavoritesCount(ctx context.Context, articleID string) (int, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE article_id = ?`, articleID,
	).Scan(&n)
	if err != nil {
		return 0, storeErr("counting favorites", err)
	}
	return n, nil
}

// FavoriteCounts returns the favorite count of each article in one grouped
// query. Articles nobody favorited are absent from the map (count 0).
func (db *DB) FavoriteCounts(ctx context.Context, articleIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(articleIDs))
	if len(articleIDs) == 0 {
		return out, nil
	}

	ctx, cancel := db.bound(ctx)
	defer cancel()

	in, args := placeholders(articleIDs)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT article_id, COUNT(*) FROM favorites WHERE article_id IN (`+in+`) GROUP BY article_id`,
		args...,
	)
	if err != nil {
		return nil, storeErr("counting favorites", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, storeErr("scanning favorite count", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating favorite counts", err)
	}
	return out, nil
}

// FavoritedArticleIDs returns the set of article ids userID has favorited.
func (db *DB) FavoritedArticleIDs(ctx context.Context, userID string) (map[string]bool, error) {
	out := make(map[string]bool)
	if userID == "" {
		return out, nil
	}

	ctx, cancel := db.bound(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT article_id FROM favorites WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, storeErr("reading favorites", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scanning favorite", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating favorites", err)
	}
	return out, nil
}
