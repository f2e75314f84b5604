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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, password, bio, image, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads the userColumns into u. lead holds destinations for any
// columns selected before the user columns (joins put the user last).
func scanUser(s scanner, u *model.User, lead ...any) error {
	var bio, image sql.NullString
	dest := append(lead,
		&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&bio, &image, &u.CreatedAt, &u.UpdatedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	u.Bio = stringPtr(bio)
	u.Image = stringPtr(image)
	return nil
}

// CreateUser inserts a new account. The ID and timestamps are set on the
// passed-in user. A taken email or username yields apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		nullString(user.Bio),
		nullString(user.Image),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return storeErr("creating user", err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

// getUser looks a user up by one unique column. column is always a
// constant supplied by this package, never user input.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var u model.User
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, storeErr("reading user", err)
	}
	return &u, nil
}

// UpdateUser writes every mutable column of user and bumps UpdatedAt.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	user.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, username = ?, password = ?, bio = ?, image = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.Username,
		user.PasswordHash,
		nullString(user.Bio),
		nullString(user.Image),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return storeErr("updating user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("updating user", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}
