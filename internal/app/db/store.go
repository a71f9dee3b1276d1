package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stackly/internal/app/user"
)

// ErrUserNotFound is returned when no user row exists for the requested id.
var ErrUserNotFound = errors.New("user not found")

// Store exposes the read-only queries the realtime coordinator needs against
// the account and membership tables.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps the given connection pool in a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UserByID loads the identity row for the given user id. It returns
// ErrUserNotFound when the row does not exist; the caller decides whether an
// inactive account is acceptable.
func (s *Store) UserByID(ctx context.Context, id string) (user.User, bool, error) {
	const query = `
		SELECT id, email, nickname, COALESCE(avatar, ''), is_active
		FROM users
		WHERE id = $1`

	var u user.User
	var isActive bool

	err := s.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.Nickname, &u.Avatar, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, false, ErrUserNotFound
		}
		return user.User{}, false, fmt.Errorf("failed to query user %s: %w", id, err)
	}

	return u, isActive, nil
}

// IsBoardMember reports whether the given user is a member of the given board.
func (s *Store) IsBoardMember(ctx context.Context, boardID, userID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM board_members
			WHERE board_id = $1 AND user_id = $2
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, boardID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query board membership: %w", err)
	}

	return exists, nil
}
