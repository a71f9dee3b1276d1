/*
Package auth implements the Authorizer consumed by the realtime gateway.

It verifies bearer credentials presented during the WebSocket handshake and
answers board membership questions for join requests. Identity verification is
a JWT signature check followed by an account lookup; membership is a read
against the board_members table owned by the CRUD backend.
*/
package auth

import (
	"context"
	"errors"

	"stackly/internal/app/db"
	"stackly/internal/app/user"
	"stackly/internal/pkg/auth/jwt"
	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/logx"
)

// Directory answers identity and membership lookups. *db.Store is the
// production implementation; tests substitute an in-memory one.
type Directory interface {
	// UserByID returns the identity for the given id plus whether the account
	// is active.
	UserByID(ctx context.Context, id string) (user.User, bool, error)

	// IsBoardMember reports whether the user belongs to the board.
	IsBoardMember(ctx context.Context, boardID, userID string) (bool, error)
}

// Authorizer is the narrow interface the gateway depends on.
type Authorizer interface {
	// VerifyCredential validates a raw bearer credential and returns the
	// identity it carries. A failure means the connection must be terminated.
	VerifyCredential(ctx context.Context, token string) (user.User, error)

	// IsBoardMember reports whether the user may join the board's room.
	IsBoardMember(ctx context.Context, boardID, userID string) (bool, error)
}

// TokenAuthorizer verifies HS256 bearer tokens against a shared secret and
// resolves the subject through a Directory.
type TokenAuthorizer struct {
	secret    string
	directory Directory
}

// NewTokenAuthorizer constructs a TokenAuthorizer.
func NewTokenAuthorizer(secret string, directory Directory) *TokenAuthorizer {
	return &TokenAuthorizer{secret: secret, directory: directory}
}

// VerifyCredential parses and validates the token, then loads the subject's
// account. Missing or inactive accounts are rejected even when the signature
// is valid, so revoked users cannot reuse old tokens.
func (a *TokenAuthorizer) VerifyCredential(ctx context.Context, token string) (user.User, error) {
	if token == "" {
		return user.User{}, errs.NewError(errs.ErrAuthTokenRequired)
	}

	payload, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		logx.Warn("Credential verification failed", "error", err)
		return user.User{}, errs.NewError(errs.ErrAuthTokenInvalid)
	}

	u, active, err := a.directory.UserByID(ctx, payload.UserID())
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return user.User{}, errs.NewError(errs.ErrUserInactive)
		}
		logx.Error(err, "Account lookup failed during authentication", "user_id", payload.UserID())
		return user.User{}, errs.NewError(errs.ErrUnknown)
	}

	if !active {
		return user.User{}, errs.NewError(errs.ErrUserInactive)
	}

	return u, nil
}

// IsBoardMember delegates to the directory.
func (a *TokenAuthorizer) IsBoardMember(ctx context.Context, boardID, userID string) (bool, error) {
	return a.directory.IsBoardMember(ctx, boardID, userID)
}
