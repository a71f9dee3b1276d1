package auth

import (
	"context"
	"errors"
	"testing"

	gojwt "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackly/internal/app/db"
	"stackly/internal/app/user"
	"stackly/internal/pkg/auth/jwt"
	"stackly/internal/pkg/errs"
)

const testSecret = "authorizer-test-secret"

// memDirectory is an in-memory Directory for tests.
type memDirectory struct {
	users    map[string]user.User
	inactive map[string]bool
	members  map[string]map[string]bool
	failWith error
}

func (d *memDirectory) UserByID(_ context.Context, id string) (user.User, bool, error) {
	if d.failWith != nil {
		return user.User{}, false, d.failWith
	}
	u, ok := d.users[id]
	if !ok {
		return user.User{}, false, db.ErrUserNotFound
	}
	return u, !d.inactive[id], nil
}

func (d *memDirectory) IsBoardMember(_ context.Context, boardID, userID string) (bool, error) {
	if d.failWith != nil {
		return false, d.failWith
	}
	return d.members[boardID][userID], nil
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users: map[string]user.User{
			"u1": {ID: "u1", Email: "u1@example.com", Nickname: "one"},
		},
		inactive: map[string]bool{},
		members: map[string]map[string]bool{
			"b1": {"u1": true},
		},
	}
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()

	token, err := jwt.GenerateToken(&jwt.Payload{
		StandardClaims: gojwt.StandardClaims{Subject: subject},
	}, testSecret, jwt.UserIdentityExpiration)
	require.NoError(t, err)
	return token
}

func assertErrCode(t *testing.T, err error, code int) {
	t.Helper()

	var customErr *errs.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, code, customErr.Code)
}

func TestVerifyCredential(t *testing.T) {
	a := NewTokenAuthorizer(testSecret, newMemDirectory())

	u, err := a.VerifyCredential(context.Background(), mintToken(t, "u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "one", u.Nickname)
}

func TestVerifyCredentialEmptyToken(t *testing.T) {
	a := NewTokenAuthorizer(testSecret, newMemDirectory())

	_, err := a.VerifyCredential(context.Background(), "")
	assertErrCode(t, err, errs.ErrAuthTokenRequired)
}

func TestVerifyCredentialBadSignature(t *testing.T) {
	a := NewTokenAuthorizer("some-other-secret", newMemDirectory())

	_, err := a.VerifyCredential(context.Background(), mintToken(t, "u1"))
	assertErrCode(t, err, errs.ErrAuthTokenInvalid)
}

func TestVerifyCredentialUnknownUser(t *testing.T) {
	a := NewTokenAuthorizer(testSecret, newMemDirectory())

	// Valid signature for an account the directory does not know.
	_, err := a.VerifyCredential(context.Background(), mintToken(t, "ghost"))
	assertErrCode(t, err, errs.ErrUserInactive)
}

func TestVerifyCredentialInactiveUser(t *testing.T) {
	dir := newMemDirectory()
	dir.inactive["u1"] = true
	a := NewTokenAuthorizer(testSecret, dir)

	_, err := a.VerifyCredential(context.Background(), mintToken(t, "u1"))
	assertErrCode(t, err, errs.ErrUserInactive)
}

func TestVerifyCredentialDirectoryFailure(t *testing.T) {
	dir := newMemDirectory()
	dir.failWith = errors.New("connection refused")
	a := NewTokenAuthorizer(testSecret, dir)

	_, err := a.VerifyCredential(context.Background(), mintToken(t, "u1"))
	assertErrCode(t, err, errs.ErrUnknown)
}

func TestIsBoardMember(t *testing.T) {
	a := NewTokenAuthorizer(testSecret, newMemDirectory())

	member, err := a.IsBoardMember(context.Background(), "b1", "u1")
	require.NoError(t, err)
	assert.True(t, member)

	member, err = a.IsBoardMember(context.Background(), "b1", "u2")
	require.NoError(t, err)
	assert.False(t, member)

	member, err = a.IsBoardMember(context.Background(), "nope", "u1")
	require.NoError(t, err)
	assert.False(t, member)
}
