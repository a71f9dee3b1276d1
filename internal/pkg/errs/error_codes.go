/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrMalformedMessage indicates an undecodable inbound message or a payload
	// missing a required field. The message is dropped; the connection stays open.
	ErrMalformedMessage = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Board and Room Business Logic Errors
const (
	// ErrBoardAccessDenied indicates a valid identity that is not a member of the
	// requested board. The join request is rejected; the connection stays open.
	ErrBoardAccessDenied = 2101

	// ErrBoardNotJoined indicates an event referencing a board the connection has
	// not joined.
	ErrBoardNotJoined = 2102
)

// 3xxx: Authentication and Session Errors
const (
	// ErrAuthTokenRequired indicates that no credential was found in the
	// connection handshake. The connection is terminated.
	ErrAuthTokenRequired = 3001

	// ErrAuthTokenInvalid indicates that the supplied credential failed
	// verification. The connection is terminated.
	ErrAuthTokenInvalid = 3002

	// ErrNotAuthenticated indicates a room operation was attempted before the
	// authentication handshake completed.
	ErrNotAuthenticated = 3003

	// ErrUserInactive indicates the credential maps to a missing or deactivated
	// account.
	ErrUserInactive = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
