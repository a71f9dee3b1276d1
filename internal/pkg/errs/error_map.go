/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrMalformedMessage:  {Code: ErrMalformedMessage, Message: "Message could not be decoded."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Board and Room Business Logic Errors
	ErrBoardAccessDenied: {Code: ErrBoardAccessDenied, Message: "Access denied to this board."},
	ErrBoardNotJoined:    {Code: ErrBoardNotJoined, Message: "You have not joined this board."},

	// 3xxx: Authentication and Session Errors
	ErrAuthTokenRequired: {Code: ErrAuthTokenRequired, Message: "Authentication token required.", Status: http.StatusUnauthorized},
	ErrAuthTokenInvalid:  {Code: ErrAuthTokenInvalid, Message: "Invalid authentication token.", Status: http.StatusUnauthorized},
	ErrNotAuthenticated:  {Code: ErrNotAuthenticated, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrUserInactive:      {Code: ErrUserInactive, Message: "Account not found or inactive.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
