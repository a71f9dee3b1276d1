/*
Package user contains the core data structure for participant identity.

It defines the basic representation of an authenticated user within the
collaboration system (the User struct), used for passing identity information
both internally and to connected clients.
*/
package user

// User represents the identity of an authenticated participant.
// Fields use JSON tags for serialization in WebSocket messages.
type User struct {

	// ID is the unique identifier for the user, issued by the account system.
	ID string `json:"id"`

	// Email is the account email address of the user.
	Email string `json:"email"`

	// Nickname is the display name shown to other board members.
	Nickname string `json:"nickname"`

	// Avatar is the URL for the user's avatar, if one is set.
	Avatar string `json:"avatar,omitempty"`
}
