package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for Stackly.
// It includes standard claims required by the JWT specification and the custom
// claims necessary for identifying users on the realtime coordinator.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), Sub (Subject) and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims

	// Email is the account email address of the token holder.
	Email string `json:"email,omitempty"`

	// Nickname is the display name of the token holder.
	Nickname string `json:"nickname,omitempty"`
}

// UserID returns the user identifier carried by the token. The account system
// issues tokens with the user id in the standard Subject claim.
func (p *Payload) UserID() string {
	return p.Subject
}
