/*
Package handler provides the HTTP handlers and routing setup for the Stackly realtime server.

This file contains the development-only token endpoint. In production the
account service issues tokens; locally this endpoint mints one so a client can
connect without running the full stack.
*/
package handler

import (
	"net/http"

	"github.com/goccy/go-json"
	gojwt "github.com/golang-jwt/jwt"

	"stackly/internal/pkg/auth/jwt"
	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/logx"
	"stackly/internal/pkg/resp"
)

// devTokenRequest is the body of a development token mint request.
type devTokenRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// HandleDevToken mints a signed identity token for the requested user id.
// Only routed in the development environment.
func HandleDevToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req devTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		payload := &jwt.Payload{
			StandardClaims: gojwt.StandardClaims{Subject: req.UserID},
			Email:          req.Email,
			Nickname:       req.Nickname,
		}

		token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
		if err != nil {
			logx.Error(err, "Failed to generate development token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"token": token})
	}
}
