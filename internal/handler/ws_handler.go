/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
extracting the bearer credential from the handshake, upgrading the HTTP connection to
WebSocket, and handing the connection to the realtime hub for authentication and dispatch.
*/
package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/limiter"
	"stackly/internal/pkg/logx"
	"stackly/internal/pkg/resp"
)

// bearerProtocolPrefix marks the subprotocol entry browsers use to smuggle a
// bearer token through the WebSocket handshake, where custom headers are not
// available.
const bearerProtocolPrefix = "bearer."

// extractToken pulls the raw credential from the connection handshake.
// Precedence: Authorization header, then the bearer subprotocol entry, then
// the token query parameter. An empty return means no credential was present.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	for _, proto := range websocket.Subprotocols(r) {
		if strings.HasPrefix(proto, bearerProtocolPrefix) {
			return strings.TrimPrefix(proto, bearerProtocolPrefix)
		}
	}

	return r.URL.Query().Get("token")
}

// selectSubprotocol echoes the client's bearer subprotocol entry so browsers
// accept the handshake response when the token travels that way.
func selectSubprotocol(r *http.Request) http.Header {
	for _, proto := range websocket.Subprotocols(r) {
		if strings.HasPrefix(proto, bearerProtocolPrefix) {
			return http.Header{"Sec-WebSocket-Protocol": []string{proto}}
		}
	}
	return nil
}

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		token := extractToken(r)

		conn, err := upgrader.Upgrade(w, r, selectSubprotocol(r))
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		// Blocks for the lifetime of the connection. The hub authenticates
		// before processing any other message and closes the peer on failure.
		deps.Hub.HandleConnection(r.Context(), conn, token)
	}
}
