package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTokenFromAuthorizationHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.Header.Set("Sec-WebSocket-Protocol", "bearer.proto-token")

	// The header wins over every other carrier.
	assert.Equal(t, "header-token", extractToken(r))
}

func TestExtractTokenFromSubprotocol(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=query-token", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "json, bearer.proto-token")

	assert.Equal(t, "proto-token", extractToken(r))
}

func TestExtractTokenFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=query-token", nil)

	assert.Equal(t, "query-token", extractToken(r))
}

func TestExtractTokenAbsent(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)

	assert.Empty(t, extractToken(r))
}

func TestSelectSubprotocolEchoesBearerEntry(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "json, bearer.proto-token")

	h := selectSubprotocol(r)
	require.NotNil(t, h)
	assert.Equal(t, "bearer.proto-token", h.Get("Sec-WebSocket-Protocol"))
}

func TestSelectSubprotocolNoBearerEntry(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "json")

	assert.Nil(t, selectSubprotocol(r))
}
