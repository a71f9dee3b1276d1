/*
Package realtime contains the real-time collaboration coordinator.

This file defines the Client struct, representing one authenticated WebSocket
connection. It manages the connection's message loops (ReadPump and WritePump)
and the buffered outbound queue the hub broadcasts into.
*/
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"stackly/internal/app/user"
	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 65536

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256

	// WsCloseCodeAuthFailed is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the authentication handshake failed.
	WsCloseCodeAuthFailed = 4001
)

// frame is one queued outbound message: either a text frame carrying a JSON
// envelope or a binary frame carrying the compact encoding.
type frame struct {
	binary  bool
	payload []byte
}

// Client represents an active, authenticated WebSocket connection.
type Client struct {
	// hub owns the connection lifecycle and dispatches inbound events.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// id is the opaque connection id assigned at accept time.
	id string

	// user is the authenticated identity attached during the handshake.
	user user.User

	// ctx scopes blocking downstream calls (board membership checks) to the
	// lifetime of the connection.
	ctx context.Context

	// send is the buffered queue of frames waiting to be written.
	send chan frame

	// closeOnce guards the send channel so disconnect cleanup is idempotent.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// newClient constructs a Client for an authenticated connection.
func newClient(ctx context.Context, hub *Hub, conn *websocket.Conn, identity user.User) *Client {
	connID := uuid.NewString()

	clientLogger := logx.Logger().With().
		Str("conn_id", connID).
		Str("user_id", identity.ID).
		Logger()

	return &Client{
		hub:    hub,
		conn:   conn,
		id:     connID,
		user:   identity,
		ctx:    ctx,
		send:   make(chan frame, sendQueueSize),
		logger: clientLogger,
	}
}

// ID returns the opaque connection id.
func (c *Client) ID() string {
	return c.id
}

// User returns the authenticated identity attached to the connection.
func (c *Client) User() user.User {
	return c.user
}

// ReadPump handles reading messages from the WebSocket connection.
// It handles heartbeats (Pong) and hands every inbound frame to the hub.
// Cleanup runs when the loop exits for any reason, so a transport failure and
// a voluntary close take the same teardown path.
func (c *Client) ReadPump() {
	defer c.hub.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		switch msgType {
		case websocket.TextMessage:
			c.hub.dispatchText(c, data)
		case websocket.BinaryMessage:
			c.hub.dispatchBinary(c, data)
		}
	}
}

// WritePump handles writing frames from the Client.send channel to the
// WebSocket connection and maintains the ping heartbeat.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case f, ok := <-c.send:
			if !c.writeQueuedFrame(f, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(f frame, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	msgType := websocket.TextMessage
	if f.binary {
		msgType = websocket.BinaryMessage
	}

	if err := c.conn.WriteMessage(msgType, f.payload); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue attempts to queue a frame for delivery. Delivery is at most once: a
// full queue drops the frame rather than blocking room traffic.
func (c *Client) enqueue(f frame) {
	select {
	case c.send <- f:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
	}
}

// SendEvent marshals an outbound envelope and queues it as a text frame.
func (c *Client) SendEvent(event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Msg("Error marshaling event for client")
		return
	}

	c.enqueue(frame{payload: payload})
}

// SendError sends an error envelope describing a request-scoped failure.
func (c *Client) SendError(err error) {
	code := errs.ErrUnknown
	message := "Internal server error"

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	}

	c.SendEvent(EventError, ErrorPayload{Code: code, Message: message})
}

// closeSend closes the outbound queue exactly once, which terminates WritePump.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
