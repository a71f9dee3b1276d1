/*
Package realtime contains the real-time collaboration coordinator.

This file defines the Hub: the network-facing gateway. It runs the
authentication handshake for every new connection, decodes inbound messages
(verbose JSON on text frames, compact binary on binary frames), applies state
transitions through the Registry, and fans results out to board rooms or to
specific peer connections for voice signaling.
*/
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"stackly/internal/app/auth"
	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/logx"
	"stackly/internal/pkg/wire"
)

// Hub coordinates every live connection. It is the only writer to the
// Registry and the only component that touches client send queues.
type Hub struct {
	registry   *Registry
	authorizer auth.Authorizer

	// mu protects the clients map.
	mu      sync.RWMutex
	clients map[string]*Client

	logger zerolog.Logger
}

// NewHub constructs a Hub around the given registry and authorizer.
func NewHub(registry *Registry, authorizer auth.Authorizer) *Hub {
	hubLogger := logx.Logger().With().Str("component", "Hub").Logger()

	return &Hub{
		registry:   registry,
		authorizer: authorizer,
		clients:    make(map[string]*Client),
		logger:     hubLogger,
	}
}

// HandleConnection authenticates an upgraded WebSocket connection and, on
// success, registers it and runs its read loop until disconnect. The raw
// credential comes from the connection handshake; an empty token fails
// authentication. Authentication is the only message exchange permitted
// before the connection may issue room operations.
func (h *Hub) HandleConnection(ctx context.Context, conn *websocket.Conn, token string) {
	identity, err := h.authorizer.VerifyCredential(ctx, token)
	if err != nil {
		h.rejectConnection(conn, err)
		return
	}

	client := newClient(ctx, h, conn, identity)

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.registry.RegisterConnection(client.id, identity.ID)

	h.logger.Info().
		Str("conn_id", client.id).
		Str("user_id", identity.ID).
		Str("nickname", identity.Nickname).
		Msg("Client connected.")

	go client.WritePump()
	client.ReadPump()
}

// rejectConnection notifies a peer that authentication failed and terminates
// the connection. Failed handshakes get no retry; the client must reconnect.
func (h *Hub) rejectConnection(conn *websocket.Conn, authErr error) {
	h.logger.Warn().Err(authErr).Msg("Client authentication failed.")

	code := errs.ErrAuthTokenInvalid
	message := "Authentication failed"
	var customErr *errs.CustomError
	if errors.As(authErr, &customErr) {
		code = customErr.Code
		message = customErr.Message
	}

	payload, err := json.Marshal(Envelope{
		Event: EventError,
		Data:  ErrorPayload{Code: code, Message: message},
	})
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, payload)
	}

	closeMessage := websocket.FormatCloseMessage(WsCloseCodeAuthFailed, "Authentication failed")
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, closeMessage)

	conn.Close()
}

// disconnect tears down a connection's registry entries and broadcasts
// user_left for every board where this was the user's last live connection.
// It is idempotent: a second call for the same connection is a no-op.
func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()

	userID, departures, ok := h.registry.UnregisterConnection(c.id)
	if ok {
		for _, dep := range departures {
			if dep.UserLeft {
				h.broadcast(dep.BoardID, c.id, EventUserLeft, UserLeftPayload{
					UserID:  userID,
					BoardID: dep.BoardID,
				})
			}
		}
	}

	c.closeSend()

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	}

	h.logger.Info().Str("conn_id", c.id).Msg("Client disconnected.")
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
		if c.conn != nil {
			c.conn.Close()
		}
	}

	h.logger.Info().Int("closed", len(clients)).Msg("Hub shutdown complete.")
}

// ============ Inbound dispatch ============

// dispatchText routes one verbose JSON message. Undecodable messages and
// payloads missing their board id are dropped and logged; the connection
// stays open.
func (h *Hub) dispatchText(c *Client, data []byte) {
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	if c.user.ID == "" {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	switch env.Event {
	case EventJoinBoard:
		h.handleJoinBoard(c, env.Data)
	case EventLeaveBoard:
		h.handleLeaveBoard(c, env.Data)
	case EventCursorMove:
		h.handleCursorMove(c, env.Data)
	case EventDragStart:
		h.handleDragStart(c, env.Data)
	case EventDragEnd:
		h.handleDragEnd(c, env.Data)
	case EventColumnReorder:
		h.handleColumnReorder(c, env.Data)
	case EventVoiceJoin:
		h.handleVoiceJoin(c, env.Data)
	case EventVoiceLeave:
		h.handleVoiceLeave(c, env.Data)
	case EventVoiceOffer, EventVoiceAnswer, EventVoiceIceCandidate:
		h.handleVoiceSignal(c, env.Event, env.Data)
	case EventVoiceAudioLevel:
		h.handleAudioLevel(c, env.Data)
	default:
		if outEvent, ok := relayEvents[env.Event]; ok {
			h.handleRelay(c, outEvent, env.Data)
			return
		}
		c.logger.Warn().Str("event", env.Event).Msg("Client sent unsupported event")
	}
}

// ============ Room management ============

func (h *Hub) handleJoinBoard(c *Client, raw json.RawMessage) {
	var payload BoardPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		c.logger.Warn().Msg("Client sent invalid join_board payload")
		return
	}

	// Membership is checked once per join; the session trusts it afterwards.
	member, err := h.authorizer.IsBoardMember(c.ctx, payload.BoardID, c.user.ID)
	if err != nil {
		c.logger.Error().Err(err).Str("board_id", payload.BoardID).Msg("Board membership check failed")
		c.SendError(errs.NewError(errs.ErrUnknown))
		return
	}
	if !member {
		c.logger.Warn().Str("board_id", payload.BoardID).Msg("Board access denied")
		c.SendError(errs.NewError(errs.ErrBoardAccessDenied))
		return
	}

	users, ok := h.registry.JoinBoard(c.id, payload.BoardID, c.user)
	if !ok {
		return
	}
	voiceUsers := h.registry.VoiceUsers(payload.BoardID)

	c.SendEvent(EventBoardSync, BoardSyncPayload{Users: users, VoiceUsers: voiceUsers})

	h.broadcast(payload.BoardID, c.id, EventUserJoined, UserJoinedPayload{
		User:    Presence{User: c.user},
		BoardID: payload.BoardID,
	})

	c.logger.Info().Str("board_id", payload.BoardID).Msg("User joined board.")
}

func (h *Hub) handleLeaveBoard(c *Client, raw json.RawMessage) {
	var payload BoardPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		c.logger.Warn().Msg("Client sent invalid leave_board payload")
		return
	}

	userID, userLeft := h.registry.LeaveBoard(c.id, payload.BoardID)
	if userLeft {
		h.broadcast(payload.BoardID, c.id, EventUserLeft, UserLeftPayload{
			UserID:  userID,
			BoardID: payload.BoardID,
		})
	}

	c.logger.Info().Str("board_id", payload.BoardID).Msg("User left board.")
}

// ============ Presence events ============

func (h *Hub) handleCursorMove(c *Client, raw json.RawMessage) {
	var payload CursorMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}

	h.registry.UpdateCursor(payload.BoardID, c.user.ID, payload.X, payload.Y)

	h.broadcast(payload.BoardID, c.id, EventCursorUpdated, CursorUpdatedPayload{
		UserID:  c.user.ID,
		BoardID: payload.BoardID,
		X:       payload.X,
		Y:       payload.Y,
	})
}

func (h *Hub) handleDragStart(c *Client, raw json.RawMessage) {
	var payload DragStartPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}
	if !ValidItemType(payload.ItemType) {
		payload.ItemType = ItemTypeCard
	}

	h.registry.SetDragState(payload.BoardID, c.user.ID, true, &DragItem{
		Type: payload.ItemType,
		ID:   payload.ItemID,
	})

	h.broadcast(payload.BoardID, c.id, EventDragStarted, DragStartedPayload{
		UserID:   c.user.ID,
		BoardID:  payload.BoardID,
		ItemType: payload.ItemType,
		ItemID:   payload.ItemID,
	})
}

func (h *Hub) handleDragEnd(c *Client, raw json.RawMessage) {
	var payload BoardPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}

	h.registry.SetDragState(payload.BoardID, c.user.ID, false, nil)

	h.broadcast(payload.BoardID, c.id, EventDragEnded, DragEndedPayload{
		UserID:  c.user.ID,
		BoardID: payload.BoardID,
	})
}

// ============ Relay events ============

// handleRelay rebroadcasts an entity event without validating or persisting
// its contents. The sender's user id is stamped on; the CRUD API is the
// source of truth and persists independently.
func (h *Hub) handleRelay(c *Client, outEvent string, raw json.RawMessage) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Str("event", outEvent).Msg("Client sent invalid relay payload")
		return
	}

	boardID, _ := payload["boardId"].(string)
	if boardID == "" {
		return
	}

	payload["userId"] = c.user.ID
	h.broadcast(boardID, c.id, outEvent, payload)
}

func (h *Hub) handleColumnReorder(c *Client, raw json.RawMessage) {
	var payload ColumnReorderPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}

	h.broadcast(payload.BoardID, c.id, EventColumnsReordered, map[string]any{
		"boardId":   payload.BoardID,
		"columnIds": payload.ColumnIDs,
		"userId":    c.user.ID,
	})
}

// ============ Voice chat events ============

func (h *Hub) handleVoiceJoin(c *Client, raw json.RawMessage) {
	var payload BoardPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}

	existing, ok := h.registry.JoinVoice(payload.BoardID, c.user.ID)
	if !ok {
		c.SendError(errs.NewError(errs.ErrBoardNotJoined))
		return
	}

	h.broadcast(payload.BoardID, c.id, EventVoiceUserJoined, VoiceUserJoinedPayload{
		UserID:   c.user.ID,
		Nickname: c.user.Nickname,
		BoardID:  payload.BoardID,
	})

	c.SendEvent(EventVoiceUsers, VoiceUsersPayload{
		BoardID: payload.BoardID,
		UserIDs: existing,
	})

	c.logger.Info().Str("board_id", payload.BoardID).Msg("User joined voice.")
}

func (h *Hub) handleVoiceLeave(c *Client, raw json.RawMessage) {
	var payload BoardPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}

	if !h.registry.LeaveVoice(payload.BoardID, c.user.ID) {
		return
	}

	h.broadcast(payload.BoardID, c.id, EventVoiceUserLeft, VoiceUserLeftPayload{
		UserID:  c.user.ID,
		BoardID: payload.BoardID,
	})

	c.logger.Info().Str("board_id", payload.BoardID).Msg("User left voice.")
}

// handleVoiceSignal relays an offer, answer, or ICE candidate directly to the
// target user's connections within the board, never to the whole room. A peer
// with several open tabs receives the relay on each; its signaling layer
// de-duplicates.
func (h *Hub) handleVoiceSignal(c *Client, event string, raw json.RawMessage) {
	var payload SignalPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" || payload.TargetUserID == "" {
		c.logger.Warn().Str("event", event).Msg("Client sent invalid signaling payload")
		return
	}

	relay := VoiceSignalRelayPayload{
		FromUserID: c.user.ID,
		BoardID:    payload.BoardID,
		Offer:      payload.Offer,
		Answer:     payload.Answer,
		Candidate:  payload.Candidate,
	}

	targets := h.registry.SocketIDs(payload.BoardID, payload.TargetUserID)
	for _, connID := range targets {
		if target := h.client(connID); target != nil {
			target.SendEvent(event, relay)
		}
	}
}

func (h *Hub) handleAudioLevel(c *Client, raw json.RawMessage) {
	var payload AudioLevelPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.BoardID == "" {
		return
	}

	h.broadcast(payload.BoardID, c.id, EventVoiceAudioLevel, AudioLevelBroadcastPayload{
		UserID: c.user.ID,
		Level:  payload.Level,
	})
}

// ============ Binary dispatch ============

// dispatchBinary routes one compact binary message. The frame opcode selected
// this codec; the union tag selects the handler. A decode failure or a
// variant missing its board id is a silent drop.
func (h *Hub) dispatchBinary(c *Client, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent undecodable binary message")
		return
	}

	switch {
	case msg.CursorMove != nil:
		v := msg.CursorMove
		if v.BoardID == "" {
			return
		}

		h.registry.UpdateCursor(v.BoardID, c.user.ID, v.X, v.Y)

		h.broadcastBinary(v.BoardID, c.id, &wire.Message{CursorUpdate: &wire.CursorUpdate{
			UserID:  c.user.ID,
			BoardID: v.BoardID,
			X:       v.X,
			Y:       v.Y,
		}})

	case msg.DragStart != nil:
		v := msg.DragStart
		if v.BoardID == "" {
			return
		}

		itemType := v.ItemType
		if !ValidItemType(itemType) {
			itemType = ItemTypeCard
		}

		h.registry.SetDragState(v.BoardID, c.user.ID, true, &DragItem{Type: itemType, ID: v.ItemID})

		h.broadcastBinary(v.BoardID, c.id, &wire.Message{DragStarted: &wire.DragStarted{
			UserID:   c.user.ID,
			BoardID:  v.BoardID,
			ItemType: itemType,
			ItemID:   v.ItemID,
		}})

	case msg.DragEnd != nil:
		v := msg.DragEnd
		if v.BoardID == "" {
			return
		}

		h.registry.SetDragState(v.BoardID, c.user.ID, false, nil)

		h.broadcastBinary(v.BoardID, c.id, &wire.Message{DragEnded: &wire.DragEnded{
			UserID:  c.user.ID,
			BoardID: v.BoardID,
		}})

	case msg.CardMove != nil:
		v := msg.CardMove
		if v.BoardID == "" {
			return
		}

		h.broadcastBinary(v.BoardID, c.id, &wire.Message{CardMoved: &wire.CardMoved{
			BoardID:        v.BoardID,
			CardID:         v.CardID,
			SourceColumnID: v.SourceColumnID,
			TargetColumnID: v.TargetColumnID,
			Position:       v.Position,
			UserID:         c.user.ID,
		}})

	case msg.ColumnReorder != nil:
		v := msg.ColumnReorder
		if v.BoardID == "" {
			return
		}

		h.broadcastBinary(v.BoardID, c.id, &wire.Message{ColumnsReordered: &wire.ColumnsReordered{
			BoardID:   v.BoardID,
			ColumnIDs: v.ColumnIDs,
			UserID:    c.user.ID,
		}})

	case msg.AudioLevel != nil:
		v := msg.AudioLevel
		if v.BoardID == "" {
			return
		}

		h.broadcastBinary(v.BoardID, c.id, &wire.Message{AudioLevelUpdate: &wire.AudioLevelUpdate{
			UserID: c.user.ID,
			Level:  v.Level,
		}})

	default:
		c.logger.Warn().Msg("Client sent binary message with unsupported variant")
	}
}

// ============ Fan-out ============

// broadcast marshals one envelope and queues it to every connection in the
// board's room except excludeConnID. Delivery is at most once; a slow
// consumer's frame is dropped, never retried.
func (h *Hub) broadcast(boardID, excludeConnID, event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Error marshaling broadcast")
		return
	}

	h.fanOut(boardID, excludeConnID, frame{payload: payload})
}

// broadcastBinary encodes one compact message and queues it to every
// connection in the board's room except excludeConnID.
func (h *Hub) broadcastBinary(boardID, excludeConnID string, msg *wire.Message) {
	payload, err := wire.Encode(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error encoding binary broadcast")
		return
	}

	h.fanOut(boardID, excludeConnID, frame{binary: true, payload: payload})
}

func (h *Hub) fanOut(boardID, excludeConnID string, f frame) {
	for _, connID := range h.registry.ConnIDs(boardID) {
		if connID == excludeConnID {
			continue
		}
		if target := h.client(connID); target != nil {
			target.enqueue(f)
		}
	}
}

func (h *Hub) client(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}
