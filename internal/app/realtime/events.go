/*
Package realtime contains the real-time collaboration coordinator.

This file defines the verbose wire form: event names and the JSON payload
shapes exchanged over text frames. Binary frames carry the same logical events
in the compact encoding from internal/pkg/wire.
*/
package realtime

// Inbound event names (client to server).
const (
	EventJoinBoard  = "join_board"
	EventLeaveBoard = "leave_board"

	EventCardMove    = "card_move"
	EventCardUpdate  = "card_update"
	EventCardCreate  = "card_create"
	EventCardDelete  = "card_delete"
	EventCardReorder = "card_reorder"

	EventColumnCreate  = "column_create"
	EventColumnUpdate  = "column_update"
	EventColumnDelete  = "column_delete"
	EventColumnReorder = "column_reorder"

	EventCursorMove = "cursor_move"
	EventDragStart  = "drag_start"
	EventDragEnd    = "drag_end"

	EventVoiceJoin         = "voice_join"
	EventVoiceLeave        = "voice_leave"
	EventVoiceOffer        = "voice_offer"
	EventVoiceAnswer       = "voice_answer"
	EventVoiceIceCandidate = "voice_ice_candidate"
	EventVoiceAudioLevel   = "voice_audio_level"
)

// Outbound event names (server to client).
const (
	EventBoardSync  = "board_sync"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"

	EventCardMoved      = "card_moved"
	EventCardUpdated    = "card_updated"
	EventCardCreated    = "card_created"
	EventCardDeleted    = "card_deleted"
	EventCardsReordered = "cards_reordered"

	EventColumnCreated    = "column_created"
	EventColumnUpdated    = "column_updated"
	EventColumnDeleted    = "column_deleted"
	EventColumnsReordered = "columns_reordered"

	EventCursorUpdated = "cursor_updated"
	EventDragStarted   = "drag_started"
	EventDragEnded     = "drag_ended"

	EventVoiceUserJoined = "voice_user_joined"
	EventVoiceUserLeft   = "voice_user_left"
	EventVoiceUsers      = "voice_users"

	EventError = "error"
)

// relayEvents maps each pure-relay inbound event to the outbound event it is
// rebroadcast as. The hub stamps the sender's user id on the payload and does
// not interpret the rest; persistence happens through the CRUD API separately.
var relayEvents = map[string]string{
	EventCardMove:     EventCardMoved,
	EventCardUpdate:   EventCardUpdated,
	EventCardCreate:   EventCardCreated,
	EventCardDelete:   EventCardDeleted,
	EventCardReorder:  EventCardsReordered,
	EventColumnCreate: EventColumnCreated,
	EventColumnUpdate: EventColumnUpdated,
	EventColumnDelete: EventColumnDeleted,
}

// Envelope is the outbound JSON message container.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// BoardPayload carries events whose only field is the board id
// (join_board, leave_board, drag_end, voice_join, voice_leave).
type BoardPayload struct {
	BoardID string `json:"boardId"`
}

// CursorMovePayload is the verbose form of a cursor position update.
type CursorMovePayload struct {
	BoardID string  `json:"boardId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// DragStartPayload announces the start of a card or column drag.
type DragStartPayload struct {
	BoardID  string `json:"boardId"`
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
}

// ColumnReorderPayload carries a full column ordering for a board.
type ColumnReorderPayload struct {
	BoardID   string   `json:"boardId"`
	ColumnIDs []string `json:"columnIds"`
}

// SignalPayload carries WebRTC signaling toward a specific peer. Exactly one
// of Offer, Answer, or Candidate is set, matching the event name. The
// coordinator never interprets the session description or candidate contents.
type SignalPayload struct {
	BoardID      string `json:"boardId"`
	TargetUserID string `json:"targetUserId"`
	Offer        any    `json:"offer,omitempty"`
	Answer       any    `json:"answer,omitempty"`
	Candidate    any    `json:"candidate,omitempty"`
}

// AudioLevelPayload carries a voice participant's microphone level in [0,1].
type AudioLevelPayload struct {
	BoardID string  `json:"boardId"`
	Level   float64 `json:"level"`
}

// BoardSyncPayload is sent once to a joining connection with the room's
// current state.
type BoardSyncPayload struct {
	Users      []Presence `json:"users"`
	VoiceUsers []string   `json:"voiceUsers"`
}

// UserJoinedPayload is broadcast to a room when a user joins.
type UserJoinedPayload struct {
	User    Presence `json:"user"`
	BoardID string   `json:"boardId"`
}

// UserLeftPayload is broadcast to a room when a user's last connection leaves.
type UserLeftPayload struct {
	UserID  string `json:"userId"`
	BoardID string `json:"boardId"`
}

// CursorUpdatedPayload is broadcast after a cursor_move.
type CursorUpdatedPayload struct {
	UserID  string  `json:"userId"`
	BoardID string  `json:"boardId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// DragStartedPayload is broadcast after a drag_start.
type DragStartedPayload struct {
	UserID   string `json:"userId"`
	BoardID  string `json:"boardId"`
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
}

// DragEndedPayload is broadcast after a drag_end.
type DragEndedPayload struct {
	UserID  string `json:"userId"`
	BoardID string `json:"boardId"`
}

// VoiceUserJoinedPayload is broadcast when a user joins voice chat.
type VoiceUserJoinedPayload struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	BoardID  string `json:"boardId"`
}

// VoiceUserLeftPayload is broadcast when a user leaves voice chat.
type VoiceUserLeftPayload struct {
	UserID  string `json:"userId"`
	BoardID string `json:"boardId"`
}

// VoiceUsersPayload is sent once to a voice joiner with the participants that
// were already in voice, so it knows whom to initiate signaling with.
type VoiceUsersPayload struct {
	BoardID string   `json:"boardId"`
	UserIDs []string `json:"userIds"`
}

// VoiceSignalRelayPayload is the relayed form of an offer, answer, or ICE
// candidate, tagged with the sender's id.
type VoiceSignalRelayPayload struct {
	FromUserID string `json:"fromUserId"`
	BoardID    string `json:"boardId"`
	Offer      any    `json:"offer,omitempty"`
	Answer     any    `json:"answer,omitempty"`
	Candidate  any    `json:"candidate,omitempty"`
}

// AudioLevelBroadcastPayload is broadcast after a voice_audio_level.
type AudioLevelBroadcastPayload struct {
	UserID string  `json:"userId"`
	Level  float64 `json:"level"`
}

// ErrorPayload reports a request-scoped failure to the client.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
