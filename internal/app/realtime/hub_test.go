package realtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackly/internal/app/user"
	"stackly/internal/pkg/errs"
	"stackly/internal/pkg/wire"
)

// stubAuthorizer admits every credential of the form "token-<userID>" and
// grants board membership unless the board id appears in denied.
type stubAuthorizer struct {
	denied map[string]bool
	errOn  map[string]error
}

func (s *stubAuthorizer) VerifyCredential(_ context.Context, token string) (user.User, error) {
	if len(token) <= len("token-") {
		return user.User{}, errs.NewError(errs.ErrAuthTokenInvalid)
	}
	id := token[len("token-"):]
	return testUser(id), nil
}

func (s *stubAuthorizer) IsBoardMember(_ context.Context, boardID, _ string) (bool, error) {
	if err := s.errOn[boardID]; err != nil {
		return false, err
	}
	return !s.denied[boardID], nil
}

func newTestHub() *Hub {
	return NewHub(NewRegistry(), &stubAuthorizer{
		denied: map[string]bool{},
		errOn:  map[string]error{},
	})
}

// addClient wires a connection-less client into the hub, mirroring what
// HandleConnection does after a successful handshake.
func addClient(h *Hub, connID, userID string) *Client {
	c := &Client{
		hub:    h,
		id:     connID,
		user:   testUser(userID),
		ctx:    context.Background(),
		send:   make(chan frame, sendQueueSize),
		logger: zerolog.Nop(),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.registry.RegisterConnection(c.id, userID)

	return c
}

func sendText(h *Hub, c *Client, event string, data any) {
	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		panic(err)
	}
	h.dispatchText(c, payload)
}

func joinBoard(t *testing.T, h *Hub, c *Client, boardID string) {
	t.Helper()
	sendText(h, c, EventJoinBoard, BoardPayload{BoardID: boardID})
	env := recvEnvelope(t, c)
	require.Equal(t, EventBoardSync, env.Event)
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// recvEnvelope pops the next queued text frame and decodes its envelope.
// Dispatch is synchronous, so anything broadcast is already in the queue.
func recvEnvelope(t *testing.T, c *Client) envelope {
	t.Helper()

	select {
	case f := <-c.send:
		require.False(t, f.binary, "expected a text frame")
		var env envelope
		require.NoError(t, json.Unmarshal(f.payload, &env))
		return env
	default:
		t.Fatal("no frame queued")
		return envelope{}
	}
}

func recvBinary(t *testing.T, c *Client) *wire.Message {
	t.Helper()

	select {
	case f := <-c.send:
		require.True(t, f.binary, "expected a binary frame")
		msg, err := wire.Decode(f.payload)
		require.NoError(t, err)
		return msg
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func assertNoFrames(t *testing.T, c *Client) {
	t.Helper()
	assert.Zero(t, len(c.send), "expected an empty send queue")
}

func TestJoinBoardSyncAndAnnounce(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")

	sendText(h, alice, EventJoinBoard, BoardPayload{BoardID: "board-1"})

	env := recvEnvelope(t, alice)
	require.Equal(t, EventBoardSync, env.Event)

	var sync BoardSyncPayload
	require.NoError(t, json.Unmarshal(env.Data, &sync))
	require.Len(t, sync.Users, 1)
	assert.Equal(t, "alice", sync.Users[0].ID)
	assert.Empty(t, sync.VoiceUsers)

	// Second joiner gets the full roster; the first hears user_joined.
	sendText(h, bob, EventJoinBoard, BoardPayload{BoardID: "board-1"})

	env = recvEnvelope(t, bob)
	require.Equal(t, EventBoardSync, env.Event)
	require.NoError(t, json.Unmarshal(env.Data, &sync))
	assert.Len(t, sync.Users, 2)

	env = recvEnvelope(t, alice)
	require.Equal(t, EventUserJoined, env.Event)

	var joined UserJoinedPayload
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, "bob", joined.User.ID)
	assert.Equal(t, "nick-bob", joined.User.Nickname)
	assert.Equal(t, "board-1", joined.BoardID)

	// The joiner never hears its own announcement.
	assertNoFrames(t, bob)
}

func TestJoinBoardDenied(t *testing.T) {
	h := newTestHub()
	h.authorizer.(*stubAuthorizer).denied["secret"] = true
	alice := addClient(h, "a1", "alice")

	sendText(h, alice, EventJoinBoard, BoardPayload{BoardID: "secret"})

	env := recvEnvelope(t, alice)
	require.Equal(t, EventError, env.Event)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &errPayload))
	assert.Equal(t, errs.ErrBoardAccessDenied, errPayload.Code)

	assert.Equal(t, 0, h.registry.RoomCount())
}

func TestJoinBoardMembershipCheckError(t *testing.T) {
	h := newTestHub()
	h.authorizer.(*stubAuthorizer).errOn["board-1"] = errors.New("db down")
	alice := addClient(h, "a1", "alice")

	sendText(h, alice, EventJoinBoard, BoardPayload{BoardID: "board-1"})

	env := recvEnvelope(t, alice)
	require.Equal(t, EventError, env.Event)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &errPayload))
	assert.Equal(t, errs.ErrUnknown, errPayload.Code)
	assert.Equal(t, 0, h.registry.RoomCount())
}

func TestCursorMoveBroadcast(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice) // bob's user_joined

	sendText(h, alice, EventCursorMove, CursorMovePayload{BoardID: "board-1", X: 42, Y: 7})

	env := recvEnvelope(t, bob)
	require.Equal(t, EventCursorUpdated, env.Event)

	var upd CursorUpdatedPayload
	require.NoError(t, json.Unmarshal(env.Data, &upd))
	assert.Equal(t, "alice", upd.UserID)
	assert.Equal(t, 42.0, upd.X)
	assert.Equal(t, 7.0, upd.Y)

	// The sender does not receive its own update.
	assertNoFrames(t, alice)

	// The registry tracked the position for future board_sync payloads.
	users := h.registry.Presence("board-1")
	for _, p := range users {
		if p.ID == "alice" {
			require.NotNil(t, p.Cursor)
			assert.Equal(t, 42.0, p.Cursor.X)
		}
	}
}

func TestDragStartDefaultsItemType(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	sendText(h, alice, EventDragStart, map[string]any{
		"boardId":  "board-1",
		"itemType": "widget",
		"itemId":   "card-9",
	})

	env := recvEnvelope(t, bob)
	require.Equal(t, EventDragStarted, env.Event)

	var started DragStartedPayload
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.Equal(t, ItemTypeCard, started.ItemType)
	assert.Equal(t, "card-9", started.ItemID)

	sendText(h, alice, EventDragEnd, BoardPayload{BoardID: "board-1"})

	env = recvEnvelope(t, bob)
	assert.Equal(t, EventDragEnded, env.Event)
}

func TestDisconnectBroadcastsUserLeft(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	h.disconnect(alice)

	env := recvEnvelope(t, bob)
	require.Equal(t, EventUserLeft, env.Event)

	var left UserLeftPayload
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, "alice", left.UserID)
	assert.Equal(t, "board-1", left.BoardID)

	// A duplicate teardown is harmless and broadcasts nothing.
	h.disconnect(alice)
	assertNoFrames(t, bob)
}

func TestDisconnectMultiTabKeepsPresence(t *testing.T) {
	h := newTestHub()
	tab1 := addClient(h, "a1", "alice")
	tab2 := addClient(h, "a2", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, tab1, "board-1")
	joinBoard(t, h, tab2, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, tab1) // bob's user_joined
	recvEnvelope(t, tab2)

	// Closing one of alice's tabs must not announce a departure.
	h.disconnect(tab1)
	assertNoFrames(t, bob)
	require.Len(t, h.registry.Presence("board-1"), 2)

	// Closing the last one does.
	h.disconnect(tab2)
	env := recvEnvelope(t, bob)
	assert.Equal(t, EventUserLeft, env.Event)
}

func TestRelayStampsUserID(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	sendText(h, alice, EventCardMove, map[string]any{
		"boardId":        "board-1",
		"cardId":         "card-1",
		"targetColumnId": "col-2",
		"position":       3,
	})

	env := recvEnvelope(t, bob)
	require.Equal(t, EventCardMoved, env.Event)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alice", payload["userId"])
	assert.Equal(t, "card-1", payload["cardId"])

	assertNoFrames(t, alice)

	// A relay without a board id is dropped.
	sendText(h, alice, EventCardUpdate, map[string]any{"cardId": "card-1"})
	assertNoFrames(t, bob)
}

func TestVoiceJoinRequiresPresence(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")

	sendText(h, alice, EventVoiceJoin, BoardPayload{BoardID: "board-1"})

	env := recvEnvelope(t, alice)
	require.Equal(t, EventError, env.Event)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &errPayload))
	assert.Equal(t, errs.ErrBoardNotJoined, errPayload.Code)
}

func TestVoiceJoinFlow(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	sendText(h, alice, EventVoiceJoin, BoardPayload{BoardID: "board-1"})

	// The first joiner finds an empty participant list.
	env := recvEnvelope(t, alice)
	require.Equal(t, EventVoiceUsers, env.Event)

	var voiceUsers VoiceUsersPayload
	require.NoError(t, json.Unmarshal(env.Data, &voiceUsers))
	assert.Empty(t, voiceUsers.UserIDs)

	env = recvEnvelope(t, bob)
	require.Equal(t, EventVoiceUserJoined, env.Event)

	var vJoined VoiceUserJoinedPayload
	require.NoError(t, json.Unmarshal(env.Data, &vJoined))
	assert.Equal(t, "alice", vJoined.UserID)
	assert.Equal(t, "nick-alice", vJoined.Nickname)

	// The second joiner learns who to initiate signaling with.
	sendText(h, bob, EventVoiceJoin, BoardPayload{BoardID: "board-1"})

	env = recvEnvelope(t, bob)
	require.Equal(t, EventVoiceUsers, env.Event)
	require.NoError(t, json.Unmarshal(env.Data, &voiceUsers))
	assert.Equal(t, []string{"alice"}, voiceUsers.UserIDs)

	env = recvEnvelope(t, alice)
	assert.Equal(t, EventVoiceUserJoined, env.Event)

	// Leaving voice announces to the rest of the room.
	sendText(h, alice, EventVoiceLeave, BoardPayload{BoardID: "board-1"})

	env = recvEnvelope(t, bob)
	require.Equal(t, EventVoiceUserLeft, env.Event)

	var vLeft VoiceUserLeftPayload
	require.NoError(t, json.Unmarshal(env.Data, &vLeft))
	assert.Equal(t, "alice", vLeft.UserID)

	// Leaving twice is a no-op.
	sendText(h, alice, EventVoiceLeave, BoardPayload{BoardID: "board-1"})
	assertNoFrames(t, bob)
}

func TestVoiceSignalTargetsOnlyPeerConnections(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bobTab1 := addClient(h, "b1", "bob")
	bobTab2 := addClient(h, "b2", "bob")
	carol := addClient(h, "c1", "carol")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bobTab1, "board-1")
	recvEnvelope(t, alice)
	joinBoard(t, h, bobTab2, "board-1")
	recvEnvelope(t, alice)
	recvEnvelope(t, bobTab1)
	joinBoard(t, h, carol, "board-1")
	recvEnvelope(t, alice)
	recvEnvelope(t, bobTab1)
	recvEnvelope(t, bobTab2)

	sendText(h, alice, EventVoiceOffer, map[string]any{
		"boardId":      "board-1",
		"targetUserId": "bob",
		"offer":        map[string]any{"type": "offer", "sdp": "v=0"},
	})

	// Every one of bob's connections in the board gets the relay.
	for _, tab := range []*Client{bobTab1, bobTab2} {
		env := recvEnvelope(t, tab)
		require.Equal(t, EventVoiceOffer, env.Event)

		var relay VoiceSignalRelayPayload
		require.NoError(t, json.Unmarshal(env.Data, &relay))
		assert.Equal(t, "alice", relay.FromUserID)
		assert.NotNil(t, relay.Offer)
		assert.Nil(t, relay.Answer)
	}

	// Nobody else hears a directed signal.
	assertNoFrames(t, carol)
	assertNoFrames(t, alice)

	// Signaling toward a user outside the board goes nowhere.
	sendText(h, alice, EventVoiceIceCandidate, map[string]any{
		"boardId":      "board-1",
		"targetUserId": "mallory",
		"candidate":    map[string]any{"candidate": "candidate:1"},
	})
	assertNoFrames(t, carol)
}

func TestAudioLevelBroadcast(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	sendText(h, alice, EventVoiceAudioLevel, AudioLevelPayload{BoardID: "board-1", Level: 0.7})

	env := recvEnvelope(t, bob)
	require.Equal(t, EventVoiceAudioLevel, env.Event)

	var level AudioLevelBroadcastPayload
	require.NoError(t, json.Unmarshal(env.Data, &level))
	assert.Equal(t, "alice", level.UserID)
	assert.Equal(t, 0.7, level.Level)
}

func TestBinaryCursorMove(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	payload, err := wire.Encode(&wire.Message{CursorMove: &wire.CursorMove{
		BoardID: "board-1",
		X:       12.5,
		Y:       99,
	}})
	require.NoError(t, err)

	h.dispatchBinary(alice, payload)

	msg := recvBinary(t, bob)
	require.NotNil(t, msg.CursorUpdate)
	assert.Equal(t, "alice", msg.CursorUpdate.UserID)
	assert.Equal(t, "board-1", msg.CursorUpdate.BoardID)
	assert.Equal(t, 12.5, msg.CursorUpdate.X)
	assert.Equal(t, 99.0, msg.CursorUpdate.Y)

	assertNoFrames(t, alice)
}

func TestBinaryCardMoveRelay(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	payload, err := wire.Encode(&wire.Message{CardMove: &wire.CardMove{
		BoardID:        "board-1",
		CardID:         "card-1",
		SourceColumnID: "col-1",
		TargetColumnID: "col-2",
		Position:       2,
	}})
	require.NoError(t, err)

	h.dispatchBinary(alice, payload)

	msg := recvBinary(t, bob)
	require.NotNil(t, msg.CardMoved)
	assert.Equal(t, "alice", msg.CardMoved.UserID)
	assert.Equal(t, "col-2", msg.CardMoved.TargetColumnID)
	assert.Equal(t, 2.0, msg.CardMoved.Position)
}

func TestMalformedInputDropped(t *testing.T) {
	h := newTestHub()
	alice := addClient(h, "a1", "alice")
	bob := addClient(h, "b1", "bob")
	joinBoard(t, h, alice, "board-1")
	joinBoard(t, h, bob, "board-1")
	recvEnvelope(t, alice)

	h.dispatchText(alice, []byte("{not json"))
	h.dispatchText(alice, []byte(`{"event":"teleport","data":{}}`))
	sendText(h, alice, EventCursorMove, map[string]any{"x": 1, "y": 2})
	h.dispatchBinary(alice, []byte{0xff, 0xff, 0xff})
	h.dispatchBinary(alice, nil)

	assertNoFrames(t, alice)
	assertNoFrames(t, bob)
}

func TestShutdownClosesAllClients(t *testing.T) {
	h := newTestHub()
	for i := 0; i < 3; i++ {
		addClient(h, fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i))
	}

	h.Shutdown()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		_, open := <-c.send
		assert.False(t, open, "send queue should be closed")
	}
}
