/*
Package realtime contains the real-time collaboration coordinator.

This file defines the Registry: the single owner of the room and connection
maps. Every mutation of shared presence state goes through its methods; the
hub never touches a room directly. The registry performs no I/O and returns
plain data for the caller to broadcast.
*/
package realtime

import (
	"sync"

	"stackly/internal/app/user"
)

// Departure describes the effect of removing a connection from one board.
type Departure struct {
	// BoardID is the board the connection had joined.
	BoardID string

	// UserLeft is true when this was the user's last connection to the board,
	// meaning the presence record was removed and a user_left broadcast is due.
	UserLeft bool
}

// connState tracks one live transport connection: who authenticated it and
// which board rooms it has joined.
type connState struct {
	userID string
	boards map[string]struct{}
}

// Registry is the in-memory store of board rooms and live connections. It is
// constructed once per process and shared by reference; there are no package
// level singletons, so tests build their own.
type Registry struct {
	// mu guards the rooms and conns maps themselves. Room contents are guarded
	// by each room's own mutex, so traffic on different boards does not contend.
	mu sync.RWMutex

	rooms map[string]*room
	conns map[string]*connState
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[string]*connState),
	}
}

// RegisterConnection records a newly authenticated connection.
func (r *Registry) RegisterConnection(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = &connState{
		userID: userID,
		boards: make(map[string]struct{}),
	}
}

// UnregisterConnection removes a connection and detaches it from every board
// it had joined, in one step. It returns the user id and one Departure per
// board so the caller can emit user_left broadcasts where due. Calling it for
// an unknown connection id is a no-op with ok=false, which makes disconnect
// cleanup idempotent.
func (r *Registry) UnregisterConnection(connID string) (string, []Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return "", nil, false
	}
	delete(r.conns, connID)

	departures := make([]Departure, 0, len(conn.boards))
	for boardID := range conn.boards {
		userGone := r.detachLocked(connID, conn.userID, boardID)
		departures = append(departures, Departure{BoardID: boardID, UserLeft: userGone})
	}

	return conn.userID, departures, true
}

// JoinBoard admits a connection into a board room, creating the room lazily on
// first join. It returns the full presence snapshot after the join (including
// the joiner) and whether the join was applied. A connection id that was never
// registered is rejected.
func (r *Registry) JoinBoard(connID, boardID string, identity user.User) ([]Presence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	conn.boards[boardID] = struct{}{}

	rm, ok := r.rooms[boardID]
	if !ok {
		rm = newRoom()
		r.rooms[boardID] = rm
	}

	return rm.addConn(connID, identity), true
}

// LeaveBoard removes a connection from a board room. It returns the user id
// and whether the user's presence record was removed (last connection gone),
// which is the signal to broadcast user_left.
func (r *Registry) LeaveBoard(connID, boardID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return "", false
	}

	if _, joined := conn.boards[boardID]; !joined {
		return conn.userID, false
	}
	delete(conn.boards, boardID)

	userGone := r.detachLocked(connID, conn.userID, boardID)
	return conn.userID, userGone
}

// detachLocked removes one connection of one user from a room and garbage
// collects the room if its presence map emptied. Caller holds r.mu for write.
func (r *Registry) detachLocked(connID, userID, boardID string) bool {
	rm, ok := r.rooms[boardID]
	if !ok {
		return false
	}

	userGone, roomEmpty := rm.removeConn(connID, userID)
	if roomEmpty {
		delete(r.rooms, boardID)
	}
	return userGone
}

// Presence returns a copy of every presence record in the board's room.
func (r *Registry) Presence(boardID string) []Presence {
	rm := r.room(boardID)
	if rm == nil {
		return []Presence{}
	}
	return rm.snapshot()
}

// VoiceUsers returns the ids of users currently in voice chat on the board.
func (r *Registry) VoiceUsers(boardID string) []string {
	rm := r.room(boardID)
	if rm == nil {
		return []string{}
	}
	return rm.voiceUsers()
}

// UpdateCursor stores the user's latest cursor position on the board.
func (r *Registry) UpdateCursor(boardID, userID string, x, y float64) bool {
	rm := r.room(boardID)
	if rm == nil {
		return false
	}
	return rm.updateCursor(userID, x, y)
}

// SetDragState records whether the user is dragging an item on the board.
func (r *Registry) SetDragState(boardID, userID string, dragging bool, item *DragItem) bool {
	rm := r.room(boardID)
	if rm == nil {
		return false
	}
	return rm.setDragState(userID, dragging, item)
}

// JoinVoice adds a present user to the board's voice set and returns the user
// ids that were already in voice, so the joiner knows whom to signal.
func (r *Registry) JoinVoice(boardID, userID string) ([]string, bool) {
	rm := r.room(boardID)
	if rm == nil {
		return nil, false
	}
	return rm.joinVoice(userID)
}

// LeaveVoice removes the user from the board's voice set.
func (r *Registry) LeaveVoice(boardID, userID string) bool {
	rm := r.room(boardID)
	if rm == nil {
		return false
	}
	return rm.leaveVoice(userID)
}

// SocketIDs returns every connection id the given user has joined to the
// board. Used to relay signaling payloads to all of a peer's open tabs.
func (r *Registry) SocketIDs(boardID, userID string) []string {
	rm := r.room(boardID)
	if rm == nil {
		return nil
	}
	return rm.socketIDs(userID)
}

// ConnIDs returns every connection id joined to the board.
func (r *Registry) ConnIDs(boardID string) []string {
	rm := r.room(boardID)
	if rm == nil {
		return nil
	}
	return rm.connIDs()
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) room(boardID string) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[boardID]
}
