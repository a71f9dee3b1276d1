/*
Package realtime contains the real-time collaboration coordinator.

This file defines the room structure: the per-board unit of shared state and of
mutual exclusion. A room holds one Presence record per present user, the set of
connection ids backing each user's presence, and the subset of users currently
in voice chat.
*/
package realtime

import (
	"sync"

	"stackly/internal/app/user"
)

// room is the per-board shared state. Every mutation happens under mu, so
// operations on the same board serialize while different boards proceed
// concurrently.
type room struct {
	mu sync.Mutex

	// users maps user id to that user's single Presence record.
	users map[string]*Presence

	// conns maps user id to the set of connection ids that have joined this
	// board. A presence record lives exactly as long as this set is non-empty.
	conns map[string]map[string]struct{}

	// voice is the set of user ids currently in voice chat. Always a subset of
	// the keys of users.
	voice map[string]struct{}
}

func newRoom() *room {
	return &room{
		users: make(map[string]*Presence),
		conns: make(map[string]map[string]struct{}),
		voice: make(map[string]struct{}),
	}
}

// addConn records a connection for the given identity and returns a snapshot
// of everyone present after the join.
func (rm *room) addConn(connID string, identity user.User) []Presence {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	set, ok := rm.conns[identity.ID]
	if !ok {
		set = make(map[string]struct{})
		rm.conns[identity.ID] = set
	}
	set[connID] = struct{}{}

	if _, ok := rm.users[identity.ID]; !ok {
		rm.users[identity.ID] = &Presence{User: identity}
	}

	return rm.snapshotLocked()
}

// removeConn drops a connection of the given user from the room. It returns
// whether the user's presence record was removed (this was their last
// connection) and whether the room itself is now empty.
func (rm *room) removeConn(connID, userID string) (userGone, roomEmpty bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	set, ok := rm.conns[userID]
	if !ok {
		return false, len(rm.users) == 0
	}

	delete(set, connID)
	if len(set) > 0 {
		return false, false
	}

	delete(rm.conns, userID)
	delete(rm.users, userID)
	delete(rm.voice, userID)

	return true, len(rm.users) == 0
}

// snapshot returns a copy of every presence record in the room.
func (rm *room) snapshot() []Presence {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotLocked()
}

func (rm *room) snapshotLocked() []Presence {
	users := make([]Presence, 0, len(rm.users))
	for _, p := range rm.users {
		users = append(users, *p)
	}
	return users
}

// voiceUsers returns the ids of users currently in voice chat.
func (rm *room) voiceUsers() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.voiceUsersLocked()
}

func (rm *room) voiceUsersLocked() []string {
	ids := make([]string, 0, len(rm.voice))
	for id := range rm.voice {
		ids = append(ids, id)
	}
	return ids
}

// updateCursor stores the user's latest cursor position. Last write wins; a
// stale update arriving late simply overwrites a fresher one.
func (rm *room) updateCursor(userID string, x, y float64) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p, ok := rm.users[userID]
	if !ok {
		return false
	}

	p.Cursor = &Cursor{X: x, Y: y}
	return true
}

// setDragState records whether the user is dragging and what.
func (rm *room) setDragState(userID string, dragging bool, item *DragItem) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p, ok := rm.users[userID]
	if !ok {
		return false
	}

	p.IsDragging = dragging
	if dragging {
		p.DragItem = item
	} else {
		p.DragItem = nil
	}
	return true
}

// joinVoice adds a present user to the voice set and returns the ids of the
// users that were already in voice. A user who is not present in the room
// cannot join voice; that keeps the voice set a subset of the presence map.
func (rm *room) joinVoice(userID string) ([]string, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p, ok := rm.users[userID]
	if !ok {
		return nil, false
	}

	existing := rm.voiceUsersLocked()
	rm.voice[userID] = struct{}{}
	p.IsInVoice = true

	return existing, true
}

// leaveVoice removes the user from the voice set.
func (rm *room) leaveVoice(userID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.voice[userID]; !ok {
		return false
	}

	delete(rm.voice, userID)
	if p, ok := rm.users[userID]; ok {
		p.IsInVoice = false
	}
	return true
}

// socketIDs returns every connection id the given user has in this room.
func (rm *room) socketIDs(userID string) []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	set, ok := rm.conns[userID]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// connIDs returns every connection id joined to this room, across all users.
func (rm *room) connIDs() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var ids []string
	for _, set := range rm.conns {
		for id := range set {
			ids = append(ids, id)
		}
	}
	return ids
}
