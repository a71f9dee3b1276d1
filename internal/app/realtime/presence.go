/*
Package realtime contains the real-time collaboration coordinator: the room and
connection registries, the WebSocket client lifecycle, and the hub that fans
events out to board rooms and relays voice signaling between peers.

This file defines the presence data model. A Presence record is the live state
of one user within one board room; multiple connections of the same user
collapse onto a single record.
*/
package realtime

import "stackly/internal/app/user"

// Item types a user can drag on a board.
const (
	ItemTypeCard   = "card"
	ItemTypeColumn = "column"
)

// Cursor is the last known pointer position of a user on a board. No history
// is retained.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragItem identifies the card or column a user is currently dragging.
type DragItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Presence represents one user's live state within one board room.
type Presence struct {
	user.User

	// Cursor is nil until the first cursor_move arrives for this user.
	Cursor *Cursor `json:"cursor,omitempty"`

	// IsDragging and DragItem reflect the user's current drag state.
	IsDragging bool      `json:"isDragging,omitempty"`
	DragItem   *DragItem `json:"dragItem,omitempty"`

	// IsInVoice mirrors membership in the room's voice set.
	IsInVoice bool `json:"isInVoice,omitempty"`
}

// ValidItemType reports whether t names a draggable item type.
func ValidItemType(t string) bool {
	return t == ItemTypeCard || t == ItemTypeColumn
}
