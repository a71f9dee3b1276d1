/*
Package wire implements the compact binary encoding used for high-frequency
realtime events (cursor movement, drag state, card moves, column reorders,
audio levels).

The format is the protobuf wire format: a Message is a tagged union where each
variant is a length-delimited sub-message under its own field number. Exactly
one variant is set per message. The verbose JSON envelope carries the same
logical field sets; this encoding exists purely to cut bandwidth on events
emitted many times per second.
*/
package wire

import (
	"errors"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Variant field numbers of the Message union. Inbound (client to server)
// variants are odd positions, their outbound counterparts follow directly.
const (
	fieldCursorMove       = 1
	fieldCursorUpdate     = 2
	fieldDragStart        = 3
	fieldDragStarted      = 4
	fieldDragEnd          = 5
	fieldDragEnded        = 6
	fieldCardMove         = 7
	fieldCardMoved        = 8
	fieldColumnReorder    = 9
	fieldColumnsReordered = 10
	fieldAudioLevel       = 11
	fieldAudioLevelUpdate = 12
)

// ErrNoVariant is returned by Encode when the Message has no variant set.
var ErrNoVariant = errors.New("wire: message has no variant set")

// ErrTruncated is returned by Decode when the payload cannot be parsed.
var ErrTruncated = errors.New("wire: truncated or malformed payload")

// CursorMove is sent by a client when its pointer moves on a board.
type CursorMove struct {
	BoardID string
	X       float64
	Y       float64

	// Timestamp is an optional client-side capture time in Unix milliseconds.
	// The server ignores it but round-trips it.
	Timestamp int64
}

// CursorUpdate is broadcast to the rest of the room after a CursorMove.
type CursorUpdate struct {
	UserID  string
	BoardID string
	X       float64
	Y       float64
}

// DragStart is sent when a client begins dragging a card or column.
type DragStart struct {
	BoardID  string
	ItemType string
	ItemID   string
}

// DragStarted is broadcast to the rest of the room after a DragStart.
type DragStarted struct {
	UserID   string
	BoardID  string
	ItemType string
	ItemID   string
}

// DragEnd is sent when a client finishes dragging.
type DragEnd struct {
	BoardID string
}

// DragEnded is broadcast to the rest of the room after a DragEnd.
type DragEnded struct {
	UserID  string
	BoardID string
}

// CardMove is sent when a client drops a card into a new position.
type CardMove struct {
	BoardID        string
	CardID         string
	SourceColumnID string
	TargetColumnID string
	Position       float64
}

// CardMoved is broadcast to the rest of the room after a CardMove.
type CardMoved struct {
	BoardID        string
	CardID         string
	SourceColumnID string
	TargetColumnID string
	Position       float64
	UserID         string
}

// ColumnReorder is sent when a client reorders the columns of a board.
type ColumnReorder struct {
	BoardID   string
	ColumnIDs []string
}

// ColumnsReordered is broadcast to the rest of the room after a ColumnReorder.
type ColumnsReordered struct {
	BoardID   string
	ColumnIDs []string
	UserID    string
}

// AudioLevel is sent by a voice participant with its current microphone level.
type AudioLevel struct {
	BoardID string

	// Level is a normalized scalar in [0,1].
	Level float64
}

// AudioLevelUpdate is broadcast to the rest of the room after an AudioLevel.
type AudioLevelUpdate struct {
	UserID string
	Level  float64
}

// Message is the tagged-union container carried by binary WebSocket frames.
// Exactly one variant pointer is non-nil.
type Message struct {
	CursorMove       *CursorMove
	CursorUpdate     *CursorUpdate
	DragStart        *DragStart
	DragStarted      *DragStarted
	DragEnd          *DragEnd
	DragEnded        *DragEnded
	CardMove         *CardMove
	CardMoved        *CardMoved
	ColumnReorder    *ColumnReorder
	ColumnsReordered *ColumnsReordered
	AudioLevel       *AudioLevel
	AudioLevelUpdate *AudioLevelUpdate
}

// Encode serializes the message into its binary form.
func Encode(m *Message) ([]byte, error) {
	var b []byte

	switch {
	case m == nil:
		return nil, ErrNoVariant

	case m.CursorMove != nil:
		v := m.CursorMove
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		sub = appendDouble(sub, 2, v.X)
		sub = appendDouble(sub, 3, v.Y)
		sub = appendInt64(sub, 4, v.Timestamp)
		b = appendSub(b, fieldCursorMove, sub)

	case m.CursorUpdate != nil:
		v := m.CursorUpdate
		var sub []byte
		sub = appendString(sub, 1, v.UserID)
		sub = appendString(sub, 2, v.BoardID)
		sub = appendDouble(sub, 3, v.X)
		sub = appendDouble(sub, 4, v.Y)
		b = appendSub(b, fieldCursorUpdate, sub)

	case m.DragStart != nil:
		v := m.DragStart
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		sub = appendString(sub, 2, v.ItemType)
		sub = appendString(sub, 3, v.ItemID)
		b = appendSub(b, fieldDragStart, sub)

	case m.DragStarted != nil:
		v := m.DragStarted
		var sub []byte
		sub = appendString(sub, 1, v.UserID)
		sub = appendString(sub, 2, v.BoardID)
		sub = appendString(sub, 3, v.ItemType)
		sub = appendString(sub, 4, v.ItemID)
		b = appendSub(b, fieldDragStarted, sub)

	case m.DragEnd != nil:
		var sub []byte
		sub = appendString(sub, 1, m.DragEnd.BoardID)
		b = appendSub(b, fieldDragEnd, sub)

	case m.DragEnded != nil:
		v := m.DragEnded
		var sub []byte
		sub = appendString(sub, 1, v.UserID)
		sub = appendString(sub, 2, v.BoardID)
		b = appendSub(b, fieldDragEnded, sub)

	case m.CardMove != nil:
		v := m.CardMove
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		sub = appendString(sub, 2, v.CardID)
		sub = appendString(sub, 3, v.SourceColumnID)
		sub = appendString(sub, 4, v.TargetColumnID)
		sub = appendDouble(sub, 5, v.Position)
		b = appendSub(b, fieldCardMove, sub)

	case m.CardMoved != nil:
		v := m.CardMoved
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		sub = appendString(sub, 2, v.CardID)
		sub = appendString(sub, 3, v.SourceColumnID)
		sub = appendString(sub, 4, v.TargetColumnID)
		sub = appendDouble(sub, 5, v.Position)
		sub = appendString(sub, 6, v.UserID)
		b = appendSub(b, fieldCardMoved, sub)

	case m.ColumnReorder != nil:
		v := m.ColumnReorder
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		for _, id := range v.ColumnIDs {
			sub = protowire.AppendTag(sub, 2, protowire.BytesType)
			sub = protowire.AppendString(sub, id)
		}
		b = appendSub(b, fieldColumnReorder, sub)

	case m.ColumnsReordered != nil:
		v := m.ColumnsReordered
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		for _, id := range v.ColumnIDs {
			sub = protowire.AppendTag(sub, 2, protowire.BytesType)
			sub = protowire.AppendString(sub, id)
		}
		sub = appendString(sub, 3, v.UserID)
		b = appendSub(b, fieldColumnsReordered, sub)

	case m.AudioLevel != nil:
		v := m.AudioLevel
		var sub []byte
		sub = appendString(sub, 1, v.BoardID)
		sub = appendDouble(sub, 2, v.Level)
		b = appendSub(b, fieldAudioLevel, sub)

	case m.AudioLevelUpdate != nil:
		v := m.AudioLevelUpdate
		var sub []byte
		sub = appendString(sub, 1, v.UserID)
		sub = appendDouble(sub, 2, v.Level)
		b = appendSub(b, fieldAudioLevelUpdate, sub)

	default:
		return nil, ErrNoVariant
	}

	return b, nil
}

// Decode parses a binary payload into a Message. It returns an error for
// empty, truncated, or otherwise malformed input; callers treat a decode
// failure as a dropped message, never a fatal condition. Unknown fields are
// skipped so newer clients can talk to older servers.
func Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, ErrTruncated
	}

	m := &Message{}
	seen := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrTruncated
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrTruncated
			}
			data = data[n:]
			continue
		}

		sub, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, ErrTruncated
		}
		data = data[n:]

		if err := decodeVariant(m, num, sub); err != nil {
			return nil, err
		}
		seen = true
	}

	if !seen {
		return nil, ErrTruncated
	}

	return m, nil
}

// decodeVariant parses one sub-message into the matching variant slot.
func decodeVariant(m *Message, num protowire.Number, sub []byte) error {
	switch num {
	case fieldCursorMove:
		v := &CursorMove{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.X = fv.double
			case 3:
				v.Y = fv.double
			case 4:
				v.Timestamp = fv.int64
			}
		})
		if err != nil {
			return err
		}
		m.CursorMove = v

	case fieldCursorUpdate:
		v := &CursorUpdate{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.UserID = fv.str
			case 2:
				v.BoardID = fv.str
			case 3:
				v.X = fv.double
			case 4:
				v.Y = fv.double
			}
		})
		if err != nil {
			return err
		}
		m.CursorUpdate = v

	case fieldDragStart:
		v := &DragStart{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.ItemType = fv.str
			case 3:
				v.ItemID = fv.str
			}
		})
		if err != nil {
			return err
		}
		m.DragStart = v

	case fieldDragStarted:
		v := &DragStarted{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.UserID = fv.str
			case 2:
				v.BoardID = fv.str
			case 3:
				v.ItemType = fv.str
			case 4:
				v.ItemID = fv.str
			}
		})
		if err != nil {
			return err
		}
		m.DragStarted = v

	case fieldDragEnd:
		v := &DragEnd{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			if f == 1 {
				v.BoardID = fv.str
			}
		})
		if err != nil {
			return err
		}
		m.DragEnd = v

	case fieldDragEnded:
		v := &DragEnded{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.UserID = fv.str
			case 2:
				v.BoardID = fv.str
			}
		})
		if err != nil {
			return err
		}
		m.DragEnded = v

	case fieldCardMove:
		v := &CardMove{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.CardID = fv.str
			case 3:
				v.SourceColumnID = fv.str
			case 4:
				v.TargetColumnID = fv.str
			case 5:
				v.Position = fv.double
			}
		})
		if err != nil {
			return err
		}
		m.CardMove = v

	case fieldCardMoved:
		v := &CardMoved{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.CardID = fv.str
			case 3:
				v.SourceColumnID = fv.str
			case 4:
				v.TargetColumnID = fv.str
			case 5:
				v.Position = fv.double
			case 6:
				v.UserID = fv.str
			}
		})
		if err != nil {
			return err
		}
		m.CardMoved = v

	case fieldColumnReorder:
		v := &ColumnReorder{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.ColumnIDs = append(v.ColumnIDs, fv.str)
			}
		})
		if err != nil {
			return err
		}
		m.ColumnReorder = v

	case fieldColumnsReordered:
		v := &ColumnsReordered{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.ColumnIDs = append(v.ColumnIDs, fv.str)
			case 3:
				v.UserID = fv.str
			}
		})
		if err != nil {
			return err
		}
		m.ColumnsReordered = v

	case fieldAudioLevel:
		v := &AudioLevel{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.BoardID = fv.str
			case 2:
				v.Level = fv.double
			}
		})
		if err != nil {
			return err
		}
		m.AudioLevel = v

	case fieldAudioLevelUpdate:
		v := &AudioLevelUpdate{}
		err := scanFields(sub, func(f protowire.Number, fv fieldValue) {
			switch f {
			case 1:
				v.UserID = fv.str
			case 2:
				v.Level = fv.double
			}
		})
		if err != nil {
			return err
		}
		m.AudioLevelUpdate = v

	default:
		// Unknown variant: skip so codec upgrades stay compatible.
	}

	return nil
}

// fieldValue carries the decoded representation of one scalar field. Only the
// slot matching the field's wire type is meaningful.
type fieldValue struct {
	str    string
	double float64
	int64  int64
}

// scanFields walks every field of a sub-message, converting each scalar to all
// representations the variant structs use and handing them to assign.
func scanFields(data []byte, assign func(num protowire.Number, v fieldValue)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrTruncated
		}
		data = data[n:]

		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return ErrTruncated
			}
			data = data[n:]
			assign(num, fieldValue{str: v})

		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return ErrTruncated
			}
			data = data[n:]
			assign(num, fieldValue{double: math.Float64frombits(v)})

		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrTruncated
			}
			data = data[n:]
			assign(num, fieldValue{int64: int64(v)})

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ErrTruncated
			}
			data = data[n:]
		}
	}

	return nil
}

// appendString appends a length-delimited string field, omitting empty values
// the way proto3 does.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendDouble appends a fixed64 double field, omitting zero values.
func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// appendInt64 appends a varint field, omitting zero values.
func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// appendSub wraps an encoded variant as a length-delimited field of the union.
func appendSub(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}
