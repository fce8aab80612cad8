// Package event is the wire contract between the server and every
// connected board client. Event names and payload shapes are a versioned
// contract: renaming an event or dropping a payload field breaks all
// connected clients at once, since there is no protocol negotiation.
//
// The set of events is closed. Adding one means adding a name constant and
// a payload struct here, so both sides of the wire change together under
// the compiler's eye.
package event

import "encoding/json"

// Server→client event names. Board-room events except Notify, which is
// delivered on the recipient's user room only.
const (
	ColumnCreate = "columnCreate"
	ColumnUpdate = "columnUpdate"
	ColumnMove   = "columnMove"
	ColumnDelete = "columnDelete"

	SwimlaneCreate = "swimlaneCreate"
	SwimlaneUpdate = "swimlaneUpdate"
	SwimlaneMove   = "swimlaneMove"
	SwimlaneDelete = "swimlaneDelete"

	CardCreate = "cardCreate"
	CardUpdate = "cardUpdate"
	CardMove   = "cardMove"
	CardDelete = "cardDelete"

	CommentCreate = "commentCreate"
	CommentUpdate = "commentUpdate"
	CommentDelete = "commentDelete"

	LabelCreate = "labelCreate"
	LabelUpdate = "labelUpdate"
	LabelDelete = "labelDelete"

	CardLabelAdd    = "cardLabelAdd"
	CardLabelRemove = "cardLabelRemove"

	CardAssigneeAdd    = "cardAssigneeAdd"
	CardAssigneeRemove = "cardAssigneeRemove"

	AttachmentCreate = "attachmentCreate"
	AttachmentUpdate = "attachmentUpdate"
	AttachmentDelete = "attachmentDelete"

	ActivityCreate = "activityCreate"
	Notify         = "notify"

	// Connected is the first frame on every accepted connection. It tells
	// the client its server-assigned connection id, which the client echoes
	// back on REST calls (X-Socket-ID) so its own mutations are not echoed
	// to it over the socket.
	Connected = "connected"
)

// ConnectedPayload accompanies the Connected event.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// Client→server control messages.
const (
	BoardJoin  = "board-join"
	BoardLeave = "board-leave"
)

// Envelope is what actually travels over a connection.
type Envelope struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// ClientMessage is a client→server control frame. Data is decoded lazily
// so a malformed boardId can be ignored without failing the whole frame.
type ClientMessage struct {
	Action  string          `json:"action"`
	BoardID json.RawMessage `json:"boardId,omitempty"`
}

// BoardIDString returns the boardId as a string, or "" when it is absent,
// not a JSON string, or empty. Upstream treats all three as malformed.
func (m ClientMessage) BoardIDString() string {
	var id string
	if err := json.Unmarshal(m.BoardID, &id); err != nil {
		return ""
	}
	return id
}

// ColumnPayload covers column create/update/move/delete. Position is empty
// on delete.
type ColumnPayload struct {
	BoardID  string `json:"boardId"`
	ColumnID string `json:"columnId"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
}

// SwimlanePayload covers swimlane create/update/move/delete.
type SwimlanePayload struct {
	BoardID    string `json:"boardId"`
	SwimlaneID string `json:"swimlaneId"`
	Name       string `json:"name,omitempty"`
	Position   string `json:"position,omitempty"`
}

// CardPayload covers card create/update/move/delete. ColumnID and
// SwimlaneID identify the cell the card is in after the operation.
type CardPayload struct {
	BoardID     string `json:"boardId"`
	CardID      string `json:"cardId"`
	ColumnID    string `json:"columnId"`
	SwimlaneID  string `json:"swimlaneId"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Position    string `json:"position,omitempty"`
}

type CommentPayload struct {
	BoardID   string `json:"boardId"`
	CardID    string `json:"cardId"`
	CommentID string `json:"commentId"`
	AuthorID  string `json:"authorId,omitempty"`
	Body      string `json:"body,omitempty"`
}

type LabelPayload struct {
	BoardID string `json:"boardId"`
	LabelID string `json:"labelId"`
	Name    string `json:"name,omitempty"`
	Color   string `json:"color,omitempty"`
}

type CardLabelPayload struct {
	BoardID string `json:"boardId"`
	CardID  string `json:"cardId"`
	LabelID string `json:"labelId"`
}

type CardAssigneePayload struct {
	BoardID string `json:"boardId"`
	CardID  string `json:"cardId"`
	UserID  string `json:"userId"`
}

type AttachmentPayload struct {
	BoardID      string `json:"boardId"`
	CardID       string `json:"cardId"`
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename,omitempty"`
}

// ActivityPayload is the generic board activity feed entry.
type ActivityPayload struct {
	BoardID    string `json:"boardId"`
	ActivityID string `json:"activityId"`
	ActorID    string `json:"actorId"`
	Verb       string `json:"verb"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Summary    string `json:"summary,omitempty"`
}

// NotifyPayload is delivered on user rooms, never board rooms. The
// recipient is addressed by room, so it carries no recipient field.
type NotifyPayload struct {
	NotificationID string `json:"notificationId"`
	BoardID        string `json:"boardId"`
	CardID         string `json:"cardId,omitempty"`
	Kind           string `json:"kind"`
	Summary        string `json:"summary"`
}
