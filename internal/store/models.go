package store

import "time"

type User struct {
	ID            string
	Email         string
	DisplayName   string
	PasswordHash  string
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Board struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BoardMembership ties a user to a board at a level ("viewer", "editor",
// "admin"). The board creator gets an admin membership at creation time.
type BoardMembership struct {
	ID        string
	BoardID   string
	UserID    string
	Level     string
	CreatedAt time.Time
}

// Column is ordered within its board by Position (lexicographic string
// comparison; see internal/position).
type Column struct {
	ID        string
	BoardID   string
	Name      string
	Position  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Swimlane is ordered within its board by Position.
type Swimlane struct {
	ID        string
	BoardID   string
	Name      string
	Position  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Card is ordered within its (column, swimlane) cell by Position. Position
// keys are never compared across cells.
type Card struct {
	ID          string
	BoardID     string
	ColumnID    string
	SwimlaneID  string
	Title       string
	Description string
	Position    string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Comment struct {
	ID        string
	CardID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Label struct {
	ID      string
	BoardID string
	Name    string
	Color   string
}

type Attachment struct {
	ID         string
	CardID     string
	Filename   string
	ObjectKey  string
	Size       int64
	UploadedBy string
	CreatedAt  time.Time
}

type Activity struct {
	ID         string
	BoardID    string
	ActorID    string
	Verb       string
	EntityType string
	EntityID   string
	Summary    string
	CreatedAt  time.Time
}

type Notification struct {
	ID          string
	RecipientID string
	BoardID     string
	CardID      string
	Kind        string
	Summary     string
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// CellNeighbors are the position keys adjacent to an insertion point,
// fetched by the write path and handed to the position engine. An empty
// string means the respective side is unbounded.
type CellNeighbors struct {
	Low  string
	High string
}
