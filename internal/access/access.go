// Package access answers "may this actor perform this operation on this
// board". Mutation handlers consult it before computing positions or
// broadcasting anything; a denial aborts the operation outright.
package access

import "context"

// Level is a board membership level. Levels are ordered: each one implies
// everything below it. A board's owner is stored as an admin membership.
type Level string

const (
	LevelViewer Level = "viewer"
	LevelEditor Level = "editor"
	LevelAdmin  Level = "admin"
)

// Gate resolves whether an actor holds at least the required level on a
// board. Implementations read the membership table; this package never
// caches or persists anything itself.
type Gate interface {
	Can(ctx context.Context, boardID, userID string, required Level) (bool, error)
}

// Allows reports whether a held membership level satisfies a required one.
func Allows(held, required Level) bool {
	return rank(held) >= rank(required) && rank(held) > 0
}

// Normalize maps arbitrary stored strings onto a valid level, defaulting
// to viewer.
func Normalize(level string) Level {
	switch Level(level) {
	case LevelViewer, LevelEditor, LevelAdmin:
		return Level(level)
	default:
		return LevelViewer
	}
}

func rank(level Level) int {
	switch level {
	case LevelAdmin:
		return 3
	case LevelEditor:
		return 2
	case LevelViewer:
		return 1
	default:
		return 0
	}
}
