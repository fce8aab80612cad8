package realtime

import (
	"testing"

	"corkboard/internal/event"
)

func drain(c *Client) []event.Envelope {
	var got []event.Envelope
	for {
		select {
		case env := <-c.send:
			got = append(got, env)
		default:
			return got
		}
	}
}

func TestRegisterJoinsUserRoom(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")

	hub.EmitToUser("user-1", "evt", nil)
	if got := drain(c); len(got) != 1 || got[0].Name != "evt" {
		t.Fatalf("expected one event on the user room, got %+v", got)
	}
}

func TestJoinBoardReplacesPreviousBoardRoom(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")

	hub.JoinBoard(c, "board-x")
	hub.JoinBoard(c, "board-y")

	hub.BroadcastToBoard("board-x", "evt-x", nil, "")
	hub.BroadcastToBoard("board-y", "evt-y", nil, "")

	got := drain(c)
	if len(got) != 1 || got[0].Name != "evt-y" {
		t.Fatalf("connection should only be in board-y, got %+v", got)
	}
	if c.board != "board-y" {
		t.Fatalf("current board = %q, want board-y", c.board)
	}
	if _, ok := hub.boards["board-x"]; ok {
		t.Fatal("empty board-x room should have been removed")
	}
}

func TestJoinBoardIgnoresEmptyBoardID(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")
	hub.JoinBoard(c, "board-x")

	hub.JoinBoard(c, "")
	if c.board != "board-x" {
		t.Fatalf("empty board id must not change membership, board = %q", c.board)
	}
	hub.LeaveBoard(c, "")
	if c.board != "board-x" {
		t.Fatalf("empty board id must not change membership, board = %q", c.board)
	}
}

func TestLeaveBoardIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")
	hub.JoinBoard(c, "board-x")

	hub.LeaveBoard(c, "board-x")
	hub.LeaveBoard(c, "board-x")
	hub.LeaveBoard(c, "board-never-joined")

	hub.BroadcastToBoard("board-x", "evt", nil, "")
	if got := drain(c); len(got) != 0 {
		t.Fatalf("left connection received %+v", got)
	}
}

func TestBroadcastExcludesOrigin(t *testing.T) {
	hub := NewHub()
	origin := hub.Register("user-1")
	other := hub.Register("user-2")
	hub.JoinBoard(origin, "board-b")
	hub.JoinBoard(other, "board-b")

	hub.BroadcastToBoard("board-b", "evt", map[string]any{"k": "v"}, origin.ID)

	if got := drain(origin); len(got) != 0 {
		t.Fatalf("origin connection should be excluded, got %+v", got)
	}
	if got := drain(other); len(got) != 1 || got[0].Name != "evt" {
		t.Fatalf("other connection should receive the event, got %+v", got)
	}
}

func TestBroadcastWithoutOriginReachesEveryone(t *testing.T) {
	hub := NewHub()
	a := hub.Register("user-1")
	b := hub.Register("user-2")
	hub.JoinBoard(a, "board-b")
	hub.JoinBoard(b, "board-b")

	hub.BroadcastToBoard("board-b", "evt", nil, "")

	if len(drain(a)) != 1 || len(drain(b)) != 1 {
		t.Fatal("omitting the origin should deliver to the whole room")
	}
}

func TestEmitToUserNeverExcludes(t *testing.T) {
	hub := NewHub()
	first := hub.Register("user-1")
	second := hub.Register("user-1")

	hub.EmitToUser("user-1", "notify", nil)

	if len(drain(first)) != 1 || len(drain(second)) != 1 {
		t.Fatal("every connection of the user should receive the notification")
	}
}

func TestBroadcastPreservesCallOrder(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")
	hub.JoinBoard(c, "board-b")

	hub.BroadcastToBoard("board-b", "first", nil, "")
	hub.BroadcastToBoard("board-b", "second", nil, "")
	hub.BroadcastToBoard("board-b", "third", nil, "")

	got := drain(c)
	if len(got) != 3 || got[0].Name != "first" || got[1].Name != "second" || got[2].Name != "third" {
		t.Fatalf("events out of order: %+v", got)
	}
}

func TestUnregisterDropsAllMemberships(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")
	hub.JoinBoard(c, "board-b")

	hub.Unregister(c)
	hub.Unregister(c) // idempotent

	hub.BroadcastToBoard("board-b", "evt", nil, "")
	hub.EmitToUser("user-1", "evt", nil)

	if len(hub.conns) != 0 || len(hub.users) != 0 || len(hub.boards) != 0 {
		t.Fatalf("hub retained state after unregister: %d conns, %d users, %d boards",
			len(hub.conns), len(hub.users), len(hub.boards))
	}
}

func TestSlowConnectionDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	c := hub.Register("user-1")
	hub.JoinBoard(c, "board-b")

	// Nothing drains c.send; fill the buffer and then some.
	for i := 0; i < sendBuffer+5; i++ {
		hub.BroadcastToBoard("board-b", "evt", nil, "")
	}

	if got := hub.Dropped(); got != 5 {
		t.Fatalf("Dropped() = %d, want 5", got)
	}
	if len(c.send) != sendBuffer {
		t.Fatalf("queue depth = %d, want %d", len(c.send), sendBuffer)
	}
}
