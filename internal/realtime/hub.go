// Package realtime owns the board socket subsystem: connection registry,
// room membership and event fan-out. State is process-local and ephemeral;
// a restart drops every connection and clients reconnect and re-join.
//
// Rooms come in two kinds. Every connection is a member of its actor's
// user room for the connection's lifetime. A connection is additionally a
// member of at most one board room, tracked as a single field on the
// client rather than derived from room-name scanning.
package realtime

import (
	"log"
	"sync"
	"sync/atomic"

	"corkboard/internal/event"
	"corkboard/internal/util"
)

// sendBuffer is the per-connection queue depth. A client that cannot keep
// up loses events rather than blocking the rest of the room; its next full
// board refresh is the source of truth.
const sendBuffer = 64

// Client is one realtime connection. UserID is resolved once during the
// handshake and never changes. All other fields are guarded by the hub.
type Client struct {
	ID     string
	UserID string

	send  chan event.Envelope
	board string // current board room, "" when none
	gone  bool
}

// Events exposes the connection's delivery queue. The transport's write
// loop drains it; it closes when the connection is unregistered.
func (c *Client) Events() <-chan event.Envelope {
	return c.send
}

// Hub is the connection and room registry plus the broadcast dispatcher.
// It is constructed once in the composition root and injected wherever
// broadcasts originate; there is no package-level instance.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]*Client
	users  map[string]map[*Client]struct{}
	boards map[string]map[*Client]struct{}

	// dropped counts events lost to full buffers or failed writes.
	// Delivery stays fire-and-forget; the counter exists so operators can
	// see systemic delivery trouble.
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Client),
		users:  make(map[string]map[*Client]struct{}),
		boards: make(map[string]map[*Client]struct{}),
	}
}

// Register creates a connection bound to userID and auto-joins it to the
// user's room. The returned client's send channel is drained by the
// transport's write loop.
func (h *Hub) Register(userID string) *Client {
	c := &Client{
		ID:     util.NewID("conn"),
		UserID: userID,
		send:   make(chan event.Envelope, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Client]struct{})
	}
	h.users[userID][c] = struct{}{}
	return c
}

// Unregister drops the connection from every room and closes its send
// channel. Idempotent; safe to call from the transport's defer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.gone {
		return
	}
	c.gone = true

	delete(h.conns, c.ID)
	h.removeFromRoom(h.users, c.UserID, c)
	if c.board != "" {
		h.removeFromRoom(h.boards, c.board, c)
		c.board = ""
	}
	close(c.send)
}

// JoinBoard moves the connection into the board's room, leaving whatever
// board room it was in before. An empty board id is malformed client input
// and is ignored without error.
func (h *Hub) JoinBoard(c *Client, boardID string) {
	if boardID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.gone || c.board == boardID {
		return
	}
	if c.board != "" {
		h.removeFromRoom(h.boards, c.board, c)
	}
	if h.boards[boardID] == nil {
		h.boards[boardID] = make(map[*Client]struct{})
	}
	h.boards[boardID][c] = struct{}{}
	c.board = boardID
}

// LeaveBoard removes the connection from the board's room. A no-op if the
// id is empty or the connection is not in that room.
func (h *Hub) LeaveBoard(c *Client, boardID string) {
	if boardID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.gone || c.board != boardID {
		return
	}
	h.removeFromRoom(h.boards, boardID, c)
	c.board = ""
}

// BroadcastToBoard delivers the event to every member of the board's room
// except the origin connection. Pass an empty origin when the mutation did
// not come from a socket-holding client (for example a share-link actor);
// everyone in the room is delivered then, echo included.
//
// Events reach each member in call order. There is no ordering across
// different boards and no guarantee relative to any REST response.
func (h *Hub) BroadcastToBoard(boardID, name string, data any, originConnID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.boards[boardID] {
		if originConnID != "" && c.ID == originConnID {
			continue
		}
		h.deliver(c, event.Envelope{Name: name, Data: data})
	}
}

// EmitToUser delivers the event to every one of the user's connections.
// No exclusion: a user is never dropped from their own notification
// stream, even for actions they triggered.
func (h *Hub) EmitToUser(userID, name string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.users[userID] {
		h.deliver(c, event.Envelope{Name: name, Data: data})
	}
}

// Dropped reports the number of events lost since startup.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// noteDropped is called by the transport when a write to the peer fails.
func (h *Hub) noteDropped() {
	h.dropped.Add(1)
}

// deliver enqueues without blocking; callers hold h.mu.
func (h *Hub) deliver(c *Client, env event.Envelope) {
	if c.gone {
		return
	}
	select {
	case c.send <- env:
	default:
		h.dropped.Add(1)
		log.Printf("realtime: dropping %s for connection %s (queue full)", env.Name, c.ID)
	}
}

func (h *Hub) removeFromRoom(rooms map[string]map[*Client]struct{}, key string, c *Client) {
	members := rooms[key]
	if members == nil {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(rooms, key)
	}
}
