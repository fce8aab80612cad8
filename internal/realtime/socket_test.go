package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"corkboard/internal/event"
)

type fakeAuthn struct {
	actors map[string]string
}

func (f *fakeAuthn) ActorFromToken(_ context.Context, token string) (string, error) {
	if actor, ok := f.actors[token]; ok {
		return actor, nil
	}
	return "", errors.New("invalid token")
}

func newSocketServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	authn := &fakeAuthn{actors: map[string]string{"good-token": "user-1"}}
	server := httptest.NewServer(NewSocketHandler(hub, authn, nil))
	t.Cleanup(server.Close)
	return hub, server
}

func handshakeReason(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("handshake request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	return resp.StatusCode, payload.Error
}

func TestHandshakeRejectsMissingCredential(t *testing.T) {
	_, server := newSocketServer(t)
	status, reason := handshakeReason(t, server.URL)
	if status != http.StatusUnauthorized || reason != ReasonAuthRequired {
		t.Fatalf("got status %d reason %q, want 401 %q", status, reason, ReasonAuthRequired)
	}
}

func TestHandshakeRejectsInvalidCredential(t *testing.T) {
	_, server := newSocketServer(t)
	status, reason := handshakeReason(t, server.URL+"?token=expired-token")
	if status != http.StatusUnauthorized || reason != ReasonInvalidToken {
		t.Fatalf("got status %d reason %q, want 401 %q", status, reason, ReasonInvalidToken)
	}
}

func TestHandshakeAcceptsValidCredential(t *testing.T) {
	hub, server := newSocketServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=good-token"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var env struct {
		Name string                 `json:"name"`
		Data event.ConnectedPayload `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}
	if env.Name != event.Connected || env.Data.ConnectionID == "" {
		t.Fatalf("unexpected first frame: %+v", env)
	}

	// The accepted connection is bound to the token subject and sits in
	// that actor's user room.
	hub.mu.Lock()
	client := hub.conns[env.Data.ConnectionID]
	hub.mu.Unlock()
	if client == nil || client.UserID != "user-1" {
		t.Fatalf("connection not registered for user-1: %+v", client)
	}

	hub.EmitToUser("user-1", "notify", event.NotifyPayload{Kind: "test", Summary: "hello"})
	var notify event.Envelope
	if err := wsjson.Read(ctx, conn, &notify); err != nil {
		t.Fatalf("read user-room event: %v", err)
	}
	if notify.Name != "notify" {
		t.Fatalf("got %q, want notify", notify.Name)
	}
}

func TestBoardJoinOverSocket(t *testing.T) {
	hub, server := newSocketServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=good-token"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var hello struct {
		Name string                 `json:"name"`
		Data event.ConnectedPayload `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}

	// Malformed joins first: neither may disturb the session.
	if err := wsjson.Write(ctx, conn, map[string]any{"action": event.BoardJoin, "boardId": ""}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"action": event.BoardJoin, "boardId": 42}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"action": event.BoardJoin, "boardId": "board-x"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Joins are applied by the read loop; poll until visible.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		board := ""
		if c := hub.conns[hello.Data.ConnectionID]; c != nil {
			board = c.board
		}
		hub.mu.Unlock()
		if board == "board-x" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connection never joined board-x (board = %q)", board)
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastToBoard("board-x", "evt", nil, "")
	var env event.Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read board event: %v", err)
	}
	if env.Name != "evt" {
		t.Fatalf("got %q, want evt", env.Name)
	}
}
