package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"corkboard/internal/event"
)

// Fixed handshake rejection reasons. These are part of the wire contract:
// clients match on them to decide whether to re-authenticate.
const (
	ReasonAuthRequired = "authentication required"
	ReasonInvalidToken = "invalid or expired token"
)

const writeTimeout = 5 * time.Second

// Authenticator resolves the handshake credential to an actor id. The
// credential is the same bearer token REST calls use; verification may
// touch the session store, hence the context.
type Authenticator interface {
	ActorFromToken(ctx context.Context, token string) (string, error)
}

// SocketHandler upgrades HTTP requests at the realtime endpoint. The
// credential travels in the handshake itself (the `token` query
// parameter), never as a message after connect: a connection either comes
// up authenticated or does not come up at all.
type SocketHandler struct {
	hub     *Hub
	authn   Authenticator
	origins []string
}

func NewSocketHandler(hub *Hub, authn Authenticator, origins []string) *SocketHandler {
	return &SocketHandler{hub: hub, authn: authn, origins: origins}
}

func (s *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		rejectHandshake(w, ReasonAuthRequired)
		return
	}
	userID, err := s.authn.ActorFromToken(r.Context(), token)
	if err != nil {
		rejectHandshake(w, ReasonInvalidToken)
		return
	}

	opts := &websocket.AcceptOptions{}
	if len(s.origins) > 0 {
		opts.OriginPatterns = s.origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}

	client := s.hub.Register(userID)
	defer s.hub.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.writeLoop(ctx, conn, client)

	// First frame: tell the client its connection id so it can be echoed
	// back on REST calls for origin exclusion.
	writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
	err = wsjson.Write(writeCtx, conn, event.Envelope{
		Name: event.Connected,
		Data: event.ConnectedPayload{ConnectionID: client.ID},
	})
	cancelWrite()
	if err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
		return
	}

	s.readLoop(ctx, conn, client)
}

// readLoop processes board-join/board-leave control frames until the peer
// goes away. Malformed frames are ignored; control messages from a buggy
// or hostile client must never terminate the session.
func (s *SocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for {
		var msg event.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			// Disconnect path. Membership cleanup happens in the caller's
			// Unregister; this log is diagnostic only.
			log.Printf("realtime: connection %s closed: %v", client.ID, err)
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		}
		switch msg.Action {
		case event.BoardJoin:
			s.hub.JoinBoard(client, msg.BoardIDString())
		case event.BoardLeave:
			s.hub.LeaveBoard(client, msg.BoardIDString())
		default:
			// Unknown actions are ignored, same as malformed board ids.
		}
	}
}

func (s *SocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for env := range client.send {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(writeCtx, conn, env)
		cancel()
		if err != nil {
			s.hub.noteDropped()
			_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
			return
		}
	}
}

func rejectHandshake(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":  "UNAUTHORIZED",
		"error": reason,
	})
}
