package app

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"corkboard/internal/authpw"
	"corkboard/internal/config"
	"corkboard/internal/event"
	"corkboard/internal/realtime"
	"corkboard/internal/store"
)

// memStore is an in-memory dataStore plus the refresh-session and
// password-auth contracts, so one fake backs the whole service.
type memStore struct {
	users         map[string]store.User
	boards        map[string]store.Board
	memberships   map[string]map[string]string // boardID -> userID -> level
	columns       map[string]store.Column
	swimlanes     map[string]store.Swimlane
	cards         map[string]store.Card
	comments      map[string]store.Comment
	labels        map[string]store.Label
	cardLabels    map[string]map[string]bool // cardID -> labelID
	assignees     map[string]map[string]bool // cardID -> userID
	attachments   map[string]store.Attachment
	activities    []store.Activity
	notifications []store.Notification
	refresh       map[string]refreshRec
}

type refreshRec struct {
	userID    string
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]store.User),
		boards:      make(map[string]store.Board),
		memberships: make(map[string]map[string]string),
		columns:     make(map[string]store.Column),
		swimlanes:   make(map[string]store.Swimlane),
		cards:       make(map[string]store.Card),
		comments:    make(map[string]store.Comment),
		labels:      make(map[string]store.Label),
		cardLabels:  make(map[string]map[string]bool),
		assignees:   make(map[string]map[string]bool),
		attachments: make(map[string]store.Attachment),
		refresh:     make(map[string]refreshRec),
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateUser(_ context.Context, user store.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) UpdateUserPassword(_ context.Context, userID, hash string) error {
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	m.users[userID] = u
	return nil
}

func (m *memStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.refresh[tokenHash] = refreshRec{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	rec, ok := m.refresh[tokenHash]
	if !ok || time.Now().After(rec.expiresAt) {
		return store.User{}, sql.ErrNoRows
	}
	return m.GetUserByID(ctx, rec.userID)
}

func (m *memStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memStore) InsertBoard(_ context.Context, board store.Board) error {
	m.boards[board.ID] = board
	return nil
}

func (m *memStore) GetBoard(_ context.Context, boardID string) (store.Board, error) {
	if b, ok := m.boards[boardID]; ok {
		return b, nil
	}
	return store.Board{}, sql.ErrNoRows
}

func (m *memStore) ListBoardsForUser(_ context.Context, userID string) ([]store.Board, error) {
	out := make([]store.Board, 0)
	for boardID, members := range m.memberships {
		if _, ok := members[userID]; ok {
			out = append(out, m.boards[boardID])
		}
	}
	return out, nil
}

func (m *memStore) InsertMembership(_ context.Context, mb store.BoardMembership) error {
	if m.memberships[mb.BoardID] == nil {
		m.memberships[mb.BoardID] = make(map[string]string)
	}
	m.memberships[mb.BoardID][mb.UserID] = mb.Level
	return nil
}

func (m *memStore) GetBoardLevel(_ context.Context, boardID, userID string) (string, error) {
	return m.memberships[boardID][userID], nil
}

func (m *memStore) InsertColumn(_ context.Context, c store.Column) error {
	m.columns[c.ID] = c
	return nil
}

func (m *memStore) GetColumn(_ context.Context, id string) (store.Column, error) {
	if c, ok := m.columns[id]; ok {
		return c, nil
	}
	return store.Column{}, sql.ErrNoRows
}

func (m *memStore) ListColumns(_ context.Context, boardID string) ([]store.Column, error) {
	out := make([]store.Column, 0)
	for _, c := range m.columns {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) UpdateColumnName(_ context.Context, id, name string) error {
	c := m.columns[id]
	c.Name = name
	m.columns[id] = c
	return nil
}

func (m *memStore) UpdateColumnPosition(_ context.Context, id, pos string) error {
	c := m.columns[id]
	c.Position = pos
	m.columns[id] = c
	return nil
}

func (m *memStore) DeleteColumn(_ context.Context, id string) error {
	delete(m.columns, id)
	return nil
}

func (m *memStore) LastColumnPosition(ctx context.Context, boardID string) (string, error) {
	cols, _ := m.ListColumns(ctx, boardID)
	if len(cols) == 0 {
		return "", nil
	}
	return cols[len(cols)-1].Position, nil
}

func (m *memStore) NextColumnPosition(ctx context.Context, boardID, pos string) (string, error) {
	cols, _ := m.ListColumns(ctx, boardID)
	for _, c := range cols {
		if c.Position > pos {
			return c.Position, nil
		}
	}
	return "", nil
}

func (m *memStore) PrevColumnPosition(ctx context.Context, boardID, pos string) (string, error) {
	cols, _ := m.ListColumns(ctx, boardID)
	prev := ""
	for _, c := range cols {
		if c.Position < pos {
			prev = c.Position
		}
	}
	return prev, nil
}

func (m *memStore) InsertSwimlane(_ context.Context, l store.Swimlane) error {
	m.swimlanes[l.ID] = l
	return nil
}

func (m *memStore) GetSwimlane(_ context.Context, id string) (store.Swimlane, error) {
	if l, ok := m.swimlanes[id]; ok {
		return l, nil
	}
	return store.Swimlane{}, sql.ErrNoRows
}

func (m *memStore) ListSwimlanes(_ context.Context, boardID string) ([]store.Swimlane, error) {
	out := make([]store.Swimlane, 0)
	for _, l := range m.swimlanes {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) UpdateSwimlaneName(_ context.Context, id, name string) error {
	l := m.swimlanes[id]
	l.Name = name
	m.swimlanes[id] = l
	return nil
}

func (m *memStore) UpdateSwimlanePosition(_ context.Context, id, pos string) error {
	l := m.swimlanes[id]
	l.Position = pos
	m.swimlanes[id] = l
	return nil
}

func (m *memStore) DeleteSwimlane(_ context.Context, id string) error {
	delete(m.swimlanes, id)
	return nil
}

func (m *memStore) LastSwimlanePosition(ctx context.Context, boardID string) (string, error) {
	lanes, _ := m.ListSwimlanes(ctx, boardID)
	if len(lanes) == 0 {
		return "", nil
	}
	return lanes[len(lanes)-1].Position, nil
}

func (m *memStore) NextSwimlanePosition(ctx context.Context, boardID, pos string) (string, error) {
	lanes, _ := m.ListSwimlanes(ctx, boardID)
	for _, l := range lanes {
		if l.Position > pos {
			return l.Position, nil
		}
	}
	return "", nil
}

func (m *memStore) PrevSwimlanePosition(ctx context.Context, boardID, pos string) (string, error) {
	lanes, _ := m.ListSwimlanes(ctx, boardID)
	prev := ""
	for _, l := range lanes {
		if l.Position < pos {
			prev = l.Position
		}
	}
	return prev, nil
}

func (m *memStore) InsertCard(_ context.Context, c store.Card) error {
	m.cards[c.ID] = c
	return nil
}

func (m *memStore) GetCard(_ context.Context, id string) (store.Card, error) {
	if c, ok := m.cards[id]; ok {
		return c, nil
	}
	return store.Card{}, sql.ErrNoRows
}

func (m *memStore) ListCards(_ context.Context, boardID string) ([]store.Card, error) {
	out := make([]store.Card, 0)
	for _, c := range m.cards {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) UpdateCardState(_ context.Context, id, title, description string) error {
	c := m.cards[id]
	c.Title = title
	c.Description = description
	m.cards[id] = c
	return nil
}

func (m *memStore) UpdateCardCell(_ context.Context, id, columnID, swimlaneID, pos string) error {
	c := m.cards[id]
	c.ColumnID = columnID
	c.SwimlaneID = swimlaneID
	c.Position = pos
	m.cards[id] = c
	return nil
}

func (m *memStore) DeleteCard(_ context.Context, id string) error {
	delete(m.cards, id)
	return nil
}

func (m *memStore) cellCards(columnID, swimlaneID string) []store.Card {
	out := make([]store.Card, 0)
	for _, c := range m.cards {
		if c.ColumnID == columnID && c.SwimlaneID == swimlaneID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memStore) LastCardPosition(_ context.Context, columnID, swimlaneID string) (string, error) {
	cards := m.cellCards(columnID, swimlaneID)
	if len(cards) == 0 {
		return "", nil
	}
	return cards[len(cards)-1].Position, nil
}

func (m *memStore) NextCardPosition(_ context.Context, columnID, swimlaneID, pos string) (string, error) {
	for _, c := range m.cellCards(columnID, swimlaneID) {
		if c.Position > pos {
			return c.Position, nil
		}
	}
	return "", nil
}

func (m *memStore) PrevCardPosition(_ context.Context, columnID, swimlaneID, pos string) (string, error) {
	prev := ""
	for _, c := range m.cellCards(columnID, swimlaneID) {
		if c.Position < pos {
			prev = c.Position
		}
	}
	return prev, nil
}

func (m *memStore) SearchCards(_ context.Context, boardID, query string, limit int) ([]store.Card, error) {
	out := make([]store.Card, 0)
	for _, c := range m.cards {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) InsertComment(_ context.Context, c store.Comment) error {
	m.comments[c.ID] = c
	return nil
}

func (m *memStore) GetComment(_ context.Context, id string) (store.Comment, error) {
	if c, ok := m.comments[id]; ok {
		return c, nil
	}
	return store.Comment{}, sql.ErrNoRows
}

func (m *memStore) ListComments(_ context.Context, cardID string) ([]store.Comment, error) {
	out := make([]store.Comment, 0)
	for _, c := range m.comments {
		if c.CardID == cardID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateCommentBody(_ context.Context, id, body string) error {
	c := m.comments[id]
	c.Body = body
	m.comments[id] = c
	return nil
}

func (m *memStore) DeleteComment(_ context.Context, id string) error {
	delete(m.comments, id)
	return nil
}

func (m *memStore) InsertLabel(_ context.Context, l store.Label) error {
	m.labels[l.ID] = l
	return nil
}

func (m *memStore) GetLabel(_ context.Context, id string) (store.Label, error) {
	if l, ok := m.labels[id]; ok {
		return l, nil
	}
	return store.Label{}, sql.ErrNoRows
}

func (m *memStore) ListLabels(_ context.Context, boardID string) ([]store.Label, error) {
	out := make([]store.Label, 0)
	for _, l := range m.labels {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) UpdateLabel(_ context.Context, id, name, color string) error {
	l := m.labels[id]
	l.Name = name
	l.Color = color
	m.labels[id] = l
	return nil
}

func (m *memStore) DeleteLabel(_ context.Context, id string) error {
	delete(m.labels, id)
	return nil
}

func (m *memStore) AddCardLabel(_ context.Context, cardID, labelID string) error {
	if m.cardLabels[cardID] == nil {
		m.cardLabels[cardID] = make(map[string]bool)
	}
	m.cardLabels[cardID][labelID] = true
	return nil
}

func (m *memStore) RemoveCardLabel(_ context.Context, cardID, labelID string) error {
	delete(m.cardLabels[cardID], labelID)
	return nil
}

func (m *memStore) AddCardAssignee(_ context.Context, cardID, userID string) error {
	if m.assignees[cardID] == nil {
		m.assignees[cardID] = make(map[string]bool)
	}
	m.assignees[cardID][userID] = true
	return nil
}

func (m *memStore) RemoveCardAssignee(_ context.Context, cardID, userID string) error {
	delete(m.assignees[cardID], userID)
	return nil
}

func (m *memStore) InsertAttachment(_ context.Context, a store.Attachment) error {
	m.attachments[a.ID] = a
	return nil
}

func (m *memStore) GetAttachment(_ context.Context, id string) (store.Attachment, error) {
	if a, ok := m.attachments[id]; ok {
		return a, nil
	}
	return store.Attachment{}, sql.ErrNoRows
}

func (m *memStore) ListAttachments(_ context.Context, cardID string) ([]store.Attachment, error) {
	out := make([]store.Attachment, 0)
	for _, a := range m.attachments {
		if a.CardID == cardID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpdateAttachmentFilename(_ context.Context, id, filename string) error {
	a := m.attachments[id]
	a.Filename = filename
	m.attachments[id] = a
	return nil
}

func (m *memStore) DeleteAttachment(_ context.Context, id string) error {
	delete(m.attachments, id)
	return nil
}

func (m *memStore) InsertActivity(_ context.Context, a store.Activity) error {
	m.activities = append(m.activities, a)
	return nil
}

func (m *memStore) ListActivities(_ context.Context, boardID string, limit int) ([]store.Activity, error) {
	out := make([]store.Activity, 0)
	for i := len(m.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if m.activities[i].BoardID == boardID {
			out = append(out, m.activities[i])
		}
	}
	return out, nil
}

func (m *memStore) InsertNotification(_ context.Context, n store.Notification) error {
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]store.Notification, error) {
	out := make([]store.Notification, 0)
	for _, n := range m.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, notificationID, recipientID string) error {
	now := time.Now()
	for i, n := range m.notifications {
		if n.ID == notificationID && n.RecipientID == recipientID {
			m.notifications[i].ReadAt = &now
		}
	}
	return nil
}

// ── Helpers ──

func newTestService() (*Service, *memStore, *realtime.Hub) {
	st := newMemStore()
	hub := realtime.NewHub()
	svc := &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		store:     st,
		sessions:  st,
		hub:       hub,
		passwords: authpw.NewService(st),
	}
	return svc, st, hub
}

func seedUser(st *memStore, id, name string) Session {
	st.users[id] = store.User{ID: id, Email: id + "@example.com", DisplayName: name}
	return Session{UserID: id, UserName: name}
}

func seedBoard(t *testing.T, svc *Service, sess Session) store.Board {
	t.Helper()
	board, err := svc.CreateBoard(context.Background(), sess, "Release Train")
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	return board
}

func drain(c *realtime.Client) []event.Envelope {
	var out []event.Envelope
	for {
		select {
		case env := <-c.Events():
			out = append(out, env)
		default:
			return out
		}
	}
}

func containsEvent(envs []event.Envelope, name string) bool {
	for _, env := range envs {
		if env.Name == name {
			return true
		}
	}
	return false
}

// ── Tests ──

func TestCreateBoardGrantsAdmin(t *testing.T) {
	svc, st, _ := newTestService()
	sess := seedUser(st, "user-1", "Ann")

	board := seedBoard(t, svc, sess)

	level, _ := st.GetBoardLevel(context.Background(), board.ID, "user-1")
	if level != "admin" {
		t.Errorf("expected creator to be admin, got %q", level)
	}
}

func TestCreateColumnAppendsInOrder(t *testing.T) {
	svc, st, _ := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	first, err := svc.CreateColumn(ctx, sess, board.ID, "Todo", "")
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}
	second, err := svc.CreateColumn(ctx, sess, board.ID, "Doing", "")
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}
	if !(first.Position < second.Position) {
		t.Errorf("expected %q < %q", first.Position, second.Position)
	}
}

func TestCreateColumnRequiresEditor(t *testing.T) {
	svc, st, _ := newTestService()
	admin := seedUser(st, "user-1", "Ann")
	viewer := seedUser(st, "user-2", "Bea")
	board := seedBoard(t, svc, admin)
	ctx := context.Background()

	_ = st.InsertMembership(ctx, store.BoardMembership{BoardID: board.ID, UserID: "user-2", Level: "viewer"})

	_, err := svc.CreateColumn(ctx, viewer, board.ID, "Todo", "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}

	// Non-members are denied too.
	outsider := seedUser(st, "user-3", "Cal")
	_, err = svc.CreateColumn(ctx, outsider, board.ID, "Todo", "")
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN for non-member, got %v", err)
	}
}

func TestMoveColumnBetweenNeighbors(t *testing.T) {
	svc, st, _ := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	a, _ := svc.CreateColumn(ctx, sess, board.ID, "A", "")
	b, _ := svc.CreateColumn(ctx, sess, board.ID, "B", "")
	c, _ := svc.CreateColumn(ctx, sess, board.ID, "C", "")

	moved, err := svc.MoveColumn(ctx, sess, c.ID, a.ID, "", "")
	if err != nil {
		t.Fatalf("MoveColumn failed: %v", err)
	}
	if !(a.Position < moved.Position && moved.Position < b.Position) {
		t.Errorf("expected %q < %q < %q", a.Position, moved.Position, b.Position)
	}

	cols, _ := st.ListColumns(ctx, board.ID)
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	want := []string{"A", "C", "B"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
}

func TestMoveColumnBeforeFirst(t *testing.T) {
	svc, st, _ := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	a, _ := svc.CreateColumn(ctx, sess, board.ID, "A", "")
	b, _ := svc.CreateColumn(ctx, sess, board.ID, "B", "")

	moved, err := svc.MoveColumn(ctx, sess, b.ID, "", a.ID, "")
	if err != nil {
		t.Fatalf("MoveColumn failed: %v", err)
	}
	if !(moved.Position < a.Position) {
		t.Errorf("expected %q < %q", moved.Position, a.Position)
	}
}

func TestMoveCardAcrossCells(t *testing.T) {
	svc, st, _ := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	todo, _ := svc.CreateColumn(ctx, sess, board.ID, "Todo", "")
	doing, _ := svc.CreateColumn(ctx, sess, board.ID, "Doing", "")
	lane, _ := svc.CreateSwimlane(ctx, sess, board.ID, "Default", "")

	card, err := svc.CreateCard(ctx, sess, board.ID, todo.ID, lane.ID, "Ship it", "", "")
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}
	anchor, _ := svc.CreateCard(ctx, sess, board.ID, doing.ID, lane.ID, "In flight", "", "")

	moved, err := svc.MoveCard(ctx, sess, card.ID, doing.ID, lane.ID, anchor.ID, "", "")
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}
	if moved.ColumnID != doing.ID {
		t.Errorf("expected card in column %s, got %s", doing.ID, moved.ColumnID)
	}
	if !(anchor.Position < moved.Position) {
		t.Errorf("expected %q < %q", anchor.Position, moved.Position)
	}

	got, _ := st.GetCard(ctx, card.ID)
	if got.ColumnID != doing.ID || got.Position != moved.Position {
		t.Errorf("persisted card out of sync: %+v", got)
	}
}

func TestMoveCardRejectsAnchorInOtherCell(t *testing.T) {
	svc, st, _ := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	todo, _ := svc.CreateColumn(ctx, sess, board.ID, "Todo", "")
	doing, _ := svc.CreateColumn(ctx, sess, board.ID, "Doing", "")
	lane, _ := svc.CreateSwimlane(ctx, sess, board.ID, "Default", "")

	card, _ := svc.CreateCard(ctx, sess, board.ID, todo.ID, lane.ID, "One", "", "")
	anchor, _ := svc.CreateCard(ctx, sess, board.ID, doing.ID, lane.ID, "Two", "", "")

	// Anchor lives in Doing but the move keeps the card in Todo.
	_, err := svc.MoveCard(ctx, sess, card.ID, "", "", anchor.ID, "", "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestColumnCreateBroadcastSkipsOrigin(t *testing.T) {
	svc, st, hub := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	origin := hub.Register("user-1")
	other := hub.Register("user-2")
	hub.JoinBoard(origin, board.ID)
	hub.JoinBoard(other, board.ID)

	_, err := svc.CreateColumn(ctx, sess, board.ID, "Todo", origin.ID)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	if containsEvent(drain(origin), event.ColumnCreate) {
		t.Error("origin connection received its own columnCreate echo")
	}
	if !containsEvent(drain(other), event.ColumnCreate) {
		t.Error("other connection did not receive columnCreate")
	}
}

func TestCommentNotifiesCardCreator(t *testing.T) {
	svc, st, hub := newTestService()
	ann := seedUser(st, "user-1", "Ann")
	bea := seedUser(st, "user-2", "Bea")
	board := seedBoard(t, svc, ann)
	ctx := context.Background()

	_ = st.InsertMembership(ctx, store.BoardMembership{BoardID: board.ID, UserID: "user-2", Level: "editor"})
	column, _ := svc.CreateColumn(ctx, ann, board.ID, "Todo", "")
	lane, _ := svc.CreateSwimlane(ctx, ann, board.ID, "Default", "")
	card, _ := svc.CreateCard(ctx, ann, board.ID, column.ID, lane.ID, "Ship it", "", "")

	annConn := hub.Register("user-1")

	_, err := svc.CreateComment(ctx, bea, card.ID, "On it", "")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	if !containsEvent(drain(annConn), event.Notify) {
		t.Error("card creator did not receive notify event")
	}
	notifications, _ := st.ListNotifications(ctx, "user-1", true, 10)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Kind != "comment" {
		t.Errorf("expected comment notification, got %q", notifications[0].Kind)
	}
}

func TestCommentEditOnlyAuthorOrAdmin(t *testing.T) {
	svc, st, _ := newTestService()
	admin := seedUser(st, "user-1", "Ann")
	author := seedUser(st, "user-2", "Bea")
	other := seedUser(st, "user-3", "Cal")
	board := seedBoard(t, svc, admin)
	ctx := context.Background()

	_ = st.InsertMembership(ctx, store.BoardMembership{BoardID: board.ID, UserID: "user-2", Level: "editor"})
	_ = st.InsertMembership(ctx, store.BoardMembership{BoardID: board.ID, UserID: "user-3", Level: "editor"})

	column, _ := svc.CreateColumn(ctx, admin, board.ID, "Todo", "")
	lane, _ := svc.CreateSwimlane(ctx, admin, board.ID, "Default", "")
	card, _ := svc.CreateCard(ctx, admin, board.ID, column.ID, lane.ID, "Ship it", "", "")
	comment, _ := svc.CreateComment(ctx, author, card.ID, "draft", "")

	if _, err := svc.UpdateComment(ctx, author, comment.ID, "edited", ""); err != nil {
		t.Errorf("author edit failed: %v", err)
	}
	if _, err := svc.UpdateComment(ctx, admin, comment.ID, "moderated", ""); err != nil {
		t.Errorf("admin edit failed: %v", err)
	}
	_, err := svc.UpdateComment(ctx, other, comment.ID, "hijacked", "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN for non-author editor, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, st, _ := newTestService()
	st.users["user-1"] = store.User{ID: "user-1", Email: "ann@example.com", DisplayName: "Ann"}
	ctx := context.Background()

	sess, err := svc.issueSession(ctx, st.users["user-1"])
	if err != nil {
		t.Fatalf("issueSession failed: %v", err)
	}

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if next.RefreshToken == sess.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The old token is single-use.
	if _, err := svc.Refresh(ctx, sess.RefreshToken); err == nil {
		t.Error("expected error reusing revoked refresh token")
	}
}

func TestSessionFromTokenRoundTrip(t *testing.T) {
	svc, st, _ := newTestService()
	st.users["user-1"] = store.User{ID: "user-1", Email: "ann@example.com", DisplayName: "Ann"}
	ctx := context.Background()

	issued, err := svc.issueSession(ctx, st.users["user-1"])
	if err != nil {
		t.Fatalf("issueSession failed: %v", err)
	}

	sess, err := svc.SessionFromToken(ctx, issued.Token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	if sess.UserID != "user-1" || sess.UserName != "Ann" {
		t.Errorf("unexpected session: %+v", sess)
	}

	if _, err := svc.SessionFromToken(ctx, issued.Token+"x"); err == nil {
		t.Error("expected error for tampered token")
	}

	if actor, err := svc.ActorFromToken(ctx, issued.Token); err != nil || actor != "user-1" {
		t.Errorf("ActorFromToken = %q, %v", actor, err)
	}
}

func TestAddMemberNotifiesUser(t *testing.T) {
	svc, st, hub := newTestService()
	admin := seedUser(st, "user-1", "Ann")
	seedUser(st, "user-2", "Bea")
	board := seedBoard(t, svc, admin)
	ctx := context.Background()

	beaConn := hub.Register("user-2")

	membership, err := svc.AddMember(ctx, admin, board.ID, "user-2@example.com", "editor")
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if membership.Level != "editor" {
		t.Errorf("expected editor membership, got %q", membership.Level)
	}
	if !containsEvent(drain(beaConn), event.Notify) {
		t.Error("invited user did not receive notify event")
	}
}

func TestDeleteColumnBroadcasts(t *testing.T) {
	svc, st, hub := newTestService()
	sess := seedUser(st, "user-1", "Ann")
	board := seedBoard(t, svc, sess)
	ctx := context.Background()

	column, _ := svc.CreateColumn(ctx, sess, board.ID, "Todo", "")

	watcher := hub.Register("user-1")
	hub.JoinBoard(watcher, board.ID)

	if err := svc.DeleteColumn(ctx, sess, column.ID, ""); err != nil {
		t.Fatalf("DeleteColumn failed: %v", err)
	}
	if !containsEvent(drain(watcher), event.ColumnDelete) {
		t.Error("watcher did not receive columnDelete")
	}
}
