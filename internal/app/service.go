package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"corkboard/internal/access"
	"corkboard/internal/auth"
	"corkboard/internal/authpw"
	"corkboard/internal/blob"
	"corkboard/internal/config"
	"corkboard/internal/event"
	"corkboard/internal/position"
	"corkboard/internal/realtime"
	"corkboard/internal/search"
	"corkboard/internal/session"
	"corkboard/internal/store"
	"corkboard/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

// BoardSnapshot is the full board state a client renders from, fetched
// once on board open and then kept current via socket events.
type BoardSnapshot struct {
	Board     store.Board      `json:"board"`
	Columns   []store.Column   `json:"columns"`
	Swimlanes []store.Swimlane `json:"swimlanes"`
	Cards     []store.Card     `json:"cards"`
	Labels    []store.Label    `json:"labels"`
}

type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)

	InsertBoard(ctx context.Context, board store.Board) error
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	ListBoardsForUser(ctx context.Context, userID string) ([]store.Board, error)
	InsertMembership(ctx context.Context, m store.BoardMembership) error
	GetBoardLevel(ctx context.Context, boardID, userID string) (string, error)

	InsertColumn(ctx context.Context, column store.Column) error
	GetColumn(ctx context.Context, columnID string) (store.Column, error)
	ListColumns(ctx context.Context, boardID string) ([]store.Column, error)
	UpdateColumnName(ctx context.Context, columnID, name string) error
	UpdateColumnPosition(ctx context.Context, columnID, pos string) error
	DeleteColumn(ctx context.Context, columnID string) error
	LastColumnPosition(ctx context.Context, boardID string) (string, error)
	NextColumnPosition(ctx context.Context, boardID, pos string) (string, error)
	PrevColumnPosition(ctx context.Context, boardID, pos string) (string, error)

	InsertSwimlane(ctx context.Context, lane store.Swimlane) error
	GetSwimlane(ctx context.Context, laneID string) (store.Swimlane, error)
	ListSwimlanes(ctx context.Context, boardID string) ([]store.Swimlane, error)
	UpdateSwimlaneName(ctx context.Context, laneID, name string) error
	UpdateSwimlanePosition(ctx context.Context, laneID, pos string) error
	DeleteSwimlane(ctx context.Context, laneID string) error
	LastSwimlanePosition(ctx context.Context, boardID string) (string, error)
	NextSwimlanePosition(ctx context.Context, boardID, pos string) (string, error)
	PrevSwimlanePosition(ctx context.Context, boardID, pos string) (string, error)

	InsertCard(ctx context.Context, card store.Card) error
	GetCard(ctx context.Context, cardID string) (store.Card, error)
	ListCards(ctx context.Context, boardID string) ([]store.Card, error)
	UpdateCardState(ctx context.Context, cardID, title, description string) error
	UpdateCardCell(ctx context.Context, cardID, columnID, swimlaneID, pos string) error
	DeleteCard(ctx context.Context, cardID string) error
	LastCardPosition(ctx context.Context, columnID, swimlaneID string) (string, error)
	NextCardPosition(ctx context.Context, columnID, swimlaneID, pos string) (string, error)
	PrevCardPosition(ctx context.Context, columnID, swimlaneID, pos string) (string, error)
	SearchCards(ctx context.Context, boardID, query string, limit int) ([]store.Card, error)

	InsertComment(ctx context.Context, comment store.Comment) error
	GetComment(ctx context.Context, commentID string) (store.Comment, error)
	ListComments(ctx context.Context, cardID string) ([]store.Comment, error)
	UpdateCommentBody(ctx context.Context, commentID, body string) error
	DeleteComment(ctx context.Context, commentID string) error

	InsertLabel(ctx context.Context, label store.Label) error
	GetLabel(ctx context.Context, labelID string) (store.Label, error)
	ListLabels(ctx context.Context, boardID string) ([]store.Label, error)
	UpdateLabel(ctx context.Context, labelID, name, color string) error
	DeleteLabel(ctx context.Context, labelID string) error

	AddCardLabel(ctx context.Context, cardID, labelID string) error
	RemoveCardLabel(ctx context.Context, cardID, labelID string) error
	AddCardAssignee(ctx context.Context, cardID, userID string) error
	RemoveCardAssignee(ctx context.Context, cardID, userID string) error

	InsertAttachment(ctx context.Context, att store.Attachment) error
	GetAttachment(ctx context.Context, attachmentID string) (store.Attachment, error)
	ListAttachments(ctx context.Context, cardID string) ([]store.Attachment, error)
	UpdateAttachmentFilename(ctx context.Context, attachmentID, filename string) error
	DeleteAttachment(ctx context.Context, attachmentID string) error

	InsertActivity(ctx context.Context, activity store.Activity) error
	ListActivities(ctx context.Context, boardID string, limit int) ([]store.Activity, error)

	InsertNotification(ctx context.Context, n store.Notification) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]store.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, recipientID string) error
}

// blobStore is the attachment payload contract; *blob.Store implements it.
type blobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedGet(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  session.Store
	hub       *realtime.Hub
	passwords *authpw.Service
	search    *search.Service
	blobs     blobStore
}

// New wires the service against Postgres. Refresh sessions default to the
// Postgres store; UseSessionStore swaps in Redis when configured.
func New(cfg config.Config, st *store.PostgresStore, hub *realtime.Hub) *Service {
	return &Service{
		cfg:       cfg,
		store:     st,
		sessions:  st,
		hub:       hub,
		passwords: authpw.NewService(st),
	}
}

func (s *Service) UseSessionStore(sessions session.Store) {
	s.sessions = sessions
}

func (s *Service) UseSearch(searchSvc *search.Service) {
	s.search = searchSvc
}

func (s *Service) UseBlobStore(blobs blobStore) {
	s.blobs = blobs
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// DroppedEvents reports socket deliveries lost since startup.
func (s *Service) DroppedEvents() int64 {
	if s.hub == nil {
		return 0
	}
	return s.hub.Dropped()
}

// ── Sessions ──

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.passwords.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Session{}, domainError(http.StatusBadRequest, "SIGNUP_FAILED", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.RandomHex(32)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// ActorFromToken implements the socket handshake check. It only verifies
// the token; membership is checked per board join via the access gate.
func (s *Service) ActorFromToken(_ context.Context, token string) (string, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return "", err
	}
	return claims.Sub, nil
}

func (s *Service) ChangePassword(ctx context.Context, sess Session, current, next string) error {
	if err := s.passwords.ChangePassword(ctx, sess.UserID, current, next); err != nil {
		return domainError(http.StatusBadRequest, "PASSWORD_CHANGE_FAILED", err.Error(), nil)
	}
	return nil
}

// ── Access gate ──

// Can implements access.Gate against the membership table.
func (s *Service) Can(ctx context.Context, boardID, userID string, required access.Level) (bool, error) {
	level, err := s.store.GetBoardLevel(ctx, boardID, userID)
	if err != nil {
		return false, err
	}
	if level == "" {
		return false, nil
	}
	return access.Allows(access.Normalize(level), required), nil
}

func (s *Service) requireLevel(ctx context.Context, boardID, userID string, required access.Level) error {
	ok, err := s.Can(ctx, boardID, userID, required)
	if err != nil {
		return err
	}
	if !ok {
		return errForbidden()
	}
	return nil
}

// ── Boards ──

func (s *Service) CreateBoard(ctx context.Context, sess Session, name string) (store.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Board{}, errValidation("name is required")
	}

	board := store.Board{
		ID:        util.NewID("board"),
		Name:      name,
		CreatedBy: sess.UserID,
	}
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	if err := s.store.InsertMembership(ctx, store.BoardMembership{
		ID:      util.NewID("mbr"),
		BoardID: board.ID,
		UserID:  sess.UserID,
		Level:   string(access.LevelAdmin),
	}); err != nil {
		return store.Board{}, err
	}
	s.recordActivity(ctx, board.ID, sess.UserID, "created", "board", board.ID, name)
	return board, nil
}

func (s *Service) ListBoards(ctx context.Context, sess Session) ([]store.Board, error) {
	return s.store.ListBoardsForUser(ctx, sess.UserID)
}

func (s *Service) GetBoardSnapshot(ctx context.Context, sess Session, boardID string) (BoardSnapshot, error) {
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelViewer); err != nil {
		return BoardSnapshot{}, err
	}
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return BoardSnapshot{}, err
	}
	columns, err := s.store.ListColumns(ctx, boardID)
	if err != nil {
		return BoardSnapshot{}, err
	}
	swimlanes, err := s.store.ListSwimlanes(ctx, boardID)
	if err != nil {
		return BoardSnapshot{}, err
	}
	cards, err := s.store.ListCards(ctx, boardID)
	if err != nil {
		return BoardSnapshot{}, err
	}
	labels, err := s.store.ListLabels(ctx, boardID)
	if err != nil {
		return BoardSnapshot{}, err
	}
	return BoardSnapshot{
		Board:     board,
		Columns:   columns,
		Swimlanes: swimlanes,
		Cards:     cards,
		Labels:    labels,
	}, nil
}

func (s *Service) AddMember(ctx context.Context, sess Session, boardID, email, level string) (store.BoardMembership, error) {
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelAdmin); err != nil {
		return store.BoardMembership{}, err
	}
	normalized := access.Normalize(level)
	if level != "" && string(normalized) != level {
		return store.BoardMembership{}, errValidation("level must be viewer, editor, or admin")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.BoardMembership{}, errNotFound("no user with that email")
	}

	membership := store.BoardMembership{
		ID:      util.NewID("mbr"),
		BoardID: boardID,
		UserID:  user.ID,
		Level:   string(normalized),
	}
	if err := s.store.InsertMembership(ctx, membership); err != nil {
		return store.BoardMembership{}, err
	}

	board, err := s.store.GetBoard(ctx, boardID)
	if err == nil {
		s.notify(ctx, user.ID, boardID, "", "board-invite", sess.UserName+" added you to "+board.Name)
	}
	return membership, nil
}

// ── Columns ──

func (s *Service) CreateColumn(ctx context.Context, sess Session, boardID, name, originConnID string) (store.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Column{}, errValidation("name is required")
	}
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Column{}, err
	}

	last, err := s.store.LastColumnPosition(ctx, boardID)
	if err != nil {
		return store.Column{}, err
	}
	column := store.Column{
		ID:       util.NewID("col"),
		BoardID:  boardID,
		Name:     name,
		Position: position.After(last),
	}
	if err := s.store.InsertColumn(ctx, column); err != nil {
		return store.Column{}, err
	}

	s.recordActivity(ctx, boardID, sess.UserID, "created", "column", column.ID, name)
	s.broadcast(boardID, event.ColumnCreate, event.ColumnPayload{
		BoardID:  boardID,
		ColumnID: column.ID,
		Name:     column.Name,
		Position: column.Position,
	}, originConnID)
	return column, nil
}

func (s *Service) RenameColumn(ctx context.Context, sess Session, columnID, name, originConnID string) (store.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Column{}, errValidation("name is required")
	}
	column, err := s.store.GetColumn(ctx, columnID)
	if err != nil {
		return store.Column{}, err
	}
	if err := s.requireLevel(ctx, column.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Column{}, err
	}
	if err := s.store.UpdateColumnName(ctx, columnID, name); err != nil {
		return store.Column{}, err
	}
	column.Name = name

	s.recordActivity(ctx, column.BoardID, sess.UserID, "renamed", "column", column.ID, name)
	s.broadcast(column.BoardID, event.ColumnUpdate, event.ColumnPayload{
		BoardID:  column.BoardID,
		ColumnID: column.ID,
		Name:     name,
	}, originConnID)
	return column, nil
}

func (s *Service) MoveColumn(ctx context.Context, sess Session, columnID, afterID, beforeID, originConnID string) (store.Column, error) {
	column, err := s.store.GetColumn(ctx, columnID)
	if err != nil {
		return store.Column{}, err
	}
	if err := s.requireLevel(ctx, column.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Column{}, err
	}

	pos, err := s.columnTargetPosition(ctx, column.BoardID, afterID, beforeID)
	if err != nil {
		return store.Column{}, err
	}
	if err := s.store.UpdateColumnPosition(ctx, columnID, pos); err != nil {
		return store.Column{}, err
	}
	column.Position = pos

	s.recordActivity(ctx, column.BoardID, sess.UserID, "moved", "column", column.ID, column.Name)
	s.broadcast(column.BoardID, event.ColumnMove, event.ColumnPayload{
		BoardID:  column.BoardID,
		ColumnID: column.ID,
		Position: pos,
	}, originConnID)
	return column, nil
}

func (s *Service) DeleteColumn(ctx context.Context, sess Session, columnID, originConnID string) error {
	column, err := s.store.GetColumn(ctx, columnID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, column.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.DeleteColumn(ctx, columnID); err != nil {
		return err
	}

	s.recordActivity(ctx, column.BoardID, sess.UserID, "deleted", "column", column.ID, column.Name)
	s.broadcast(column.BoardID, event.ColumnDelete, event.ColumnPayload{
		BoardID:  column.BoardID,
		ColumnID: column.ID,
	}, originConnID)
	return nil
}

// columnTargetPosition resolves a move request into a fresh position key.
// Exactly one anchor may be given; with none the column goes to the end.
func (s *Service) columnTargetPosition(ctx context.Context, boardID, afterID, beforeID string) (string, error) {
	switch {
	case afterID != "":
		anchor, err := s.store.GetColumn(ctx, afterID)
		if err != nil {
			return "", err
		}
		if anchor.BoardID != boardID {
			return "", errValidation("anchor column is on another board")
		}
		next, err := s.store.NextColumnPosition(ctx, boardID, anchor.Position)
		if err != nil {
			return "", err
		}
		return position.Between(anchor.Position, next), nil
	case beforeID != "":
		anchor, err := s.store.GetColumn(ctx, beforeID)
		if err != nil {
			return "", err
		}
		if anchor.BoardID != boardID {
			return "", errValidation("anchor column is on another board")
		}
		prev, err := s.store.PrevColumnPosition(ctx, boardID, anchor.Position)
		if err != nil {
			return "", err
		}
		return position.Between(prev, anchor.Position), nil
	default:
		last, err := s.store.LastColumnPosition(ctx, boardID)
		if err != nil {
			return "", err
		}
		return position.After(last), nil
	}
}

// ── Swimlanes ──

func (s *Service) CreateSwimlane(ctx context.Context, sess Session, boardID, name, originConnID string) (store.Swimlane, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Swimlane{}, errValidation("name is required")
	}
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Swimlane{}, err
	}

	last, err := s.store.LastSwimlanePosition(ctx, boardID)
	if err != nil {
		return store.Swimlane{}, err
	}
	lane := store.Swimlane{
		ID:       util.NewID("lane"),
		BoardID:  boardID,
		Name:     name,
		Position: position.After(last),
	}
	if err := s.store.InsertSwimlane(ctx, lane); err != nil {
		return store.Swimlane{}, err
	}

	s.recordActivity(ctx, boardID, sess.UserID, "created", "swimlane", lane.ID, name)
	s.broadcast(boardID, event.SwimlaneCreate, event.SwimlanePayload{
		BoardID:    boardID,
		SwimlaneID: lane.ID,
		Name:       lane.Name,
		Position:   lane.Position,
	}, originConnID)
	return lane, nil
}

func (s *Service) RenameSwimlane(ctx context.Context, sess Session, laneID, name, originConnID string) (store.Swimlane, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Swimlane{}, errValidation("name is required")
	}
	lane, err := s.store.GetSwimlane(ctx, laneID)
	if err != nil {
		return store.Swimlane{}, err
	}
	if err := s.requireLevel(ctx, lane.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Swimlane{}, err
	}
	if err := s.store.UpdateSwimlaneName(ctx, laneID, name); err != nil {
		return store.Swimlane{}, err
	}
	lane.Name = name

	s.recordActivity(ctx, lane.BoardID, sess.UserID, "renamed", "swimlane", lane.ID, name)
	s.broadcast(lane.BoardID, event.SwimlaneUpdate, event.SwimlanePayload{
		BoardID:    lane.BoardID,
		SwimlaneID: lane.ID,
		Name:       name,
	}, originConnID)
	return lane, nil
}

func (s *Service) MoveSwimlane(ctx context.Context, sess Session, laneID, afterID, beforeID, originConnID string) (store.Swimlane, error) {
	lane, err := s.store.GetSwimlane(ctx, laneID)
	if err != nil {
		return store.Swimlane{}, err
	}
	if err := s.requireLevel(ctx, lane.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Swimlane{}, err
	}

	pos, err := s.swimlaneTargetPosition(ctx, lane.BoardID, afterID, beforeID)
	if err != nil {
		return store.Swimlane{}, err
	}
	if err := s.store.UpdateSwimlanePosition(ctx, laneID, pos); err != nil {
		return store.Swimlane{}, err
	}
	lane.Position = pos

	s.recordActivity(ctx, lane.BoardID, sess.UserID, "moved", "swimlane", lane.ID, lane.Name)
	s.broadcast(lane.BoardID, event.SwimlaneMove, event.SwimlanePayload{
		BoardID:    lane.BoardID,
		SwimlaneID: lane.ID,
		Position:   pos,
	}, originConnID)
	return lane, nil
}

func (s *Service) DeleteSwimlane(ctx context.Context, sess Session, laneID, originConnID string) error {
	lane, err := s.store.GetSwimlane(ctx, laneID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, lane.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.DeleteSwimlane(ctx, laneID); err != nil {
		return err
	}

	s.recordActivity(ctx, lane.BoardID, sess.UserID, "deleted", "swimlane", lane.ID, lane.Name)
	s.broadcast(lane.BoardID, event.SwimlaneDelete, event.SwimlanePayload{
		BoardID:    lane.BoardID,
		SwimlaneID: lane.ID,
	}, originConnID)
	return nil
}

func (s *Service) swimlaneTargetPosition(ctx context.Context, boardID, afterID, beforeID string) (string, error) {
	switch {
	case afterID != "":
		anchor, err := s.store.GetSwimlane(ctx, afterID)
		if err != nil {
			return "", err
		}
		if anchor.BoardID != boardID {
			return "", errValidation("anchor swimlane is on another board")
		}
		next, err := s.store.NextSwimlanePosition(ctx, boardID, anchor.Position)
		if err != nil {
			return "", err
		}
		return position.Between(anchor.Position, next), nil
	case beforeID != "":
		anchor, err := s.store.GetSwimlane(ctx, beforeID)
		if err != nil {
			return "", err
		}
		if anchor.BoardID != boardID {
			return "", errValidation("anchor swimlane is on another board")
		}
		prev, err := s.store.PrevSwimlanePosition(ctx, boardID, anchor.Position)
		if err != nil {
			return "", err
		}
		return position.Between(prev, anchor.Position), nil
	default:
		last, err := s.store.LastSwimlanePosition(ctx, boardID)
		if err != nil {
			return "", err
		}
		return position.After(last), nil
	}
}

// ── Cards ──

func (s *Service) CreateCard(ctx context.Context, sess Session, boardID, columnID, swimlaneID, title, description, originConnID string) (store.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Card{}, errValidation("title is required")
	}
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Card{}, err
	}

	column, err := s.store.GetColumn(ctx, columnID)
	if err != nil {
		return store.Card{}, err
	}
	lane, err := s.store.GetSwimlane(ctx, swimlaneID)
	if err != nil {
		return store.Card{}, err
	}
	if column.BoardID != boardID || lane.BoardID != boardID {
		return store.Card{}, errValidation("column and swimlane must belong to the board")
	}

	last, err := s.store.LastCardPosition(ctx, columnID, swimlaneID)
	if err != nil {
		return store.Card{}, err
	}
	card := store.Card{
		ID:          util.NewID("card"),
		BoardID:     boardID,
		ColumnID:    columnID,
		SwimlaneID:  swimlaneID,
		Title:       title,
		Description: description,
		Position:    position.After(last),
		CreatedBy:   sess.UserID,
	}
	if err := s.store.InsertCard(ctx, card); err != nil {
		return store.Card{}, err
	}

	s.indexCard(card)
	s.recordActivity(ctx, boardID, sess.UserID, "created", "card", card.ID, title)
	s.broadcast(boardID, event.CardCreate, event.CardPayload{
		BoardID:     boardID,
		CardID:      card.ID,
		ColumnID:    columnID,
		SwimlaneID:  swimlaneID,
		Title:       card.Title,
		Description: card.Description,
		Position:    card.Position,
	}, originConnID)
	return card, nil
}

func (s *Service) UpdateCard(ctx context.Context, sess Session, cardID, title, description, originConnID string) (store.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Card{}, errValidation("title is required")
	}
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Card{}, err
	}
	if err := s.store.UpdateCardState(ctx, cardID, title, description); err != nil {
		return store.Card{}, err
	}
	card.Title = title
	card.Description = description

	s.indexCard(card)
	s.recordActivity(ctx, card.BoardID, sess.UserID, "updated", "card", card.ID, title)
	s.broadcast(card.BoardID, event.CardUpdate, event.CardPayload{
		BoardID:     card.BoardID,
		CardID:      card.ID,
		ColumnID:    card.ColumnID,
		SwimlaneID:  card.SwimlaneID,
		Title:       title,
		Description: description,
	}, originConnID)
	return card, nil
}

// MoveCard moves a card within its cell or to another (column, swimlane)
// cell. Empty columnID/swimlaneID mean "stay where it is".
func (s *Service) MoveCard(ctx context.Context, sess Session, cardID, columnID, swimlaneID, afterID, beforeID, originConnID string) (store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Card{}, err
	}

	if columnID == "" {
		columnID = card.ColumnID
	}
	if swimlaneID == "" {
		swimlaneID = card.SwimlaneID
	}
	if columnID != card.ColumnID {
		column, err := s.store.GetColumn(ctx, columnID)
		if err != nil {
			return store.Card{}, err
		}
		if column.BoardID != card.BoardID {
			return store.Card{}, errValidation("target column is on another board")
		}
	}
	if swimlaneID != card.SwimlaneID {
		lane, err := s.store.GetSwimlane(ctx, swimlaneID)
		if err != nil {
			return store.Card{}, err
		}
		if lane.BoardID != card.BoardID {
			return store.Card{}, errValidation("target swimlane is on another board")
		}
	}

	pos, err := s.cardTargetPosition(ctx, columnID, swimlaneID, afterID, beforeID)
	if err != nil {
		return store.Card{}, err
	}
	if err := s.store.UpdateCardCell(ctx, cardID, columnID, swimlaneID, pos); err != nil {
		return store.Card{}, err
	}
	card.ColumnID = columnID
	card.SwimlaneID = swimlaneID
	card.Position = pos

	s.recordActivity(ctx, card.BoardID, sess.UserID, "moved", "card", card.ID, card.Title)
	s.broadcast(card.BoardID, event.CardMove, event.CardPayload{
		BoardID:    card.BoardID,
		CardID:     card.ID,
		ColumnID:   columnID,
		SwimlaneID: swimlaneID,
		Position:   pos,
	}, originConnID)
	return card, nil
}

func (s *Service) DeleteCard(ctx context.Context, sess Session, cardID, originConnID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}

	attachments, err := s.store.ListAttachments(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	if s.blobs != nil {
		for _, att := range attachments {
			if err := s.blobs.Delete(ctx, att.ObjectKey); err != nil {
				log.Printf("app: delete attachment object %s: %v", att.ObjectKey, err)
			}
		}
	}

	if s.search != nil {
		s.search.DeleteCard(cardID)
	}
	s.recordActivity(ctx, card.BoardID, sess.UserID, "deleted", "card", card.ID, card.Title)
	s.broadcast(card.BoardID, event.CardDelete, event.CardPayload{
		BoardID:    card.BoardID,
		CardID:     card.ID,
		ColumnID:   card.ColumnID,
		SwimlaneID: card.SwimlaneID,
	}, originConnID)
	return nil
}

// cardTargetPosition resolves a move into a key within the target cell.
// Anchors must live in that cell; keys are never compared across cells.
func (s *Service) cardTargetPosition(ctx context.Context, columnID, swimlaneID, afterID, beforeID string) (string, error) {
	switch {
	case afterID != "":
		anchor, err := s.store.GetCard(ctx, afterID)
		if err != nil {
			return "", err
		}
		if anchor.ColumnID != columnID || anchor.SwimlaneID != swimlaneID {
			return "", errValidation("anchor card is in another cell")
		}
		next, err := s.store.NextCardPosition(ctx, columnID, swimlaneID, anchor.Position)
		if err != nil {
			return "", err
		}
		return position.Between(anchor.Position, next), nil
	case beforeID != "":
		anchor, err := s.store.GetCard(ctx, beforeID)
		if err != nil {
			return "", err
		}
		if anchor.ColumnID != columnID || anchor.SwimlaneID != swimlaneID {
			return "", errValidation("anchor card is in another cell")
		}
		prev, err := s.store.PrevCardPosition(ctx, columnID, swimlaneID, anchor.Position)
		if err != nil {
			return "", err
		}
		return position.Between(prev, anchor.Position), nil
	default:
		last, err := s.store.LastCardPosition(ctx, columnID, swimlaneID)
		if err != nil {
			return "", err
		}
		return position.After(last), nil
	}
}

// ── Comments ──

func (s *Service) CreateComment(ctx context.Context, sess Session, cardID, body, originConnID string) (store.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return store.Comment{}, errValidation("body is required")
	}
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Comment{}, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Comment{}, err
	}

	comment := store.Comment{
		ID:       util.NewID("cmt"),
		CardID:   cardID,
		AuthorID: sess.UserID,
		Body:     body,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return store.Comment{}, err
	}

	s.recordActivity(ctx, card.BoardID, sess.UserID, "commented", "card", card.ID, card.Title)
	s.broadcast(card.BoardID, event.CommentCreate, event.CommentPayload{
		BoardID:   card.BoardID,
		CardID:    cardID,
		CommentID: comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      body,
	}, originConnID)
	if card.CreatedBy != sess.UserID {
		s.notify(ctx, card.CreatedBy, card.BoardID, card.ID, "comment", sess.UserName+" commented on "+card.Title)
	}
	return comment, nil
}

func (s *Service) ListComments(ctx context.Context, sess Session, cardID string) ([]store.Comment, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelViewer); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, cardID)
}

func (s *Service) UpdateComment(ctx context.Context, sess Session, commentID, body, originConnID string) (store.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return store.Comment{}, errValidation("body is required")
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return store.Comment{}, err
	}
	card, err := s.store.GetCard(ctx, comment.CardID)
	if err != nil {
		return store.Comment{}, err
	}
	if err := s.commentWriteAllowed(ctx, sess, card.BoardID, comment); err != nil {
		return store.Comment{}, err
	}
	if err := s.store.UpdateCommentBody(ctx, commentID, body); err != nil {
		return store.Comment{}, err
	}
	comment.Body = body

	s.broadcast(card.BoardID, event.CommentUpdate, event.CommentPayload{
		BoardID:   card.BoardID,
		CardID:    card.ID,
		CommentID: comment.ID,
		Body:      body,
	}, originConnID)
	return comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, sess Session, commentID, originConnID string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	card, err := s.store.GetCard(ctx, comment.CardID)
	if err != nil {
		return err
	}
	if err := s.commentWriteAllowed(ctx, sess, card.BoardID, comment); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	s.broadcast(card.BoardID, event.CommentDelete, event.CommentPayload{
		BoardID:   card.BoardID,
		CardID:    card.ID,
		CommentID: comment.ID,
	}, originConnID)
	return nil
}

// commentWriteAllowed lets authors edit their own comments; anyone else
// needs admin on the board.
func (s *Service) commentWriteAllowed(ctx context.Context, sess Session, boardID string, comment store.Comment) error {
	if comment.AuthorID == sess.UserID {
		return s.requireLevel(ctx, boardID, sess.UserID, access.LevelEditor)
	}
	return s.requireLevel(ctx, boardID, sess.UserID, access.LevelAdmin)
}

// ── Labels ──

func (s *Service) CreateLabel(ctx context.Context, sess Session, boardID, name, color, originConnID string) (store.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Label{}, errValidation("name is required")
	}
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Label{}, err
	}

	label := store.Label{
		ID:      util.NewID("lbl"),
		BoardID: boardID,
		Name:    name,
		Color:   color,
	}
	if err := s.store.InsertLabel(ctx, label); err != nil {
		return store.Label{}, err
	}

	s.broadcast(boardID, event.LabelCreate, event.LabelPayload{
		BoardID: boardID,
		LabelID: label.ID,
		Name:    label.Name,
		Color:   label.Color,
	}, originConnID)
	return label, nil
}

func (s *Service) UpdateLabel(ctx context.Context, sess Session, labelID, name, color, originConnID string) (store.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Label{}, errValidation("name is required")
	}
	label, err := s.store.GetLabel(ctx, labelID)
	if err != nil {
		return store.Label{}, err
	}
	if err := s.requireLevel(ctx, label.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Label{}, err
	}
	if err := s.store.UpdateLabel(ctx, labelID, name, color); err != nil {
		return store.Label{}, err
	}
	label.Name = name
	label.Color = color

	s.broadcast(label.BoardID, event.LabelUpdate, event.LabelPayload{
		BoardID: label.BoardID,
		LabelID: label.ID,
		Name:    name,
		Color:   color,
	}, originConnID)
	return label, nil
}

func (s *Service) DeleteLabel(ctx context.Context, sess Session, labelID, originConnID string) error {
	label, err := s.store.GetLabel(ctx, labelID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, label.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.DeleteLabel(ctx, labelID); err != nil {
		return err
	}

	s.broadcast(label.BoardID, event.LabelDelete, event.LabelPayload{
		BoardID: label.BoardID,
		LabelID: label.ID,
	}, originConnID)
	return nil
}

func (s *Service) AddCardLabel(ctx context.Context, sess Session, cardID, labelID, originConnID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	label, err := s.store.GetLabel(ctx, labelID)
	if err != nil {
		return err
	}
	if label.BoardID != card.BoardID {
		return errValidation("label is on another board")
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.AddCardLabel(ctx, cardID, labelID); err != nil {
		return err
	}

	s.broadcast(card.BoardID, event.CardLabelAdd, event.CardLabelPayload{
		BoardID: card.BoardID,
		CardID:  cardID,
		LabelID: labelID,
	}, originConnID)
	return nil
}

func (s *Service) RemoveCardLabel(ctx context.Context, sess Session, cardID, labelID, originConnID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.RemoveCardLabel(ctx, cardID, labelID); err != nil {
		return err
	}

	s.broadcast(card.BoardID, event.CardLabelRemove, event.CardLabelPayload{
		BoardID: card.BoardID,
		CardID:  cardID,
		LabelID: labelID,
	}, originConnID)
	return nil
}

// ── Assignees ──

func (s *Service) AddCardAssignee(ctx context.Context, sess Session, cardID, userID, originConnID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	level, err := s.store.GetBoardLevel(ctx, card.BoardID, userID)
	if err != nil {
		return err
	}
	if level == "" {
		return errValidation("assignee is not a board member")
	}
	if err := s.store.AddCardAssignee(ctx, cardID, userID); err != nil {
		return err
	}

	s.broadcast(card.BoardID, event.CardAssigneeAdd, event.CardAssigneePayload{
		BoardID: card.BoardID,
		CardID:  cardID,
		UserID:  userID,
	}, originConnID)
	if userID != sess.UserID {
		s.notify(ctx, userID, card.BoardID, card.ID, "assignment", sess.UserName+" assigned you to "+card.Title)
	}
	return nil
}

func (s *Service) RemoveCardAssignee(ctx context.Context, sess Session, cardID, userID, originConnID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.RemoveCardAssignee(ctx, cardID, userID); err != nil {
		return err
	}

	s.broadcast(card.BoardID, event.CardAssigneeRemove, event.CardAssigneePayload{
		BoardID: card.BoardID,
		CardID:  cardID,
		UserID:  userID,
	}, originConnID)
	return nil
}

// ── Attachments ──

func (s *Service) CreateAttachment(ctx context.Context, sess Session, cardID, filename, contentType string, size int64, r io.Reader, originConnID string) (store.Attachment, error) {
	if s.blobs == nil {
		return store.Attachment{}, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage not configured", nil)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return store.Attachment{}, errValidation("filename is required")
	}
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Attachment{}, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Attachment{}, err
	}

	att := store.Attachment{
		ID:         util.NewID("att"),
		CardID:     cardID,
		Filename:   filename,
		Size:       size,
		UploadedBy: sess.UserID,
	}
	att.ObjectKey = blob.ObjectKey(card.BoardID, card.ID, att.ID)

	if err := s.blobs.Put(ctx, att.ObjectKey, r, size, contentType); err != nil {
		return store.Attachment{}, err
	}
	if err := s.store.InsertAttachment(ctx, att); err != nil {
		if delErr := s.blobs.Delete(ctx, att.ObjectKey); delErr != nil {
			log.Printf("app: orphaned attachment object %s: %v", att.ObjectKey, delErr)
		}
		return store.Attachment{}, err
	}

	s.recordActivity(ctx, card.BoardID, sess.UserID, "attached", "card", card.ID, filename)
	s.broadcast(card.BoardID, event.AttachmentCreate, event.AttachmentPayload{
		BoardID:      card.BoardID,
		CardID:       cardID,
		AttachmentID: att.ID,
		Filename:     filename,
	}, originConnID)
	return att, nil
}

func (s *Service) ListAttachments(ctx context.Context, sess Session, cardID string) ([]store.Attachment, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelViewer); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, cardID)
}

// AttachmentURL returns a short-lived presigned download URL.
func (s *Service) AttachmentURL(ctx context.Context, sess Session, attachmentID string) (string, error) {
	if s.blobs == nil {
		return "", domainError(http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage not configured", nil)
	}
	att, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return "", err
	}
	card, err := s.store.GetCard(ctx, att.CardID)
	if err != nil {
		return "", err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelViewer); err != nil {
		return "", err
	}
	return s.blobs.PresignedGet(ctx, att.ObjectKey, att.Filename, 15*time.Minute)
}

func (s *Service) RenameAttachment(ctx context.Context, sess Session, attachmentID, filename, originConnID string) (store.Attachment, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return store.Attachment{}, errValidation("filename is required")
	}
	att, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return store.Attachment{}, err
	}
	card, err := s.store.GetCard(ctx, att.CardID)
	if err != nil {
		return store.Attachment{}, err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return store.Attachment{}, err
	}
	if err := s.store.UpdateAttachmentFilename(ctx, attachmentID, filename); err != nil {
		return store.Attachment{}, err
	}
	att.Filename = filename

	s.broadcast(card.BoardID, event.AttachmentUpdate, event.AttachmentPayload{
		BoardID:      card.BoardID,
		CardID:       card.ID,
		AttachmentID: att.ID,
		Filename:     filename,
	}, originConnID)
	return att, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, sess Session, attachmentID, originConnID string) error {
	att, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	card, err := s.store.GetCard(ctx, att.CardID)
	if err != nil {
		return err
	}
	if err := s.requireLevel(ctx, card.BoardID, sess.UserID, access.LevelEditor); err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	if s.blobs != nil {
		if err := s.blobs.Delete(ctx, att.ObjectKey); err != nil {
			log.Printf("app: delete attachment object %s: %v", att.ObjectKey, err)
		}
	}

	s.broadcast(card.BoardID, event.AttachmentDelete, event.AttachmentPayload{
		BoardID:      card.BoardID,
		CardID:       card.ID,
		AttachmentID: att.ID,
	}, originConnID)
	return nil
}

// ── Activity, notifications, search ──

func (s *Service) ListBoardActivity(ctx context.Context, sess Session, boardID string, limit int) ([]store.Activity, error) {
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelViewer); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListActivities(ctx, boardID, limit)
}

func (s *Service) ListNotifications(ctx context.Context, sess Session, unreadOnly bool) ([]store.Notification, error) {
	return s.store.ListNotifications(ctx, sess.UserID, unreadOnly, 100)
}

func (s *Service) MarkNotificationRead(ctx context.Context, sess Session, notificationID string) error {
	return s.store.MarkNotificationRead(ctx, notificationID, sess.UserID)
}

// SearchBoard queries the search service when configured and falls back
// to a direct Postgres scan otherwise.
func (s *Service) SearchBoard(ctx context.Context, sess Session, boardID, text string, limit int) (search.Response, error) {
	if err := s.requireLevel(ctx, boardID, sess.UserID, access.LevelViewer); err != nil {
		return search.Response{}, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if s.search != nil {
		return s.search.Search(ctx, search.Query{BoardID: boardID, Text: text, Limit: limit}), nil
	}

	cards, err := s.store.SearchCards(ctx, boardID, text, limit)
	if err != nil {
		return search.Response{}, err
	}
	results := make([]search.Result, 0, len(cards))
	for _, card := range cards {
		results = append(results, search.Result{
			ID:      card.ID,
			BoardID: card.BoardID,
			Title:   card.Title,
			Snippet: card.Description,
		})
	}
	return search.Response{Results: results, Total: len(results), Query: text}, nil
}

// ── Internals ──

func (s *Service) broadcast(boardID, name string, data any, originConnID string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToBoard(boardID, name, data, originConnID)
}

// recordActivity persists and fans out a feed entry. Failures are logged
// and swallowed; the mutation that triggered them has already committed.
func (s *Service) recordActivity(ctx context.Context, boardID, actorID, verb, entityType, entityID, summary string) {
	activity := store.Activity{
		ID:         util.NewID("act"),
		BoardID:    boardID,
		ActorID:    actorID,
		Verb:       verb,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
	}
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		log.Printf("app: record activity on %s: %v", boardID, err)
		return
	}
	s.broadcast(boardID, event.ActivityCreate, event.ActivityPayload{
		BoardID:    boardID,
		ActivityID: activity.ID,
		ActorID:    actorID,
		Verb:       verb,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
	}, "")
}

// notify persists a notification and pushes it to every connection of the
// recipient, echo included.
func (s *Service) notify(ctx context.Context, recipientID, boardID, cardID, kind, summary string) {
	if recipientID == "" {
		return
	}
	n := store.Notification{
		ID:          util.NewID("ntf"),
		RecipientID: recipientID,
		BoardID:     boardID,
		CardID:      cardID,
		Kind:        kind,
		Summary:     summary,
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		log.Printf("app: insert notification for %s: %v", recipientID, err)
		return
	}
	if s.hub != nil {
		s.hub.EmitToUser(recipientID, event.Notify, event.NotifyPayload{
			NotificationID: n.ID,
			BoardID:        boardID,
			CardID:         cardID,
			Kind:           kind,
			Summary:        summary,
		})
	}
}

func (s *Service) indexCard(card store.Card) {
	if s.search == nil {
		return
	}
	s.search.IndexCard(search.CardRecord{
		ID:          card.ID,
		BoardID:     card.BoardID,
		Title:       card.Title,
		Description: card.Description,
	})
}
