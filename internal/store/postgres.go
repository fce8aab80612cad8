package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, deactivated_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.DeactivatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, deactivated_at
		FROM users WHERE LOWER(email)=LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.DeactivatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ── Refresh sessions (Postgres fallback when Redis is not configured) ──

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.display_name
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash).Scan(&user.ID, &user.Email, &user.DisplayName)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// ── Boards & memberships ──

func (s *PostgresStore) InsertBoard(ctx context.Context, board Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, name, created_by)
		VALUES ($1, $2, $3)
	`, board.ID, board.Name, board.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at, updated_at FROM boards WHERE id=$1
	`, boardID).Scan(&board.ID, &board.Name, &board.CreatedBy, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

func (s *PostgresStore) ListBoardsForUser(ctx context.Context, userID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.name, b.created_by, b.created_at, b.updated_at
		FROM boards b
		JOIN board_memberships m ON m.board_id = b.id
		WHERE m.user_id = $1
		ORDER BY b.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var item Board
		if err := rows.Scan(&item.ID, &item.Name, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertMembership(ctx context.Context, m BoardMembership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_memberships (id, board_id, user_id, level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (board_id, user_id) DO UPDATE SET level=EXCLUDED.level
	`, m.ID, m.BoardID, m.UserID, m.Level)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// GetBoardLevel returns the actor's membership level on the board, or ""
// when no membership exists.
func (s *PostgresStore) GetBoardLevel(ctx context.Context, boardID, userID string) (string, error) {
	var level string
	err := s.db.QueryRowContext(ctx, `
		SELECT level FROM board_memberships WHERE board_id=$1 AND user_id=$2
	`, boardID, userID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read board level: %w", err)
	}
	return level, nil
}

// ── Columns ──

func (s *PostgresStore) InsertColumn(ctx context.Context, column Column) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO columns (id, board_id, name, position)
		VALUES ($1, $2, $3, $4)
	`, column.ID, column.BoardID, column.Name, column.Position)
	if err != nil {
		return fmt.Errorf("insert column: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetColumn(ctx context.Context, columnID string) (Column, error) {
	var column Column
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, name, position, created_at, updated_at FROM columns WHERE id=$1
	`, columnID).Scan(&column.ID, &column.BoardID, &column.Name, &column.Position, &column.CreatedAt, &column.UpdatedAt)
	if err != nil {
		return Column{}, err
	}
	return column, nil
}

func (s *PostgresStore) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, name, position, created_at, updated_at
		FROM columns WHERE board_id=$1 ORDER BY position
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	items := make([]Column, 0)
	for rows.Next() {
		var item Column
		if err := rows.Scan(&item.ID, &item.BoardID, &item.Name, &item.Position, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateColumnName(ctx context.Context, columnID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE columns SET name=$2, updated_at=NOW() WHERE id=$1
	`, columnID, name)
	if err != nil {
		return fmt.Errorf("update column name: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateColumnPosition(ctx context.Context, columnID, pos string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE columns SET position=$2, updated_at=NOW() WHERE id=$1
	`, columnID, pos)
	if err != nil {
		return fmt.Errorf("update column position: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteColumn(ctx context.Context, columnID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM columns WHERE id=$1`, columnID)
	if err != nil {
		return fmt.Errorf("delete column: %w", err)
	}
	return nil
}

// LastColumnPosition returns the greatest position key on the board, or
// "" when the board has no columns yet.
func (s *PostgresStore) LastColumnPosition(ctx context.Context, boardID string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM columns WHERE board_id=$1 ORDER BY position DESC LIMIT 1
	`, boardID)
}

// NextColumnPosition returns the smallest key strictly greater than pos on
// the board, or "" when pos is the last key.
func (s *PostgresStore) NextColumnPosition(ctx context.Context, boardID, pos string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM columns WHERE board_id=$1 AND position > $2 ORDER BY position LIMIT 1
	`, boardID, pos)
}

// PrevColumnPosition returns the greatest key strictly less than pos on
// the board, or "" when pos is the first key.
func (s *PostgresStore) PrevColumnPosition(ctx context.Context, boardID, pos string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM columns WHERE board_id=$1 AND position < $2 ORDER BY position DESC LIMIT 1
	`, boardID, pos)
}

// ── Swimlanes ──

func (s *PostgresStore) InsertSwimlane(ctx context.Context, lane Swimlane) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swimlanes (id, board_id, name, position)
		VALUES ($1, $2, $3, $4)
	`, lane.ID, lane.BoardID, lane.Name, lane.Position)
	if err != nil {
		return fmt.Errorf("insert swimlane: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSwimlane(ctx context.Context, laneID string) (Swimlane, error) {
	var lane Swimlane
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, name, position, created_at, updated_at FROM swimlanes WHERE id=$1
	`, laneID).Scan(&lane.ID, &lane.BoardID, &lane.Name, &lane.Position, &lane.CreatedAt, &lane.UpdatedAt)
	if err != nil {
		return Swimlane{}, err
	}
	return lane, nil
}

func (s *PostgresStore) ListSwimlanes(ctx context.Context, boardID string) ([]Swimlane, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, name, position, created_at, updated_at
		FROM swimlanes WHERE board_id=$1 ORDER BY position
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list swimlanes: %w", err)
	}
	defer rows.Close()

	items := make([]Swimlane, 0)
	for rows.Next() {
		var item Swimlane
		if err := rows.Scan(&item.ID, &item.BoardID, &item.Name, &item.Position, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan swimlane: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swimlanes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateSwimlaneName(ctx context.Context, laneID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE swimlanes SET name=$2, updated_at=NOW() WHERE id=$1
	`, laneID, name)
	if err != nil {
		return fmt.Errorf("update swimlane name: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSwimlanePosition(ctx context.Context, laneID, pos string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE swimlanes SET position=$2, updated_at=NOW() WHERE id=$1
	`, laneID, pos)
	if err != nil {
		return fmt.Errorf("update swimlane position: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSwimlane(ctx context.Context, laneID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM swimlanes WHERE id=$1`, laneID)
	if err != nil {
		return fmt.Errorf("delete swimlane: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastSwimlanePosition(ctx context.Context, boardID string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM swimlanes WHERE board_id=$1 ORDER BY position DESC LIMIT 1
	`, boardID)
}

func (s *PostgresStore) NextSwimlanePosition(ctx context.Context, boardID, pos string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM swimlanes WHERE board_id=$1 AND position > $2 ORDER BY position LIMIT 1
	`, boardID, pos)
}

func (s *PostgresStore) PrevSwimlanePosition(ctx context.Context, boardID, pos string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM swimlanes WHERE board_id=$1 AND position < $2 ORDER BY position DESC LIMIT 1
	`, boardID, pos)
}

// ── Cards ──

func (s *PostgresStore) InsertCard(ctx context.Context, card Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, board_id, column_id, swimlane_id, title, description, position, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, card.ID, card.BoardID, card.ColumnID, card.SwimlaneID, card.Title, card.Description, card.Position, card.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	var card Card
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, column_id, swimlane_id, title, description, position, created_by, created_at, updated_at
		FROM cards WHERE id=$1
	`, cardID).Scan(&card.ID, &card.BoardID, &card.ColumnID, &card.SwimlaneID, &card.Title,
		&card.Description, &card.Position, &card.CreatedBy, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	return card, nil
}

func (s *PostgresStore) ListCards(ctx context.Context, boardID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, column_id, swimlane_id, title, description, position, created_by, created_at, updated_at
		FROM cards WHERE board_id=$1 ORDER BY column_id, swimlane_id, position
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		var item Card
		if err := rows.Scan(&item.ID, &item.BoardID, &item.ColumnID, &item.SwimlaneID, &item.Title,
			&item.Description, &item.Position, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCardState(ctx context.Context, cardID, title, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards SET title=$2, description=$3, updated_at=NOW() WHERE id=$1
	`, cardID, title, description)
	if err != nil {
		return fmt.Errorf("update card state: %w", err)
	}
	return nil
}

// UpdateCardCell moves the card to a (column, swimlane) cell at the given
// position. Used for same-cell reorders too, with the cell unchanged.
func (s *PostgresStore) UpdateCardCell(ctx context.Context, cardID, columnID, swimlaneID, pos string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards SET column_id=$2, swimlane_id=$3, position=$4, updated_at=NOW() WHERE id=$1
	`, cardID, columnID, swimlaneID, pos)
	if err != nil {
		return fmt.Errorf("update card cell: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCard(ctx context.Context, cardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id=$1`, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastCardPosition(ctx context.Context, columnID, swimlaneID string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM cards WHERE column_id=$1 AND swimlane_id=$2 ORDER BY position DESC LIMIT 1
	`, columnID, swimlaneID)
}

func (s *PostgresStore) NextCardPosition(ctx context.Context, columnID, swimlaneID, pos string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM cards WHERE column_id=$1 AND swimlane_id=$2 AND position > $3 ORDER BY position LIMIT 1
	`, columnID, swimlaneID, pos)
}

func (s *PostgresStore) PrevCardPosition(ctx context.Context, columnID, swimlaneID, pos string) (string, error) {
	return s.scalarPosition(ctx, `
		SELECT position FROM cards WHERE column_id=$1 AND swimlane_id=$2 AND position < $3 ORDER BY position DESC LIMIT 1
	`, columnID, swimlaneID, pos)
}

func (s *PostgresStore) SearchCards(ctx context.Context, boardID, query string, limit int) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, column_id, swimlane_id, title, description, position, created_by, created_at, updated_at
		FROM cards
		WHERE board_id=$1 AND (title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY updated_at DESC
		LIMIT $3
	`, boardID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		var item Card
		if err := rows.Scan(&item.ID, &item.BoardID, &item.ColumnID, &item.SwimlaneID, &item.Title,
			&item.Description, &item.Position, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

// ── Comments ──

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, card_id, author_id, body)
		VALUES ($1, $2, $3, $4)
	`, comment.ID, comment.CardID, comment.AuthorID, comment.Body)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, author_id, body, created_at, updated_at FROM comments WHERE id=$1
	`, commentID).Scan(&comment.ID, &comment.CardID, &comment.AuthorID, &comment.Body, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, cardID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, author_id, body, created_at, updated_at
		FROM comments WHERE card_id=$1 ORDER BY created_at
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.CardID, &item.AuthorID, &item.Body, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCommentBody(ctx context.Context, commentID, body string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE comments SET body=$2, updated_at=NOW() WHERE id=$1
	`, commentID, body)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// ── Labels ──

func (s *PostgresStore) InsertLabel(ctx context.Context, label Label) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, board_id, name, color)
		VALUES ($1, $2, $3, $4)
	`, label.ID, label.BoardID, label.Name, label.Color)
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLabel(ctx context.Context, labelID string) (Label, error) {
	var label Label
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, name, color FROM labels WHERE id=$1
	`, labelID).Scan(&label.ID, &label.BoardID, &label.Name, &label.Color)
	if err != nil {
		return Label{}, err
	}
	return label, nil
}

func (s *PostgresStore) ListLabels(ctx context.Context, boardID string) ([]Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, name, color FROM labels WHERE board_id=$1 ORDER BY name
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	items := make([]Label, 0)
	for rows.Next() {
		var item Label
		if err := rows.Scan(&item.ID, &item.BoardID, &item.Name, &item.Color); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateLabel(ctx context.Context, labelID, name, color string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE labels SET name=$2, color=$3 WHERE id=$1
	`, labelID, name, color)
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteLabel(ctx context.Context, labelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id=$1`, labelID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	return nil
}

// ── Card labels & assignees ──

func (s *PostgresStore) AddCardLabel(ctx context.Context, cardID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_labels (card_id, label_id)
		VALUES ($1, $2)
		ON CONFLICT (card_id, label_id) DO NOTHING
	`, cardID, labelID)
	if err != nil {
		return fmt.Errorf("add card label: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveCardLabel(ctx context.Context, cardID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_labels WHERE card_id=$1 AND label_id=$2`, cardID, labelID)
	if err != nil {
		return fmt.Errorf("remove card label: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddCardAssignee(ctx context.Context, cardID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_assignees (card_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (card_id, user_id) DO NOTHING
	`, cardID, userID)
	if err != nil {
		return fmt.Errorf("add card assignee: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveCardAssignee(ctx context.Context, cardID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_assignees WHERE card_id=$1 AND user_id=$2`, cardID, userID)
	if err != nil {
		return fmt.Errorf("remove card assignee: %w", err)
	}
	return nil
}

// ── Attachments ──

func (s *PostgresStore) InsertAttachment(ctx context.Context, att Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, card_id, filename, object_key, size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, att.ID, att.CardID, att.Filename, att.ObjectKey, att.Size, att.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, attachmentID string) (Attachment, error) {
	var att Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, filename, object_key, size, uploaded_by, created_at
		FROM attachments WHERE id=$1
	`, attachmentID).Scan(&att.ID, &att.CardID, &att.Filename, &att.ObjectKey, &att.Size, &att.UploadedBy, &att.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return att, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, cardID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, filename, object_key, size, uploaded_by, created_at
		FROM attachments WHERE card_id=$1 ORDER BY created_at
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var item Attachment
		if err := rows.Scan(&item.ID, &item.CardID, &item.Filename, &item.ObjectKey, &item.Size, &item.UploadedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateAttachmentFilename(ctx context.Context, attachmentID, filename string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE attachments SET filename=$2 WHERE id=$1`, attachmentID, filename)
	if err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=$1`, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// ── Activities & notifications ──

func (s *PostgresStore) InsertActivity(ctx context.Context, activity Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, board_id, actor_id, verb, entity_type, entity_id, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, activity.ID, activity.BoardID, activity.ActorID, activity.Verb, activity.EntityType, activity.EntityID, activity.Summary)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, boardID string, limit int) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, actor_id, verb, entity_type, entity_id, summary, created_at
		FROM activities WHERE board_id=$1 ORDER BY created_at DESC LIMIT $2
	`, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var item Activity
		if err := rows.Scan(&item.ID, &item.BoardID, &item.ActorID, &item.Verb, &item.EntityType, &item.EntityID, &item.Summary, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, board_id, card_id, kind, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.RecipientID, n.BoardID, n.CardID, n.Kind, n.Summary)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
		SELECT id, recipient_id, board_id, card_id, kind, summary, read_at, created_at
		FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC LIMIT $2
	`
	if unreadOnly {
		query = `
			SELECT id, recipient_id, board_id, card_id, kind, summary, read_at, created_at
			FROM notifications WHERE recipient_id=$1 AND read_at IS NULL ORDER BY created_at DESC LIMIT $2
		`
	}
	rows, err := s.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var item Notification
		if err := rows.Scan(&item.ID, &item.RecipientID, &item.BoardID, &item.CardID, &item.Kind, &item.Summary, &item.ReadAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID, recipientID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_at=NOW() WHERE id=$1 AND recipient_id=$2 AND read_at IS NULL
	`, notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// scalarPosition runs a single-column position query, mapping no-rows to
// the empty (unbounded) key.
func (s *PostgresStore) scalarPosition(ctx context.Context, query string, args ...any) (string, error) {
	var pos string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read position: %w", err)
	}
	return pos, nil
}
