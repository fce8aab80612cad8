package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements card search against PostgreSQL, used when
// Meilisearch is not configured or unreachable.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search ranks cards with plainto_tsquery over title and description and
// builds snippets with ts_headline. The tsvector is computed per query;
// board card counts stay small enough that a stored column is not worth
// the migration.
func (p *PgSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.board_id, c.title,
			ts_headline('english', coalesce(c.description, ''), plainto_tsquery('english', $2), 'MaxFragments=1,MaxWords=30') AS snippet
		FROM cards c
		WHERE c.board_id = $1
			AND to_tsvector('english', c.title || ' ' || coalesce(c.description, '')) @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(to_tsvector('english', c.title || ' ' || coalesce(c.description, '')), plainto_tsquery('english', $2)) DESC
		LIMIT $3
	`, q.BoardID, q.Text, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.BoardID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search hits: %w", err)
	}
	return results, len(results), nil
}

// LoadAllRecords reads every card row for reindexing into Meilisearch.
func (p *PgSearch) LoadAllRecords(ctx context.Context) ([]CardRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, board_id, title, coalesce(description, '') FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("load card records: %w", err)
	}
	defer rows.Close()

	records := make([]CardRecord, 0)
	for rows.Next() {
		var r CardRecord
		if err := rows.Scan(&r.ID, &r.BoardID, &r.Title, &r.Description); err != nil {
			return nil, fmt.Errorf("scan card record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card records: %w", err)
	}
	return records, nil
}
