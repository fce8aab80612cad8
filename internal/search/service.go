package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres. meili may be nil when Meilisearch is not configured.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.pg.Search(ctx, q)
	if err != nil {
		log.Printf("search: postgres error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexCard pushes a card into Meilisearch, fire-and-forget. The
// Postgres fallback reads live rows and needs no indexing.
func (s *Service) IndexCard(card CardRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCard(card); err != nil {
			log.Printf("search: index card %s: %v", card.ID, err)
		}
	}()
}

// DeleteCard removes a card from the index, fire-and-forget.
func (s *Service) DeleteCard(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCard(id); err != nil {
			log.Printf("search: delete card %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG pushes every card row into Meilisearch. Called at
// startup when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pg == nil {
		return
	}
	records, err := s.pg.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}
	if err := s.meili.IndexCards(records); err != nil {
		log.Printf("search: reindex cards: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
