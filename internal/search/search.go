// Package search provides card search, Meilisearch-first with a
// Postgres fallback when the index is unreachable.
package search

// CardRecord is the data we index for a card.
type CardRecord struct {
	ID          string `json:"id"`
	BoardID     string `json:"boardId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Query describes a search request. BoardID is always set; search never
// crosses board boundaries.
type Query struct {
	BoardID string
	Text    string
	Limit   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
