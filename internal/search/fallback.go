package search

import (
	"context"

	"engcontrol/api/internal/store"
)

// EventFinder is the slice of the store the fallback needs.
type EventFinder interface {
	SearchEvents(ctx context.Context, query, sector string, includeAll bool) ([]store.Event, error)
	ListEvents(ctx context.Context, sector string, includeAll bool) ([]store.Event, error)
}

// PGFallback answers searches straight from Postgres when Meilisearch is
// down. Plain ILIKE matching, no highlighting.
type PGFallback struct {
	finder EventFinder
}

func NewPGFallback(finder EventFinder) *PGFallback {
	return &PGFallback{finder: finder}
}

func (p *PGFallback) Search(ctx context.Context, q Query) ([]Result, int, error) {
	events, err := p.finder.SearchEvents(ctx, q.Text, q.Sector, q.IncludeAll)
	if err != nil {
		return nil, 0, err
	}

	total := len(events)
	if q.Offset > 0 {
		if q.Offset >= len(events) {
			events = nil
		} else {
			events = events[q.Offset:]
		}
	}
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if len(events) > limit {
		events = events[:limit]
	}

	results := make([]Result, 0, len(events))
	for _, e := range events {
		results = append(results, EventResult(e))
	}
	return results, total, nil
}

// EventResult converts a stored event into a search hit.
func EventResult(e store.Event) Result {
	return Result{
		ID:        e.ID,
		Title:     e.Title,
		Snippet:   e.Description,
		Line:      e.Line,
		Category:  e.Category,
		Shift:     e.Shift,
		Sector:    e.Sector,
		CreatedAt: e.CreatedAt,
	}
}

// Record converts a stored event into its index document.
func Record(e store.Event) EventRecord {
	rec := EventRecord{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Line:        e.Line,
		Category:    e.Category,
		Shift:       e.Shift,
		Sector:      e.Sector,
		CreatedAt:   e.CreatedAt,
	}
	if e.Solution != nil {
		rec.Solution = *e.Solution
	}
	return rec
}
