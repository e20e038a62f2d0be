package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres. meili may be nil when Meilisearch is not configured.
type Service struct {
	meili    *Meili
	fallback *PGFallback
}

func NewService(meili *Meili, fallback *PGFallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise queries Postgres.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		log.Printf("search: postgres fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexEvent pushes an event into the index (fire-and-forget).
func (s *Service) IndexEvent(rec EventRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexEvent(rec); err != nil {
			log.Printf("search: index event %s: %v", rec.ID, err)
		}
	}()
}

// DeleteEvent removes an event from the index (fire-and-forget).
func (s *Service) DeleteEvent(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteEvent(id); err != nil {
			log.Printf("search: delete event %s: %v", id, err)
		}
	}()
}

// ReindexAll reads every event from Postgres and pushes it to Meilisearch.
// Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.fallback == nil {
		return
	}
	events, err := s.fallback.finder.ListEvents(ctx, "", true)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	recs := make([]EventRecord, 0, len(events))
	for _, e := range events {
		recs = append(recs, Record(e))
	}
	if err := s.meili.IndexEvents(recs); err != nil {
		log.Printf("search: reindex events: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
