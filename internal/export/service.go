package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"engcontrol/api/internal/store"
)

// DataStore is the slice of the store the export service reads.
type DataStore interface {
	ListEvents(ctx context.Context, sector string, includeAll bool) ([]store.Event, error)
}

type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Handover renders the requested day's events, scoped to the actor's
// visibility, and prints them to PDF.
func (s *Service) Handover(ctx context.Context, req Request) (*Result, error) {
	events, err := s.store.ListEvents(ctx, req.Sector, req.IncludeAll)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	data := TemplateData{
		Date:        req.Date,
		Shift:       req.Shift,
		Sector:      req.Sector,
		GeneratedBy: req.ActorName,
		GeneratedAt: time.Now(),
		Events:      []TemplateEvent{},
	}
	if req.IncludeAll {
		data.Sector = ""
	}

	for _, e := range events {
		if e.Date != req.Date {
			continue
		}
		if req.Shift != "" && e.Shift != req.Shift {
			continue
		}
		data.Events = append(data.Events, templateEvent(e))
	}

	if len(data.Events) == 0 {
		return nil, ErrNoEvents
	}

	html, err := RenderHandoverHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	filename := "passagem-" + req.Date
	if req.Shift != "" {
		filename += "-" + req.Shift
	}
	return exportPDF(html, filename)
}

func templateEvent(e store.Event) TemplateEvent {
	te := TemplateEvent{
		Title:       e.Title,
		Category:    e.Category,
		Line:        e.Line,
		Shift:       e.Shift,
		Author:      e.AuthorName,
		Time:        time.UnixMilli(e.CreatedAt).Format("15:04"),
		Description: e.Description,
	}
	if e.Solution != nil {
		te.Solution = *e.Solution
	}
	if e.Impact != nil {
		te.Impact = *e.Impact
	}
	if e.Downtime != nil {
		te.Downtime = strconv.Itoa(*e.Downtime) + " min"
	}
	if e.ReleaseTime != nil {
		te.ReleaseTime = *e.ReleaseTime
	}
	if e.EquipmentSubtype != nil {
		te.EquipmentSubtype = *e.EquipmentSubtype
	}
	for _, c := range e.Comments {
		te.Comments = append(te.Comments, TemplateComment{Author: c.AuthorName, Text: c.Text})
	}
	return te
}
