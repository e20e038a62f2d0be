package app

import (
	"engcontrol/api/internal/store"
)

// mirrorState is one actor's local copy of the remote data: the events and
// notifications visible to them, ordered newest first, plus the currently
// selected event pointer. Writes go to the remote store first; the mirror is
// only touched after the remote write succeeds, so a failed write never
// corrupts what the actor already sees.
type mirrorState struct {
	loaded          bool
	events          []store.Event
	notifications   []store.Notification
	selectedEventID string
}

func newMirrorState() *mirrorState {
	return &mirrorState{}
}

// replace swaps in a freshly fetched snapshot. Full replacement, not a merge.
func (m *mirrorState) replace(events []store.Event, notifications []store.Notification) {
	m.loaded = true
	m.events = events
	m.notifications = notifications
	if m.selectedEventID != "" && m.findEvent(m.selectedEventID) < 0 {
		m.selectedEventID = ""
	}
}

func (m *mirrorState) findEvent(id string) int {
	for i := range m.events {
		if m.events[i].ID == id {
			return i
		}
	}
	return -1
}

// prependEvent puts a newly created event at the head; creation order governs
// the list order.
func (m *mirrorState) prependEvent(e store.Event) {
	m.events = append([]store.Event{e}, m.events...)
}

// mergeEvent overwrites the event in place, keeping its position. Edits do
// not reorder the list.
func (m *mirrorState) mergeEvent(e store.Event) {
	if i := m.findEvent(e.ID); i >= 0 {
		e.Comments = m.events[i].Comments
		m.events[i] = e
	}
}

func (m *mirrorState) removeEvent(id string) {
	if i := m.findEvent(id); i >= 0 {
		m.events = append(m.events[:i], m.events[i+1:]...)
	}
	if m.selectedEventID == id {
		m.selectedEventID = ""
	}
}

func (m *mirrorState) appendComment(c store.Comment) {
	if i := m.findEvent(c.EventID); i >= 0 {
		m.events[i].Comments = append(m.events[i].Comments, c)
	}
}

func (m *mirrorState) prependNotification(n store.Notification) {
	m.notifications = append([]store.Notification{n}, m.notifications...)
}

// markAllRead flips every held notification unconditionally. Local state was
// loaded through the scoped fetch, so nothing out of scope can be here.
func (m *mirrorState) markAllRead() {
	for i := range m.notifications {
		m.notifications[i].IsRead = true
	}
}

func (m *mirrorState) clearNotifications(keep func(store.Notification) bool) {
	if keep == nil {
		m.notifications = []store.Notification{}
		return
	}
	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if keep(n) {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
}

// snapshotEvents returns a copy of the event list so callers can't mutate
// mirror internals after the lock is released.
func (m *mirrorState) snapshotEvents() []store.Event {
	out := make([]store.Event, len(m.events))
	copy(out, m.events)
	for i := range out {
		comments := make([]store.Comment, len(out[i].Comments))
		copy(comments, out[i].Comments)
		out[i].Comments = comments
	}
	return out
}

func (m *mirrorState) snapshotNotifications() []store.Notification {
	out := make([]store.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}
