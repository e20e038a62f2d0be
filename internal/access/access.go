// Package access holds the visibility and permission predicates for the
// incident log. The predicates are pure: the store applies the same rules at
// the query boundary, and callers re-apply them when filtering in memory, so
// the visible set is identical either way.
package access

import "engcontrol/api/internal/store"

// Actor is the authenticated identity every visibility decision reads.
type Actor struct {
	ID          string
	Name        string
	Sector      string
	IsDeveloper bool
}

const AudienceDev = "dev"

// EventVisible reports whether the actor may see the event. Developers see
// everything; everyone else is scoped to their own sector.
func EventVisible(actor Actor, event store.Event) bool {
	if actor.IsDeveloper {
		return true
	}
	return event.Sector == actor.Sector
}

// NotificationVisible reports whether the actor may see the notification.
// Developers see everything. Regular actors see broadcasts and entries
// targeted at them, never dev-audience entries.
func NotificationVisible(actor Actor, n store.Notification) bool {
	if actor.IsDeveloper {
		return true
	}
	if n.Audience == AudienceDev {
		return false
	}
	return n.TargetUserID == nil || *n.TargetUserID == actor.ID
}

// AuditVisible reports whether the actor may see a notification in the audit
// view: dev-audience entries, developers only.
func AuditVisible(actor Actor, n store.Notification) bool {
	return actor.IsDeveloper && n.Audience == AudienceDev
}

// CanManageEvent reports whether the actor may edit or delete the event.
func CanManageEvent(actor Actor, event store.Event) bool {
	return actor.IsDeveloper || event.AuthorID == actor.ID
}

// CanAdminister reports whether the actor may use the administrative surface
// (user management, audit log).
func CanAdminister(actor Actor) bool {
	return actor.IsDeveloper
}

// ClearableByActor reports whether a regular actor's "clear notifications"
// removes the entry: only entries targeted at the actor, never dev-audience
// ones. Broadcasts survive. Developers clear everything instead.
func ClearableByActor(actor Actor, n store.Notification) bool {
	if n.Audience == AudienceDev {
		return false
	}
	return n.TargetUserID != nil && *n.TargetUserID == actor.ID
}
