package store

import "time"

type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	Sector       string
	IsDeveloper  bool
	Avatar       string
	CreatedAt    time.Time
}

// Event is one shift-handover incident report. CreatedAt and LastEditedAt are
// unix milliseconds; Date is the yyyy-mm-dd calendar day derived at creation.
type Event struct {
	ID               string
	Date             string
	Shift            string
	Line             string
	Category         string
	Title            string
	Description      string
	Solution         *string
	Impact           *string
	Downtime         *int
	ReleaseTime      *string
	EquipmentSubtype *string
	Photos           []string
	AuthorID         string
	AuthorName       string
	Sector           string
	CreatedAt        int64
	LastEditedBy     *string
	LastEditedAt     *int64
	Comments         []Comment
}

// Comment is append-only and owned by exactly one event.
type Comment struct {
	ID         string
	EventID    string
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  int64
}

// Notification rows double as the developer audit trail: entries with
// Audience == "dev" are visible only to developer accounts.
type Notification struct {
	ID           string
	Title        string
	Message      string
	CreatedAt    int64
	IsRead       bool
	Category     string
	TargetUserID *string
	Audience     string
	EventID      string
}
