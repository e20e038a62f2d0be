// Package export renders a day's incident events into a shift-handover
// report and prints it to PDF with headless Chrome.
package export

import "errors"

// Request contains parameters for a handover export.
type Request struct {
	Date  string // yyyy-mm-dd
	Shift string // empty = all shifts of the day
	// Visibility scope of the requesting actor.
	Sector     string
	IncludeAll bool
	ActorName  string
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates the headless Chrome runtime is unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")

// ErrNoEvents indicates there is nothing to export for the requested day.
var ErrNoEvents = errors.New("export has no events")
