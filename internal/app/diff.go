package app

import (
	"encoding/json"
	"strings"

	"engcontrol/api/internal/store"
)

// editableFields is the fixed list of user-editable event fields, in the
// order their labels appear in edit notifications.
var editableFields = []struct {
	key   string
	label string
}{
	{"title", "titulo"},
	{"description", "descricao"},
	{"solution", "solucao"},
	{"impact", "impacto"},
	{"downtime", "parada"},
	{"releaseTime", "liberacao"},
	{"line", "linha"},
	{"shift", "turno"},
	{"category", "categoria"},
	{"equipmentSubtype", "modelo"},
	{"photos", "fotos"},
}

// changedFieldLabels compares the pre-edit snapshot against the incoming
// field set and returns the labels of the fields that actually differ, in
// the fixed order above. Values are normalized through JSON so that a nil
// pointer, a missing value and an explicit null all compare equal.
func changedFieldLabels(before store.Event, after EventInput) []string {
	prev := fieldValues(before)
	// Title and line are trimmed before persisting, so compare the trimmed
	// values here as well.
	next := map[string]any{
		"title":            strings.TrimSpace(after.Title),
		"description":      after.Description,
		"solution":         after.Solution,
		"impact":           after.Impact,
		"downtime":         after.Downtime,
		"releaseTime":      after.ReleaseTime,
		"line":             strings.TrimSpace(after.Line),
		"shift":            after.Shift,
		"category":         after.Category,
		"equipmentSubtype": after.EquipmentSubtype,
		"photos":           after.Photos,
	}

	var labels []string
	for _, f := range editableFields {
		if normalize(prev[f.key]) != normalize(next[f.key]) {
			labels = append(labels, f.label)
		}
	}
	return labels
}

func fieldValues(e store.Event) map[string]any {
	return map[string]any{
		"title":            e.Title,
		"description":      e.Description,
		"solution":         e.Solution,
		"impact":           e.Impact,
		"downtime":         e.Downtime,
		"releaseTime":      e.ReleaseTime,
		"line":             e.Line,
		"shift":            e.Shift,
		"category":         e.Category,
		"equipmentSubtype": e.EquipmentSubtype,
		"photos":           e.Photos,
	}
}

// normalize renders a value as canonical JSON. Nil pointers and nil slices
// both serialize to "null", which is exactly the absent==null equivalence
// the comparison needs.
func normalize(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
