package app

import (
	"strings"
	"testing"
)

func TestChangedFieldLabelsFixedOrder(t *testing.T) {
	before := sampleEvent()
	in := inputFromEvent(before)
	in.Photos = []string{"https://cdn.example/events/evt_1/ph_1.jpg"}
	in.Title = "Outro titulo"
	in.Line = "SMT-09"

	labels := changedFieldLabels(before, in)
	if strings.Join(labels, ",") != "titulo,linha,fotos" {
		t.Fatalf("labels must follow the fixed field order, got %v", labels)
	}
}

func TestChangedFieldLabelsIgnoreSurroundingWhitespace(t *testing.T) {
	before := sampleEvent()
	in := inputFromEvent(before)
	in.Title = "  " + before.Title + " "
	in.Line = before.Line + "  "

	if labels := changedFieldLabels(before, in); len(labels) != 0 {
		t.Fatalf("padded resubmission persists nothing, so it must diff as unchanged, got %v", labels)
	}
}

func TestChangedFieldLabelsTreatsNilAsNull(t *testing.T) {
	before := sampleEvent()
	before.Solution = nil
	in := inputFromEvent(before)
	in.Solution = nil

	if labels := changedFieldLabels(before, in); len(labels) != 0 {
		t.Fatalf("nil and nil must compare equal, got %v", labels)
	}

	solution := ""
	in.Solution = &solution
	if labels := changedFieldLabels(before, in); strings.Join(labels, ",") != "solucao" {
		t.Fatalf("nil and empty string differ, got %v", labels)
	}
}

func TestChangedFieldLabelsDetectsNumericChange(t *testing.T) {
	before := sampleEvent()
	ten := 10
	before.Downtime = &ten

	in := inputFromEvent(before)
	twelve := 12
	in.Downtime = &twelve

	if labels := changedFieldLabels(before, in); strings.Join(labels, ",") != "parada" {
		t.Fatalf("expected parada, got %v", labels)
	}
}

func TestChangedFieldLabelsIgnoresUneditableFields(t *testing.T) {
	before := sampleEvent()
	in := inputFromEvent(before)

	// Author and timestamps never enter the comparison.
	other := before
	other.AuthorName = "Outra Pessoa"
	other.CreatedAt = 1
	if labels := changedFieldLabels(other, in); len(labels) != 0 {
		t.Fatalf("non-editable fields must not produce labels, got %v", labels)
	}
}

func TestChangedFieldLabelsPhotoReorderCounts(t *testing.T) {
	before := sampleEvent()
	before.Photos = []string{"a.jpg", "b.jpg"}
	in := inputFromEvent(before)
	in.Photos = []string{"b.jpg", "a.jpg"}

	if labels := changedFieldLabels(before, in); strings.Join(labels, ",") != "fotos" {
		t.Fatalf("photo order is significant, got %v", labels)
	}
}

func TestNormalizeSerializesNilPointersAsNull(t *testing.T) {
	var p *string
	if normalize(p) != "null" {
		t.Fatalf("nil pointer must normalize to null")
	}
	var s []string
	if normalize(s) != "null" {
		t.Fatalf("nil slice must normalize to null")
	}
	if normalize([]string{}) != "[]" {
		t.Fatalf("empty slice must normalize to []")
	}
}
