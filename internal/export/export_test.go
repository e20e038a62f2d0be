package export

import (
	"strings"
	"testing"
	"time"
)

func TestRenderHandoverHTML(t *testing.T) {
	data := TemplateData{
		Date:        "2026-08-31",
		Shift:       "ADM",
		Sector:      "Setup Engenharia",
		GeneratedBy: "Carlos Mota",
		GeneratedAt: time.Date(2026, 8, 31, 16, 30, 0, 0, time.UTC),
		Events: []TemplateEvent{
			{
				Title:       "Quebra de ferramenta na linha 3",
				Category:    "Máquina",
				Line:        "Linha 3",
				Shift:       "ADM",
				Author:      "Ana Souza",
				Time:        "09:12",
				Description: "Fuso travado durante o setup.",
				Solution:    "Substituído o fuso reserva.",
				Downtime:    "45 min",
				Comments: []TemplateComment{
					{Author: "Pedro Lima", Text: "Peça reserva pedida ao almoxarifado."},
				},
			},
		},
	}

	html, err := RenderHandoverHTML(data)
	if err != nil {
		t.Fatalf("RenderHandoverHTML() error = %v", err)
	}

	for _, want := range []string{
		"2026-08-31",
		"Quebra de ferramenta na linha 3",
		"Máquina",
		"Ana Souza",
		"Substituído o fuso reserva.",
		"45 min",
		"Pedro Lima",
		"Carlos Mota",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderHandoverHTMLEscapesMarkup(t *testing.T) {
	data := TemplateData{
		Date:        "2026-08-31",
		GeneratedBy: "Carlos Mota",
		GeneratedAt: time.Now(),
		Events: []TemplateEvent{
			{Title: "<script>alert(1)</script>", Description: "ok", Category: "Outros", Line: "L1", Shift: "ADM", Author: "Ana"},
		},
	}

	html, err := RenderHandoverHTML(data)
	if err != nil {
		t.Fatalf("RenderHandoverHTML() error = %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("event title must be HTML-escaped")
	}
}

func TestRenderHandoverHTMLEmptyDay(t *testing.T) {
	data := TemplateData{
		Date:        "2026-08-30",
		GeneratedBy: "Carlos Mota",
		GeneratedAt: time.Now(),
	}

	html, err := RenderHandoverHTML(data)
	if err != nil {
		t.Fatalf("RenderHandoverHTML() error = %v", err)
	}
	if !strings.Contains(html, "Nenhum registro") {
		t.Error("expected empty-day placeholder")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	cases := map[string]string{
		"a b+c": "a%20b%2Bc",
		// Accented text must escape per UTF-8 byte, not per code point,
		// or the charset=utf-8 data URL renders replacement characters.
		"Máquina":     "M%C3%A1quina",
		"Periféricos": "Perif%C3%A9ricos",
		"Solução":     "Solu%C3%A7%C3%A3o",
		"→":           "%E2%86%92",
	}
	for in, want := range cases {
		if got := percentEncodeForDataURL(in); got != want {
			t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"passagem 2026-08-31": "passagem-2026-08-31",
		"çãé!!":               "passagem-de-turno",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
