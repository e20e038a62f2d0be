package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var handoverTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/handover.html")
	if err != nil {
		// Fallback to built-in template if file not found
		handoverTemplate = template.Must(template.New("handover").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	handoverTemplate = template.Must(template.New("handover").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for handover template rendering
type TemplateData struct {
	Date        string
	Shift       string
	Sector      string
	GeneratedBy string
	GeneratedAt time.Time
	Events      []TemplateEvent
}

// TemplateEvent holds event data for the template
type TemplateEvent struct {
	Title            string
	Category         string
	Line             string
	Shift            string
	Author           string
	Time             string
	Description      string
	Solution         string
	Impact           string
	Downtime         string
	ReleaseTime      string
	EquipmentSubtype string
	Comments         []TemplateComment
}

// TemplateComment holds comment data for the template
type TemplateComment struct {
	Author string
	Text   string
}

// RenderHandoverHTML renders the handover template with provided data
func RenderHandoverHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := handoverTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Passagem de Turno {{.Date}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .event { border: 1px solid #ddd; padding: 1rem; margin: 1rem 0; }
    .event h2 { margin-top: 0; font-size: 1.1em; }
    .comment { background: #f5f5f5; padding: 0.5rem 1rem; margin: 0.5rem 0; }
  </style>
</head>
<body>
  <h1>Passagem de Turno — {{.Date}}{{if .Shift}} ({{.Shift}}){{end}}</h1>
  <div class="meta">{{if .Sector}}{{.Sector}} | {{end}}{{.GeneratedBy}} | {{.GeneratedAt.Format "02/01/2006 15:04"}}</div>
  {{range .Events}}
  <div class="event">
    <h2>{{.Title}}</h2>
    <div class="meta">{{.Category}} | {{.Line}} | {{.Shift}} | {{.Author}} | {{.Time}}</div>
    <p>{{.Description}}</p>
    {{if .Solution}}<p><strong>Solução:</strong> {{.Solution}}</p>{{end}}
    {{if .Impact}}<p><strong>Impacto:</strong> {{.Impact}}</p>{{end}}
    {{if .Downtime}}<p><strong>Parada:</strong> {{.Downtime}}</p>{{end}}
    {{if .ReleaseTime}}<p><strong>Liberação:</strong> {{.ReleaseTime}}</p>{{end}}
    {{if .EquipmentSubtype}}<p><strong>Equipamento:</strong> {{.EquipmentSubtype}}</p>{{end}}
    {{range .Comments}}<div class="comment"><strong>{{.Author}}:</strong> {{.Text}}</div>{{end}}
  </div>
  {{else}}
  <p>Nenhum registro para este dia.</p>
  {{end}}
</body>
</html>`
