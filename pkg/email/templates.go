package email

import (
	"embed"
	"html/template"
	"time"

	"ptmanager_backend/pkg/money"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
	"eur":  money.FormatEUR,
}

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}
