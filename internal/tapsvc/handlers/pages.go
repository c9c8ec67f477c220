package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/export"
	"github.com/avvvet/tap-services/internal/tapsvc/models"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{
	"home", "login", "processing", "notfound", "profile",
	"dashboard", "devices", "leads", "analytics", "settings",
}

// page is the data every template receives.
type page struct {
	Title     string
	Dashboard bool
	Error     string
	Notice    string
	Data      any
}

func parsePages(loc *time.Location) map[string]*template.Template {
	funcs := template.FuncMap{
		"deref": models.Deref,
		"modes": func() []models.ChipMode { return models.ChipModes },
		"date": func(t time.Time) string {
			return t.In(loc).Format(export.GermanDate)
		},
		"datetime": func(t time.Time) string {
			return t.In(loc).Format("02.01.2006 15:04")
		},
	}

	base := template.Must(template.New("layout").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html"))

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t := template.Must(base.Clone())
		pages[name] = template.Must(t.ParseFS(templatesFS, "templates/"+name+".html"))
	}
	return pages
}

// render executes into a buffer so a template error never leaves a half
// written page behind.
func (h *Handler) render(w http.ResponseWriter, status int, name string, p *page) {
	if p == nil {
		p = &page{}
	}

	t, ok := h.pages[name]
	if !ok {
		log.Errorf("unknown page %s", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		log.Errorf("Error rendering page %s: %s", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debugf("write page %s: %s", name, err)
	}
}

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home", nil)
}

func (h *Handler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "notfound", &page{Title: "404"})
}
