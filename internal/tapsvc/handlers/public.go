package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/avvvet/tap-services/internal/tapsvc/auth"
	"github.com/avvvet/tap-services/internal/tapsvc/export"
	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/service"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

type profilePage struct {
	Profile *models.Profile
	Form    service.LeadInput
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login", &page{Title: "Anmelden"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	s, err := h.Auth.SignIn(r.Context(), email, password)
	if err != nil {
		status, msg := http.StatusUnauthorized, "E-Mail oder Passwort ist falsch."
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Errorf("Error [Auth.SignIn] %s", err)
			status, msg = http.StatusBadGateway, "Anmeldung ist gerade nicht möglich."
		}
		h.render(w, status, "login", &page{Title: "Anmelden", Error: msg, Data: email})
		return
	}

	h.setSessionCookie(w, s.AccessToken, s.ExpiresIn)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if err := h.Auth.SignOut(r.Context(), c.Value); err != nil {
			log.Warnf("sign out: %s", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// loadPublicProfile renders the 404 page and returns nil when the username
// is unknown or the lookup failed.
func (h *Handler) loadPublicProfile(w http.ResponseWriter, r *http.Request) *models.Profile {
	username := chi.URLParam(r, "username")

	p, err := h.Profiles.GetPublic(r.Context(), username)
	if err != nil {
		log.Errorf("Error [ProfileService.GetPublic] %s", err)
	}
	if p == nil {
		h.NotFoundPage(w, r)
		return nil
	}
	return p
}

func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	p := h.loadPublicProfile(w, r)
	if p == nil {
		return
	}

	pg := &page{Title: p.DisplayName(), Data: profilePage{Profile: p}}
	if r.URL.Query().Get("sent") == "1" {
		pg.Notice = "Danke! Ihre Nachricht wurde gesendet."
	}
	h.render(w, http.StatusOK, "profile", pg)
}

func (h *Handler) VCard(w http.ResponseWriter, r *http.Request) {
	p := h.loadPublicProfile(w, r)
	if p == nil {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteVCard(&buf, p); err != nil {
		h.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.VCardContentType)
	w.Header().Set("Content-Disposition", attachment(export.VCardFilename(p)))
	_, _ = buf.WriteTo(w)
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	in := service.LeadInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Message: r.FormValue("message"),
	}

	_, err := h.Leads.Submit(r.Context(), username, in)
	if err == nil {
		http.Redirect(w, r, service.ProfilePath(username)+"?sent=1", http.StatusSeeOther)
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		h.NotFoundPage(w, r)
		return
	}

	p, perr := h.Profiles.GetPublic(r.Context(), username)
	if perr != nil || p == nil {
		log.Errorf("Error [LeadService.Submit] %s", err)
		h.NotFoundPage(w, r)
		return
	}

	status, msg := http.StatusInternalServerError, "Nachricht konnte nicht gesendet werden."
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "Bitte Name und eine gültige E-Mail angeben."
	case errors.Is(err, service.ErrNoActiveChip):
		status, msg = http.StatusUnprocessableEntity, "Für dieses Profil ist kein aktiver Chip hinterlegt."
	default:
		log.Errorf("Error [LeadService.Submit] %s", err)
	}

	h.render(w, status, "profile", &page{
		Title: p.DisplayName(),
		Error: msg,
		Data:  profilePage{Profile: p, Form: in},
	})
}

func attachment(filename string) string {
	return `attachment; filename="` + strings.ReplaceAll(filename, `"`, "") + `"; filename*=UTF-8''` + url.PathEscape(filename)
}
