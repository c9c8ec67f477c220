package handlers

import (
	"errors"
	"net/http"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/service"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func dashboardPage(title string, data any) *page {
	return &page{Title: title, Dashboard: true, Data: data}
}

func (h *Handler) pageError(w http.ResponseWriter, op string, err error) {
	log.Errorf("Error [%s] %s", op, err)
	h.render(w, http.StatusInternalServerError, "processing", &page{
		Dashboard: true,
		Error:     "Daten konnten nicht geladen werden.",
	})
}

func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	o, err := h.Analytics.Overview(r.Context(), UserID(r.Context()))
	if err != nil {
		h.pageError(w, "AnalyticsService.Overview", err)
		return
	}
	h.render(w, http.StatusOK, "dashboard", dashboardPage("Übersicht", o))
}

func (h *Handler) DevicesPage(w http.ResponseWriter, r *http.Request) {
	h.renderDevices(w, r, http.StatusOK, "")
}

func (h *Handler) renderDevices(w http.ResponseWriter, r *http.Request, status int, msg string) {
	chips, err := h.Chips.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.pageError(w, "ChipService.List", err)
		return
	}
	pg := dashboardPage("Geräte", chips)
	pg.Error = msg
	h.render(w, status, "devices", pg)
}

func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	in := service.CreateChipInput{
		ChipUID:    r.FormValue("chip_uid"),
		ActiveMode: r.FormValue("active_mode"),
	}

	_, err := h.Chips.Create(r.Context(), UserID(r.Context()), in)
	switch {
	case err == nil:
		http.Redirect(w, r, "/dashboard/devices", http.StatusSeeOther)
	case errors.Is(err, service.ErrDuplicate):
		h.renderDevices(w, r, http.StatusConflict, "Diese Chip-ID ist bereits registriert.")
	case errors.Is(err, service.ErrInvalidInput):
		h.renderDevices(w, r, http.StatusBadRequest, "Bitte eine gültige Chip-ID angeben.")
	default:
		h.pageError(w, "ChipService.Create", err)
	}
}

func (h *Handler) ToggleDevice(w http.ResponseWriter, r *http.Request) {
	h.deviceAction(w, r, "ChipService.Toggle", func(owner, id uuid.UUID) error {
		_, err := h.Chips.Toggle(r.Context(), owner, id)
		return err
	})
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	h.deviceAction(w, r, "ChipService.Delete", func(owner, id uuid.UUID) error {
		return h.Chips.Delete(r.Context(), owner, id)
	})
}

func (h *Handler) deviceAction(w http.ResponseWriter, r *http.Request, op string, action func(owner, id uuid.UUID) error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.NotFoundPage(w, r)
		return
	}

	err = action(UserID(r.Context()), id)
	switch {
	case err == nil:
		http.Redirect(w, r, "/dashboard/devices", http.StatusSeeOther)
	case errors.Is(err, service.ErrNotFound):
		h.NotFoundPage(w, r)
	default:
		h.pageError(w, op, err)
	}
}

func (h *Handler) LeadsPage(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Leads.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.pageError(w, "LeadService.List", err)
		return
	}
	h.render(w, http.StatusOK, "leads", dashboardPage("Leads", leads))
}

func (h *Handler) AnalyticsPage(w http.ResponseWriter, r *http.Request) {
	m, err := h.Analytics.Metrics(r.Context(), UserID(r.Context()), h.now())
	if err != nil {
		h.pageError(w, "AnalyticsService.Metrics", err)
		return
	}
	h.render(w, http.StatusOK, "analytics", dashboardPage("Analytics", m))
}

// settingsProfile loads the profile behind the settings form. A user
// without a profile row gets an empty form.
func (h *Handler) settingsProfile(r *http.Request) (*models.Profile, error) {
	p, err := h.Profiles.Get(r.Context(), UserID(r.Context()))
	if errors.Is(err, service.ErrNotFound) {
		return &models.Profile{}, nil
	}
	return p, err
}

func (h *Handler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.settingsProfile(r)
	if err != nil {
		h.pageError(w, "ProfileService.Get", err)
		return
	}

	pg := dashboardPage("Einstellungen", p)
	if r.URL.Query().Get("saved") == "1" {
		pg.Notice = "Gespeichert."
	}
	h.render(w, http.StatusOK, "settings", pg)
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	in := service.ProfileInput{
		FullName:    r.FormValue("full_name"),
		Username:    r.FormValue("username"),
		JobTitle:    r.FormValue("job_title"),
		CompanyName: r.FormValue("company_name"),
		Bio:         r.FormValue("bio"),
		SocialLinks: service.SocialLinksInput{
			LinkedIn:  r.FormValue("linkedin"),
			Twitter:   r.FormValue("twitter"),
			Website:   r.FormValue("website"),
			Instagram: r.FormValue("instagram"),
		},
	}

	owner := UserID(r.Context())
	_, err := h.Profiles.Update(r.Context(), owner, in)
	if err == nil {
		http.Redirect(w, r, "/dashboard/settings?saved=1", http.StatusSeeOther)
		return
	}

	status, msg := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "Bitte die Eingaben prüfen: "+err.Error()
	case errors.Is(err, service.ErrDuplicate):
		status, msg = http.StatusConflict, "Dieser Benutzername ist bereits vergeben."
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, "Kein Profil gefunden."
	default:
		h.pageError(w, "ProfileService.Update", err)
		return
	}

	p, gerr := h.settingsProfile(r)
	if gerr != nil {
		h.pageError(w, "ProfileService.Get", gerr)
		return
	}
	pg := dashboardPage("Einstellungen", p)
	pg.Error = msg
	h.render(w, status, "settings", pg)
}
