package handlers

import (
	"bytes"
	"net/http"

	"github.com/avvvet/tap-services/internal/tapsvc/export"
	"github.com/avvvet/tap-services/internal/tapsvc/service"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	o, err := h.Analytics.Overview(r.Context(), UserID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "dashboard overview", o)
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	m, err := h.Analytics.Metrics(r.Context(), UserID(r.Context()), h.now())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "scan metrics for the last 30 days", m)
}

func (h *Handler) ListChips(w http.ResponseWriter, r *http.Request) {
	chips, err := h.Chips.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "chips", chips)
}

func (h *Handler) CreateChip(w http.ResponseWriter, r *http.Request) {
	var in service.CreateChipInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid json body")
		return
	}

	chip, err := h.Chips.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "chip created", Code: http.StatusCreated, Data: chip})
}

func (h *Handler) UpdateChip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chipID(w, r)
	if !ok {
		return
	}

	var in service.UpdateChipInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid json body")
		return
	}

	chip, err := h.Chips.Update(r.Context(), UserID(r.Context()), id, in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "chip updated", chip)
}

func (h *Handler) ToggleChip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chipID(w, r)
	if !ok {
		return
	}

	active, err := h.Chips.Toggle(r.Context(), UserID(r.Context()), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "chip toggled", map[string]bool{"is_active": active})
}

func (h *Handler) DeleteChip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.chipID(w, r)
	if !ok {
		return
	}

	if err := h.Chips.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "chip deleted", nil)
}

func (h *Handler) chipID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid chip id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ListAllChips(w http.ResponseWriter, r *http.Request) {
	chips, err := h.Chips.ListAll(r.Context(), UserID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "all chips", chips)
}

func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Leads.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "leads", leads)
}

// ExportLeads streams the owner's leads as csv (default) or xlsx.
func (h *Handler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		h.fail(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	leads, err := h.Leads.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	contentType := export.CSVContentType
	if format == "xlsx" {
		contentType = export.XLSXContentType
		err = export.WriteLeadsXLSX(&buf, leads, h.Location)
	} else {
		err = export.WriteLeadsCSV(&buf, leads, h.Location)
	}
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(export.LeadsFilename(h.now().UTC(), format)))
	if _, err := buf.WriteTo(w); err != nil {
		log.Debugf("write export: %s", err)
	}
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.Get(r.Context(), UserID(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "profile", p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid json body")
		return
	}

	p, err := h.Profiles.Update(r.Context(), UserID(r.Context()), in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "profile updated", p)
}

// UploadAvatar accepts a multipart form with the image in field "avatar".
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarBytes+1<<20)
	if err := r.ParseMultipartForm(service.MaxAvatarBytes); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.fail(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	p, err := h.Profiles.UploadAvatar(r.Context(), UserID(r.Context()),
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, "avatar updated", p)
}
