package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/auth"
	"github.com/avvvet/tap-services/internal/tapsvc/service"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

// Authenticator is the remote sign-in backend.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Deps are the services the tap handlers serve.
type Deps struct {
	Redirects *service.RedirectService
	Analytics *service.AnalyticsService
	Chips     *service.ChipService
	Leads     *service.LeadService
	Profiles  *service.ProfileService
	Auth      Authenticator

	Location      *time.Location
	RateLimit     int  // requests per minute per IP on public routes, 0 disables
	SecureCookies bool // set when served over https
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	Deps

	pages map[string]*template.Template
	now   func() time.Time
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(tokenAuth *jwtauth.JWTAuth, d Deps) *Handler {
	if d.Location == nil {
		d.Location = time.UTC
	}
	h := &Handler{
		tokenAuth: tokenAuth,
		Deps:      d,
		now:       time.Now,
	}
	h.pages = parsePages(d.Location)
	return h
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: http.StatusOK, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, code int, msg string) {
	h.CreateResponse(w, Response{Message: http.StatusText(code), Code: code, Error: msg})
}

// serviceError maps service errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		h.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		h.fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrDuplicate):
		h.fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		h.fail(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNoActiveChip):
		h.fail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		h.fail(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.WithField("path", r.URL.Path).Errorf("Error %s", err)
		h.fail(w, http.StatusInternalServerError, "internal error")
	}
}

const maxJSONBody = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, "tap service is running at port "+os.Getenv("TAP_SERVICE_PORT"), nil)
}
