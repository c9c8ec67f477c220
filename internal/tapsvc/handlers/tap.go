package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/avvvet/tap-services/internal/tapsvc/service"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

// edge headers that carry a coarse visitor location, first match per key wins
var locationHeaders = []struct {
	header string
	key    string
}{
	{"CF-IPCountry", "country"},
	{"X-Vercel-IP-Country", "country"},
	{"X-Vercel-IP-City", "city"},
}

// Tap resolves a scanned chip and sends the visitor on. Failures are logged
// and never shown to the visitor.
func (h *Handler) Tap(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	res, err := h.Redirects.Resolve(r.Context(), uid, visitFromRequest(r))
	if err != nil {
		log.WithField("chip_uid", uid).Errorf("Error [RedirectService.Resolve] %s", err)
		h.render(w, http.StatusOK, "processing", nil)
		return
	}

	if err := res.Err(); err != nil {
		log.WithField("chip_uid", uid).Warnf("tap recorded with errors: %s", err)
	}

	if res.Destination == "" {
		h.render(w, http.StatusOK, "processing", nil)
		return
	}

	log.WithFields(log.Fields{"chip_uid": uid, "outcome": res.Outcome}).Debug("tap resolved")
	http.Redirect(w, r, res.Destination, http.StatusFound)
}

func visitFromRequest(r *http.Request) service.Visit {
	v := service.Visit{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r.RemoteAddr),
	}

	for _, lh := range locationHeaders {
		val := r.Header.Get(lh.header)
		if val == "" {
			continue
		}
		if v.Location == nil {
			v.Location = make(map[string]string)
		}
		if _, ok := v.Location[lh.key]; !ok {
			v.Location[lh.key] = val
		}
	}
	return v
}

// clientIP returns the visitor address or "" when RemoteAddr holds no IP.
// middleware.RealIP copies forwarding headers unchecked, so RemoteAddr may be
// "unknown" or a comma list, and ip_address is an inet column.
func clientIP(remoteAddr string) string {
	addr := strings.TrimSpace(strings.Split(remoteAddr, ",")[0])
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ip := net.ParseIP(strings.Trim(addr, "[]"))
	if ip == nil {
		return ""
	}
	return ip.String()
}
