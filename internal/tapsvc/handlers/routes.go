package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Get("/health", h.HealthHandler)

	// public routes
	r.Group(func(r chi.Router) {
		if h.RateLimit > 0 {
			r.Use(httprate.LimitByIP(h.RateLimit, 1*time.Minute))
		}
		r.Use(jwtauth.Verifier(h.tokenAuth))

		r.Get("/", h.HomePage)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Post("/logout", h.Logout)

		r.Get("/t/{uid}", h.Tap)

		r.Route("/p/{username}", func(r chi.Router) {
			r.Get("/", h.ProfilePage)
			r.Get("/vcard", h.VCard)
			r.Post("/contact", h.Contact)
		})
	})

	// dashboard pages
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(h.requirePage)

		r.Get("/", h.DashboardPage)
		r.Get("/devices", h.DevicesPage)
		r.Post("/devices", h.CreateDevice)
		r.Post("/devices/{id}/toggle", h.ToggleDevice)
		r.Post("/devices/{id}/delete", h.DeleteDevice)
		r.Get("/leads", h.LeadsPage)
		r.Get("/analytics", h.AnalyticsPage)
		r.Get("/settings", h.SettingsPage)
		r.Post("/settings", h.SaveSettings)
	})

	// Secure routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(h.requireSession)

		r.Get("/dashboard", h.GetDashboard)
		r.Get("/analytics", h.GetAnalytics)

		r.Route("/chips", func(r chi.Router) {
			r.Get("/", h.ListChips)
			r.Post("/", h.CreateChip)
			r.Put("/{id}", h.UpdateChip)
			r.Delete("/{id}", h.DeleteChip)
			r.Post("/{id}/toggle", h.ToggleChip)
		})

		r.Get("/leads", h.ListLeads)
		r.Get("/leads/export", h.ExportLeads)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/profile/avatar", h.UploadAvatar)

		r.Get("/admin/chips", h.ListAllChips)
	})

	r.NotFound(h.NotFoundPage)
}
