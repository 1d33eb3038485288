package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kuzkabot/sellerbot/internal/logging"
)

// NewRouter assembles the HTTP surface: public endpoints, the session-
// guarded cabinet pages, and the Telegram webhook mounted at webhookPath.
// webhook may be nil when the bot runs in another process.
func NewRouter(h *Handlers, webhook http.Handler, webhookPath string, logger logging.Logger) *chi.Mux {

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Head("/healthz", h.Healthz)
	r.Get("/", h.Index)
	r.Get("/login/tg", h.LoginTG)
	r.Get("/auth/whoami", h.WhoAmI)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/settings", h.SettingsGet)
		r.Post("/settings", h.SettingsPost)
	})

	if webhook != nil && webhookPath != "" {
		r.Method(http.MethodPost, webhookPath, webhook)
	}

	return r
}
