package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unifarm/internal/auth"
)

// NewRouter wires the HTTP surface. Auth, metrics and health stay outside the
// authenticated group.
func NewRouter(h *Handler, authService *auth.Service) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/auth/telegram", h.TelegramLogin)

	r.Group(func(r chi.Router) {
		r.Use(WithAuth(authService, h.Ledger))

		r.Route("/api", func(r chi.Router) {
			r.Get("/balance", h.Balance)
			r.Get("/transactions", h.Transactions)

			r.Post("/farming/start", h.FarmingStart)
			r.Post("/farming/stop", h.FarmingStop)
			r.Get("/farming/status", h.FarmingStatus)

			r.Get("/boost/packages", h.BoostPackages)
			r.Post("/boost/purchase", h.BoostPurchase)

			r.Get("/missions", h.MissionList)
			r.Post("/missions/{id}/complete", h.MissionComplete)

			r.Get("/referral/stats", h.ReferralStats)
			r.Post("/referral/redeem", h.ReferralRedeem)

			r.Post("/withdraw", h.Withdraw)

			r.Post("/admin/settle", h.AdminSettle)
			r.Post("/admin/withdrawals/{id}/confirm", h.AdminConfirmWithdrawal)
		})
	})

	return r
}
