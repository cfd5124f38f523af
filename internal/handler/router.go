package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/car-rental-system/internal/middleware"
	"github.com/mmeshcher/car-rental-system/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса проката.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.RateLimit(h.limiter, custommiddleware.ByClientIP, h.logger))
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RateLimit(h.limiter, custommiddleware.ByUser, h.logger))

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RoleCustomer))

			r.Post("/reservations", h.CreateReservation)
			r.Get("/reservations/my", h.MyReservations)
			r.Patch("/reservations/{id}/cancel", h.CancelReservation)
			r.Delete("/reservations/{id}", h.DeleteReservation)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RoleAdmin))

			r.Get("/reservations", h.ListReservations)
			r.Get("/reservations/{id}", h.GetReservation)
			r.Patch("/reservations/{id}/status", h.UpdateReservationStatus)
			r.Patch("/cars/{carId}/status", h.UpdateCarStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NotFound", http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
