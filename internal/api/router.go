/**
 * @description
 * This file sets up the HTTP router for the adoption service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * middleware for logging, CORS, metrics, authentication and rate limiting.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pawhaven/adoption-service/internal/app"
	"github.com/pawhaven/adoption-service/internal/metrics"
)

// RouterOptions carries the settings the router needs beyond the handlers.
type RouterOptions struct {
	JWTSecret              []byte
	AllowedOrigins         []string
	RateLimiter            app.RateLimiter
	MessageLimitPerMinute  int
	DonationLimitPerMinute int
}

// Routes creates and returns the router for the adoption service.
func Routes(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.JWTSecret))

		r.Post("/listings/{listingID}/applications", h.CreateApplicationHandler)
		r.Get("/listings/{listingID}/donations", h.ListListingDonationsHandler)

		r.Get("/applications/mine", h.ListMyApplicationsHandler)
		r.Get("/applications/received", h.ListReceivedApplicationsHandler)
		r.Get("/applications/{applicationID}", h.GetApplicationHandler)
		r.Put("/applications/{applicationID}/status", h.UpdateApplicationStatusHandler)
		r.Post("/applications/{applicationID}/cancel", h.CancelApplicationHandler)
		r.Get("/applications/{applicationID}/messages", h.ConversationHandler)
		r.With(RateLimitMiddleware(opts.RateLimiter, app.RateLimitScopeMessageSend, opts.MessageLimitPerMinute)).
			Post("/applications/{applicationID}/messages", h.SendMessageHandler)
		r.Put("/applications/{applicationID}/rating", h.RateApplicationHandler)

		r.Post("/messages/read", h.MarkMessagesReadHandler)
		r.Get("/messages/unread-count", h.UnreadMessageCountHandler)

		r.Get("/users/{userID}/ratings", h.ListUserRatingsHandler)

		r.Put("/eligibility-form", h.SaveEligibilityFormHandler)
		r.Get("/eligibility-form", h.GetEligibilityFormHandler)

		r.With(RateLimitMiddleware(opts.RateLimiter, app.RateLimitScopeDonationCreate, opts.DonationLimitPerMinute)).
			Post("/donations", h.CreateDonationHandler)
		r.Get("/donations/mine", h.ListMyDonationsHandler)

		r.Get("/notifications", h.ListNotificationsHandler)
		r.Get("/notifications/unread-count", h.UnreadNotificationCountHandler)
		r.Post("/notifications/{notificationID}/read", h.MarkNotificationReadHandler)
	})

	return r
}
