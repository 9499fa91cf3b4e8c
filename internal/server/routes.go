package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interiorly/internal/handlers"
	"interiorly/internal/middlewares"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.RequestIDMiddleware)
	r.Use(middlewares.RecoverMiddleware)
	r.Use(middlewares.CorsMiddleware(s.cfg.Origins()))
	r.Use(middlewares.NewPrometheusMiddleware(s.registry).Instrument)
	r.Use(s.apiLimiter.Limit)

	ch := handlers.NewCommonHandler(s.db)
	r.HandleFunc("/health", ch.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, s.registry},
		promhttp.HandlerOpts{},
	)).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(ch.NotFoundHandler)

	auth := middlewares.NewAuthenticator(s.sessions)
	api := r.PathPrefix("/api").Subrouter()

	s.registerBookingRoutes(api, auth)
	s.registerOTPRoutes(api)
	s.registerAdminRoutes(api, auth)

	return r
}

func (s *Server) registerBookingRoutes(r *mux.Router, auth *middlewares.Authenticator) {
	bh := handlers.NewBookingHandler(s.bookingService)

	r.HandleFunc("/booking/blocked-slots", bh.GetBlockedSlots).Methods("GET", "OPTIONS")
	r.Handle("/booking/add", auth.RequireUser(http.HandlerFunc(bh.AddBooking))).Methods("POST", "OPTIONS")
	r.Handle("/booking/mine", auth.RequireUser(http.HandlerFunc(bh.ListMyBookings))).Methods("GET", "OPTIONS")

	r.Handle("/booking", auth.RequireAdmin(http.HandlerFunc(bh.ListBookings))).Methods("GET", "OPTIONS")
	r.Handle("/booking/status/{id}", auth.RequireAdmin(http.HandlerFunc(bh.UpdateStatus))).Methods("PATCH", "OPTIONS")
	r.Handle("/booking/{id}", auth.RequireAdmin(http.HandlerFunc(bh.DeleteBooking))).Methods("DELETE", "OPTIONS")
}

// Verification has its own, larger budget so a caller can still reach the
// per-code attempt lockout after using up sends.
func (s *Server) registerOTPRoutes(r *mux.Router) {
	ah := handlers.NewAuthHandler(s.authService)

	r.Handle("/otp/send", s.otpLimiter.Limit(http.HandlerFunc(ah.SendOTP))).Methods("POST", "OPTIONS")
	r.Handle("/otp/verify", s.verifyLimiter.Limit(http.HandlerFunc(ah.VerifyOTP))).Methods("POST", "OPTIONS")
}

func (s *Server) registerAdminRoutes(r *mux.Router, auth *middlewares.Authenticator) {
	adh := handlers.NewAdminHandler(s.adminAuthService, s.statsService, s.cfg.IsProduction(), s.cfg.TrustProxy)

	r.Handle("/admin/login", s.loginLimiter.Limit(http.HandlerFunc(adh.Login))).Methods("POST", "OPTIONS")
	r.Handle("/admin/verify-otp", s.loginLimiter.Limit(http.HandlerFunc(adh.VerifyOTP))).Methods("POST", "OPTIONS")
	r.Handle("/admin/logout", auth.RequireAdmin(http.HandlerFunc(adh.Logout))).Methods("POST", "OPTIONS")
	r.Handle("/admin/me", auth.RequireAdmin(http.HandlerFunc(adh.Me))).Methods("GET", "OPTIONS")
	r.Handle("/admin/stats", auth.RequireAdmin(http.HandlerFunc(adh.Stats))).Methods("GET", "OPTIONS")
}
